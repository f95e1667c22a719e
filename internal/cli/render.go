package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"wordcast/internal/domain"
)

const clearLine = "\r\x1b[2K"

// transcriptRenderer prints session snapshots to a terminal. Live mode redraws
// one line in place; plain mode prints each finalized transcript once.
type transcriptRenderer struct {
	out         io.Writer
	live        bool
	width       int
	log         *zap.Logger
	onListening func()

	mu          sync.Mutex
	last        domain.Session
	lastPrinted string
	sawActive   bool
	drawn       bool

	listeningOnce sync.Once
	endedOnce     sync.Once
	ended         chan struct{}
}

func newTranscriptRenderer(out io.Writer, live bool, width int, log *zap.Logger, onListening func()) *transcriptRenderer {
	if log == nil {
		log = zap.NewNop()
	}
	if onListening == nil {
		onListening = func() {}
	}
	return &transcriptRenderer{
		out:         out,
		live:        live,
		width:       width,
		log:         log,
		onListening: onListening,
		ended:       make(chan struct{}),
	}
}

func (r *transcriptRenderer) SessionChanged(session domain.Session) {
	if session.IsListening {
		r.listeningOnce.Do(r.onListening)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.last = session
	if session.Pending || session.IsListening {
		r.sawActive = true
	}

	if r.live {
		fmt.Fprint(r.out, clearLine+r.liveLine(session))
		r.drawn = true
	} else if session.Finalized && strings.TrimSpace(session.Transcript) != "" && session.Transcript != r.lastPrinted {
		fmt.Fprintf(r.out, "%s (%s)\n", session.Transcript, wordsLabel(session.WordCount))
		r.lastPrinted = session.Transcript
	}

	if session.Status == domain.SessionStatusStopped && r.sawActive {
		r.endedOnce.Do(func() { close(r.ended) })
	}
}

func (r *transcriptRenderer) SessionError(code domain.ErrorCode, detail string) {
	r.log.Warn("session error", zap.String("code", string(code)), zap.String("detail", detail))
}

// Ended is closed once a started session reached Stopped.
func (r *transcriptRenderer) Ended() <-chan struct{} {
	return r.ended
}

// Finish prints the final transcript and word count.
func (r *transcriptRenderer) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.live {
		if r.drawn {
			fmt.Fprint(r.out, clearLine)
		}
		if strings.TrimSpace(r.last.Transcript) != "" {
			fmt.Fprintln(r.out, r.last.Transcript)
		}
	} else if strings.TrimSpace(r.last.Transcript) != "" && r.last.Transcript != r.lastPrinted {
		fmt.Fprintln(r.out, r.last.Transcript)
	}
	fmt.Fprintf(r.out, "Words: %d\n", r.last.WordCount)
}

func (r *transcriptRenderer) liveLine(session domain.Session) string {
	prefix := fmt.Sprintf("[%s] ", wordsLabel(session.WordCount))
	switch {
	case session.Pending:
		return prefix + "starting..."
	case session.Stopping:
		prefix = fmt.Sprintf("[%s, stopping] ", wordsLabel(session.WordCount))
	}
	return prefix + tail(session.Transcript, r.width-len(prefix)-1)
}

func wordsLabel(n int) string {
	if n == 1 {
		return "1 word"
	}
	return fmt.Sprintf("%d words", n)
}

// tail keeps the last max runes of text so the newest words stay visible.
func tail(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	if max == 1 {
		return "…"
	}
	return "…" + string(runes[len(runes)-max+1:])
}
