package engine

import (
	"strings"

	"wordcast/internal/ports"
)

// utteranceText turns per-segment provider messages into the cumulative text of
// the current utterance. Finalized segments are committed; the latest interim
// segment is appended after them.
type utteranceText struct {
	committed []string
	interim   string
}

// Add applies one provider message and returns the cumulative utterance text.
func (u *utteranceText) Add(event ports.TranscriptEvent) string {
	text := strings.TrimSpace(event.Text)
	if event.Kind == ports.TranscriptKindFinal {
		if text != "" {
			u.committed = append(u.committed, text)
		}
		u.interim = ""
	} else {
		u.interim = text
	}
	return u.String()
}

func (u *utteranceText) String() string {
	joined := strings.Join(u.committed, " ")
	if u.interim == "" {
		return joined
	}
	if joined == "" {
		return u.interim
	}
	return joined + " " + u.interim
}

func (u *utteranceText) Empty() bool {
	return len(u.committed) == 0 && u.interim == ""
}

func (u *utteranceText) Reset() {
	u.committed = nil
	u.interim = ""
}
