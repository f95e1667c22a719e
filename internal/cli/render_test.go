package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"wordcast/internal/domain"
)

func TestRendererPlainPrintsEachFinalOnce(t *testing.T) {
	t.Parallel()

	out := new(bytes.Buffer)
	r := newTranscriptRenderer(out, false, 0, nil, nil)

	r.SessionChanged(domain.Session{Status: domain.SessionStatusIdle, Pending: true})
	r.SessionChanged(domain.Session{Status: domain.SessionStatusListening, IsListening: true, Transcript: "hi", WordCount: 1})
	r.SessionChanged(domain.Session{Status: domain.SessionStatusListening, IsListening: true, Transcript: "hi there", WordCount: 2, Finalized: true})
	r.SessionChanged(domain.Session{Status: domain.SessionStatusListening, IsListening: true, Stopping: true, Transcript: "hi there", WordCount: 2, Finalized: true})
	r.SessionChanged(domain.Session{Status: domain.SessionStatusStopped, Transcript: "hi there", WordCount: 2, Finalized: true})

	select {
	case <-r.Ended():
	default:
		t.Fatalf("expected ended after stopped")
	}

	r.Finish()
	require.Equal(t, "hi there (2 words)\nWords: 2\n", out.String())
}

func TestRendererStoppedWithoutStartDoesNotEnd(t *testing.T) {
	t.Parallel()

	r := newTranscriptRenderer(new(bytes.Buffer), false, 0, nil, nil)
	r.SessionChanged(domain.Session{Status: domain.SessionStatusStopped})

	select {
	case <-r.Ended():
		t.Fatalf("ended must wait for an active session")
	default:
	}
}

func TestRendererLiveRedrawsInPlace(t *testing.T) {
	t.Parallel()

	out := new(bytes.Buffer)
	listening := 0
	r := newTranscriptRenderer(out, true, 30, nil, func() { listening++ })

	r.SessionChanged(domain.Session{Status: domain.SessionStatusIdle, Pending: true})
	r.SessionChanged(domain.Session{Status: domain.SessionStatusListening, IsListening: true, Transcript: "one", WordCount: 1})
	r.SessionChanged(domain.Session{Status: domain.SessionStatusListening, IsListening: true, Transcript: "one two", WordCount: 2})

	require.Equal(t, 1, listening)
	require.Contains(t, out.String(), clearLine+"[0 words] starting...")
	require.Contains(t, out.String(), clearLine+"[1 word] one")
	require.Contains(t, out.String(), clearLine+"[2 words] one two")

	out.Reset()
	r.Finish()
	require.Equal(t, clearLine+"one two\nWords: 2\n", out.String())
}

func TestTail(t *testing.T) {
	t.Parallel()

	require.Equal(t, "short", tail("short", 10))
	require.Equal(t, "…world", tail("hello world", 6))
	require.Equal(t, "unbounded text", tail("unbounded text", 0))
	require.Equal(t, "…", tail("abc", 1))
}
