package deepgram

import (
	"errors"
	"testing"

	"github.com/gorilla/websocket"
)

func TestListenSessionSendAfterCloseSend(t *testing.T) {
	t.Parallel()

	s := &listenSession{audio: make(chan []byte, 1)}
	if err := s.CloseSend(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.CloseSend(); err != nil {
		t.Fatalf("unexpected second error: %v", err)
	}
	if err := s.SendAudio([]byte("x")); !errors.Is(err, errSendClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestListenSessionSendAudioIgnoresEmptyChunks(t *testing.T) {
	t.Parallel()

	s := &listenSession{sendClosed: true}
	if err := s.SendAudio(nil); err != nil {
		t.Fatalf("expected empty chunk to be ignored, got %v", err)
	}
}

func TestListenSessionSendAudioCopiesChunk(t *testing.T) {
	t.Parallel()

	s := &listenSession{audio: make(chan []byte, 1)}
	chunk := []byte("abc")
	if err := s.SendAudio(chunk); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chunk[0] = 'z'
	if got := string(<-s.audio); got != "abc" {
		t.Fatalf("expected queued copy, got %q", got)
	}
}

func TestListenSessionFailIgnoresCleanClose(t *testing.T) {
	t.Parallel()

	s := &listenSession{}
	s.fail(&websocket.CloseError{Code: websocket.CloseNormalClosure, Text: "closed"})
	if s.failure() != nil {
		t.Fatalf("expected clean close to be ignored")
	}

	s.fail(errors.New("first"))
	s.fail(errors.New("second"))
	if s.failure() == nil || s.failure().Error() != "first" {
		t.Fatalf("expected first error to win, got %v", s.failure())
	}
}
