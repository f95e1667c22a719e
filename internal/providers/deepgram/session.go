package deepgram

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wordcast/internal/ports"
)

var errSendClosed = errors.New("deepgram: audio stream already closed")

// listenSession is one live transcription socket. Audio goes out through a
// single writer goroutine; server messages are decoded by a single reader.
type listenSession struct {
	log       *zap.Logger
	conn      *websocket.Conn
	keepAlive time.Duration

	events   chan ports.TranscriptEvent
	audio    chan []byte
	readDone chan struct{}
	closing  chan struct{}
	done     chan struct{}

	errMu sync.Mutex
	err   error

	sendMu     sync.Mutex
	sendClosed bool
	closeOnce  sync.Once
}

func newListenSession(conn *websocket.Conn, log *zap.Logger, keepAlive time.Duration) *listenSession {
	s := &listenSession{
		log:       log,
		conn:      conn,
		keepAlive: keepAlive,
		events:    make(chan ports.TranscriptEvent, 64),
		audio:     make(chan []byte, 32),
		readDone:  make(chan struct{}),
		closing:   make(chan struct{}),
		done:      make(chan struct{}),
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer close(s.readDone)
		s.readLoop()
	}()
	go func() {
		defer wg.Done()
		s.writeLoop()
	}()
	go func() {
		wg.Wait()
		close(s.events)
		_ = conn.Close()
		close(s.done)
	}()
	return s
}

func (s *listenSession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.sendClosed {
		return errSendClosed
	}
	select {
	case <-s.readDone:
		return s.endedErr()
	default:
	}

	select {
	case s.audio <- append([]byte(nil), chunk...):
		return nil
	case <-s.closing:
		return errors.New("deepgram: session closed")
	case <-s.readDone:
		return s.endedErr()
	}
}

func (s *listenSession) endedErr() error {
	if err := s.failure(); err != nil {
		return err
	}
	return errors.New("deepgram: connection closed")
}

// CloseSend tells Deepgram no more audio follows. Remaining results still arrive
// on Events until the server closes the socket.
func (s *listenSession) CloseSend() error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if !s.sendClosed {
		s.sendClosed = true
		close(s.audio)
	}
	return nil
}

func (s *listenSession) Events() <-chan ports.TranscriptEvent {
	return s.events
}

func (s *listenSession) Wait() error {
	<-s.done
	return s.failure()
}

func (s *listenSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
		_ = s.CloseSend()
		_ = s.conn.Close()
	})
	<-s.done
	return s.failure()
}

func (s *listenSession) failure() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *listenSession) fail(err error) {
	if err == nil || isCleanClose(err) {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func isCleanClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}

func (s *listenSession) writeLoop() {
	var tick <-chan time.Time
	if s.keepAlive > 0 {
		ticker := time.NewTicker(s.keepAlive)
		defer ticker.Stop()
		tick = ticker.C
	}
	lastAudio := time.Now()

	for {
		select {
		case chunk, ok := <-s.audio:
			if !ok {
				if err := s.conn.WriteMessage(websocket.TextMessage, []byte(controlCloseStream)); err != nil {
					s.fail(fmt.Errorf("deepgram: close stream: %w", err))
				}
				return
			}
			if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				s.fail(fmt.Errorf("deepgram: send audio: %w", err))
				_ = s.conn.Close()
				return
			}
			lastAudio = time.Now()
		case now := <-tick:
			if now.Sub(lastAudio) < s.keepAlive {
				continue
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, []byte(controlKeepAlive)); err != nil {
				s.fail(fmt.Errorf("deepgram: keepalive: %w", err))
				_ = s.conn.Close()
				return
			}
			s.log.Debug("keepalive sent")
		case <-s.readDone:
			return
		}
	}
}

func (s *listenSession) readLoop() {
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.fail(fmt.Errorf("deepgram: read: %w", err))
			return
		}

		decoded, err := decodeFrame(payload)
		if err != nil {
			s.log.Debug("malformed message dropped", zap.Error(err))
			continue
		}
		if decoded.failure != nil {
			s.fail(decoded.failure)
			return
		}
		if !decoded.emit {
			continue
		}
		select {
		case s.events <- decoded.event:
		case <-s.closing:
			return
		}
	}
}
