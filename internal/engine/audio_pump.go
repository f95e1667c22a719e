package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"wordcast/internal/ports"
)

// audioPump copies microphone PCM into the provider stream.
type audioPump struct {
	source    io.Reader
	sink      ports.StreamingSession
	chunkSize int
	sent      atomic.Int64
}

func newAudioPump(source io.Reader, sink ports.StreamingSession, chunkSize int) *audioPump {
	if chunkSize < 256 {
		chunkSize = 4096
	}
	return &audioPump{source: source, sink: sink, chunkSize: chunkSize}
}

// run copies until the capture ends. Ending capture, including a closed pipe
// after Stop, returns nil.
func (p *audioPump) run() error {
	buf := make([]byte, p.chunkSize)
	for {
		n, err := p.source.Read(buf)
		if n > 0 {
			if sendErr := p.sink.SendAudio(buf[:n]); sendErr != nil {
				return fmt.Errorf("stream audio: %w", sendErr)
			}
			p.sent.Add(int64(n))
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, os.ErrClosed):
			return nil
		default:
			return fmt.Errorf("read microphone: %w", err)
		}
	}
}

// Sent reports how many audio bytes reached the provider.
func (p *audioPump) Sent() int64 {
	return p.sent.Load()
}

// drainStream waits for the provider to finish, forcing the stream closed after timeout.
func drainStream(stream ports.StreamingSession, timeout time.Duration) error {
	result := make(chan error, 1)
	go func() { result <- stream.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-result:
		return err
	case <-timer.C:
		_ = stream.Close()
		return <-result
	}
}
