package azure

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"wordcast/internal/ports"
)

// ErrUnavailable is returned when the binary was built without Azure Speech support.
var ErrUnavailable = errors.New("azure speech support not compiled in (build with -tags azurespeech)")

const silencePollInterval = 100 * time.Millisecond

// Config holds Azure Speech settings.
type Config struct {
	SubscriptionKey string
	Region          string
	Audio           ports.AudioConfig
	ChunkSize       int
}

func (c Config) validate() error {
	if strings.TrimSpace(c.SubscriptionKey) == "" {
		return errors.New("AZURE_SPEECH_KEY is not set")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("AZURE_SPEECH_REGION is not set")
	}
	return nil
}

// silenceElapsed reports whether the session may auto-end: the minimum length
// has passed and nothing was heard for the silence window.
func silenceElapsed(now, startedAt, lastHeard time.Time, minLength, silence time.Duration) bool {
	if silence <= 0 {
		return false
	}
	return now.Sub(startedAt) >= minLength && now.Sub(lastHeard) >= silence
}

// captureEnded reports whether a read error from the capture is the normal end
// of a stopped recording. Closing the recorder's stdout surfaces as os.ErrClosed.
func captureEnded(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed)
}
