//go:build !azurespeech

package azure

import (
	"go.uber.org/zap"

	"wordcast/internal/ports"
)

// NewEngine reports ErrUnavailable; the Azure SDK needs cgo and the native
// Speech SDK libraries, which default builds do not link.
func NewEngine(_ ports.AudioCapture, cfg Config, _ *zap.Logger) (ports.RecognitionEngine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return nil, ErrUnavailable
}
