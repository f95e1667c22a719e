package bootstrap

import (
	"fmt"

	"go.uber.org/zap"

	"wordcast/internal/audio"
	"wordcast/internal/config"
	"wordcast/internal/domain"
	"wordcast/internal/engine"
	"wordcast/internal/ports"
	"wordcast/internal/providers/azure"
	"wordcast/internal/providers/deepgram"
	"wordcast/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.SessionController
	Engine     ports.RecognitionEngine
	Config     config.Config
}

// Build loads configuration and wires all backend dependencies.
func Build(eventSink ports.EventSink, log *zap.Logger) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	return BuildWithConfig(cfg, eventSink, log)
}

// BuildWithConfig wires backend dependencies for an already resolved config.
func BuildWithConfig(cfg config.Config, eventSink ports.EventSink, log *zap.Logger) (Services, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return Services{}, err
	}

	recognizer, err := newEngine(cfg, log)
	if err != nil {
		return Services{}, err
	}

	controller := usecase.NewSessionController(
		recognizer,
		eventSink,
		log.Named("session"),
		usecase.Config{
			Continuous: cfg.Session.Continuous,
			StaleAfter: cfg.Session.StaleAfter,
		},
	)

	return Services{Controller: controller, Engine: recognizer, Config: cfg}, nil
}

// Locale returns the locale sessions are started with.
func (s Services) Locale() string {
	return s.Config.Recognition.Locale
}

// RecognitionOptions returns the engine start options for the configured screen.
func (s Services) RecognitionOptions() ports.RecognitionOptions {
	r := s.Config.Recognition
	return ports.RecognitionOptions{
		FreeFormModel:    r.FreeFormModel,
		PartialResults:   r.PartialResults,
		MinLengthMs:      r.MinLengthMs,
		SilenceTimeoutMs: r.SilenceTimeoutMs,
	}
}

// RuntimeInfo summarizes non-sensitive configuration for hosts.
func (s Services) RuntimeInfo() domain.RuntimeInfo {
	info := domain.RuntimeInfo{
		Engine:     s.Config.Engine.Provider,
		Locale:     s.Config.Recognition.Locale,
		Continuous: s.Config.Session.Continuous,
		StaleAfter: s.Config.Session.StaleAfter.String(),
	}
	if s.Config.Engine.Provider == config.EngineDeepgram {
		info.Model = s.Config.Deepgram.Model
	}
	return info
}

func newEngine(cfg config.Config, log *zap.Logger) (ports.RecognitionEngine, error) {
	audioCfg := ports.AudioConfig{
		SampleRate:  cfg.Audio.SampleRate,
		Channels:    cfg.Audio.Channels,
		InputFormat: cfg.Audio.InputFormat,
		InputDevice: cfg.Audio.InputDevice,
	}
	capture := audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand, log.Named("audio"))

	switch cfg.Engine.Provider {
	case config.EngineAzure:
		recognizer, err := azure.NewEngine(capture, azure.Config{
			SubscriptionKey: cfg.Azure.SubscriptionKey,
			Region:          cfg.Azure.Region,
			Audio:           audioCfg,
			ChunkSize:       cfg.Session.ChunkSize,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("azure engine: %w", err)
		}
		return recognizer, nil
	default:
		provider := deepgram.NewProvider(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			SmartFormat: cfg.Deepgram.SmartFormat,
		}, log)
		return engine.NewStreamingEngine(capture, provider, log.Named("engine"), engine.Config{
			Audio: audioCfg,
			Streaming: ports.StreamingConfig{
				SampleRate: cfg.Audio.SampleRate,
				Channels:   cfg.Audio.Channels,
				Encoding:   "linear16",
			},
			ChunkSize:    cfg.Session.ChunkSize,
			DrainTimeout: cfg.Session.DrainTimeout,
		}), nil
	}
}
