package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"wordcast/internal/domain"
	"wordcast/internal/ports"
	"wordcast/internal/recognition"
)

var ErrBusy = errors.New("recognition already running")

const silencePollInterval = 100 * time.Millisecond

// Config controls the streaming engine.
type Config struct {
	Audio        ports.AudioConfig
	Streaming    ports.StreamingConfig
	ChunkSize    int
	DrainTimeout time.Duration
}

// StreamingEngine implements ports.RecognitionEngine on top of a microphone
// capture and a streaming transcription provider.
type StreamingEngine struct {
	*recognition.Dispatcher

	audio    ports.AudioCapture
	provider ports.TranscriptionProvider
	log      *zap.Logger
	cfg      Config

	mu      sync.Mutex
	current *activeCapture
	// starting is set while Start dials the provider; stopRequested records a
	// Stop that arrived in that window.
	starting      bool
	stopRequested bool
}

type activeCapture struct {
	cancel context.CancelFunc
	audio  ports.AudioSession
	stream ports.StreamingSession
	opts   ports.RecognitionOptions

	pump      *audioPump
	pumpErr   chan error
	audioDone chan struct{}
	done      chan struct{}

	stopOnce sync.Once
	stopErr  error
}

func NewStreamingEngine(
	audio ports.AudioCapture,
	provider ports.TranscriptionProvider,
	log *zap.Logger,
	cfg Config,
) *StreamingEngine {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 4 * time.Second
	}
	return &StreamingEngine{
		Dispatcher: recognition.NewDispatcher(log),
		audio:      audio,
		provider:   provider,
		log:        log,
		cfg:        cfg,
	}
}

// Start connects to the provider and starts capture. Started is emitted from the
// session goroutine once both are live.
func (e *StreamingEngine) Start(ctx context.Context, locale string, opts ports.RecognitionOptions) error {
	e.mu.Lock()
	if e.current != nil || e.starting {
		e.mu.Unlock()
		return ErrBusy
	}
	e.starting = true
	e.stopRequested = false
	e.mu.Unlock()

	streamCfg := e.cfg.Streaming
	streamCfg.Language = locale
	streamCfg.InterimResults = opts.PartialResults
	streamCfg.Dictation = opts.FreeFormModel
	streamCfg.EndpointingMs = opts.SilenceTimeoutMs

	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stream, err := e.provider.StartStreaming(sessionCtx, streamCfg)
	if err != nil {
		cancel()
		e.abortStart()
		return fmt.Errorf("start transcription stream: %w", err)
	}

	audioSession, err := e.audio.Start(sessionCtx, e.cfg.Audio)
	if err != nil {
		_ = stream.Close()
		cancel()
		e.abortStart()
		return fmt.Errorf("start audio capture: %w", err)
	}

	active := &activeCapture{
		cancel:    cancel,
		audio:     audioSession,
		stream:    stream,
		opts:      opts,
		pump:      newAudioPump(audioSession, stream, e.cfg.ChunkSize),
		pumpErr:   make(chan error, 1),
		audioDone: make(chan struct{}),
		done:      make(chan struct{}),
	}

	e.mu.Lock()
	e.current = active
	stopNow := e.stopRequested
	e.starting = false
	e.stopRequested = false
	e.mu.Unlock()

	go func() {
		defer close(active.audioDone)
		active.pumpErr <- active.pump.run()
	}()
	go e.run(active)

	e.log.Debug("recognition started", zap.String("locale", locale))
	if stopNow {
		go func() { _ = e.stopCapture(active, "requested during start") }()
	}
	return nil
}

func (e *StreamingEngine) abortStart() {
	e.mu.Lock()
	e.starting = false
	e.stopRequested = false
	e.mu.Unlock()
}

// Stop ends capture and half-closes the provider stream. Ended is emitted once
// the provider drains. A Stop during Start takes effect as soon as capture is
// live. Stop is a no-op when nothing is running.
func (e *StreamingEngine) Stop(_ context.Context) error {
	e.mu.Lock()
	active := e.current
	if active == nil && e.starting {
		e.stopRequested = true
	}
	e.mu.Unlock()

	if active == nil {
		return nil
	}
	return e.stopCapture(active, "requested")
}

// Done returns a channel closed once the current session delivered Ended. It
// returns a closed channel when nothing is running.
func (e *StreamingEngine) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return e.current.done
}

func (e *StreamingEngine) stopCapture(active *activeCapture, reason string) error {
	active.stopOnce.Do(func() {
		e.log.Debug("stopping capture", zap.String("reason", reason))
		if err := active.audio.Stop(); err != nil {
			active.stopErr = fmt.Errorf("stop audio capture: %w", err)
		}
		<-active.audioDone
		_ = active.stream.CloseSend()

		go func() {
			select {
			case <-active.done:
			case <-time.After(e.cfg.DrainTimeout):
				e.log.Warn("provider did not drain in time; closing stream")
				_ = active.stream.Close()
			}
		}()
	})
	return active.stopErr
}

func (e *StreamingEngine) run(active *activeCapture) {
	e.Emit(domain.Started())

	var (
		utterance  utteranceText
		startedAt  = time.Now()
		lastSpeech = startedAt
		pumpErr    error
		minLength  = time.Duration(active.opts.MinLengthMs) * time.Millisecond
		silence    = time.Duration(active.opts.SilenceTimeoutMs) * time.Millisecond
		tick       <-chan time.Time
	)
	if silence > 0 {
		ticker := time.NewTicker(silencePollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	events := active.stream.Events()
	pumpDone := active.pumpErr
	for events != nil {
		select {
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			lastSpeech = time.Now()
			text := utterance.Add(event)
			if event.IsSpeechFinal {
				if text != "" {
					e.Emit(domain.FinalResult(text))
				}
				utterance.Reset()
				continue
			}
			if active.opts.PartialResults {
				e.Emit(domain.PartialResult(text))
			}
		case err := <-pumpDone:
			pumpDone = nil
			if err != nil {
				pumpErr = err
				e.log.Warn("audio pump failed", zap.Error(err))
				go func() { _ = e.stopCapture(active, "audio") }()
			}
		case now := <-tick:
			if now.Sub(startedAt) >= minLength && now.Sub(lastSpeech) >= silence {
				tick = nil
				go func() { _ = e.stopCapture(active, "silence") }()
			}
		}
	}

	if !utterance.Empty() {
		e.Emit(domain.FinalResult(utterance.String()))
	}

	_ = e.stopCapture(active, "stream closed")
	streamErr := drainStream(active.stream, e.cfg.DrainTimeout)
	active.cancel()
	e.log.Debug("recognition session finished", zap.Int64("audio_bytes", active.pump.Sent()))
	if pumpErr != nil && streamErr == nil {
		streamErr = pumpErr
	}

	e.mu.Lock()
	if e.current == active {
		e.current = nil
	}
	e.mu.Unlock()

	e.Emit(domain.Ended(streamErr))
	close(active.done)
}
