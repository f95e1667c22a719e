//go:build azurespeech

package azure

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Microsoft/cognitive-services-speech-sdk-go/audio"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/common"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/speech"
	"go.uber.org/zap"

	"wordcast/internal/domain"
	"wordcast/internal/ports"
	"wordcast/internal/recognition"
)

var errBusy = errors.New("recognition already running")

// Engine implements ports.RecognitionEngine with Azure continuous recognition.
// Microphone audio comes from an AudioCapture and is pushed into the SDK.
type Engine struct {
	*recognition.Dispatcher

	capture ports.AudioCapture
	cfg     Config
	log     *zap.Logger

	mu            sync.Mutex
	current       *session
	starting      bool
	stopRequested bool
}

type session struct {
	opts       ports.RecognitionOptions
	cleanup    []func()
	recognizer *speech.SpeechRecognizer
	push       *audio.PushAudioInputStream
	capture    ports.AudioSession

	startedAt time.Time
	lastHeard atomic.Int64
	pumpDone  chan struct{}
	done      chan struct{}

	failMu  sync.Mutex
	failure error

	stopOnce sync.Once
	stopErr  error
	endOnce  sync.Once
}

func NewEngine(capture ports.AudioCapture, cfg Config, log *zap.Logger) (ports.RecognitionEngine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	return &Engine{
		Dispatcher: recognition.NewDispatcher(log),
		capture:    capture,
		cfg:        cfg,
		log:        log.Named("azure"),
	}, nil
}

func (e *Engine) Start(ctx context.Context, locale string, opts ports.RecognitionOptions) error {
	e.mu.Lock()
	if e.current != nil || e.starting {
		e.mu.Unlock()
		return errBusy
	}
	e.starting = true
	e.stopRequested = false
	e.mu.Unlock()

	s := &session{opts: opts, pumpDone: make(chan struct{}), done: make(chan struct{})}
	if err := e.openRecognizer(s, locale); err != nil {
		s.release()
		e.abortStart()
		return err
	}

	captureSession, err := e.capture.Start(context.WithoutCancel(ctx), e.cfg.Audio)
	if err != nil {
		s.release()
		e.abortStart()
		return fmt.Errorf("start audio capture: %w", err)
	}
	s.capture = captureSession

	if err := <-s.recognizer.StartContinuousRecognitionAsync(); err != nil {
		_ = captureSession.Stop()
		s.release()
		e.abortStart()
		return fmt.Errorf("start azure recognition: %w", err)
	}

	s.startedAt = time.Now()
	s.heard()

	e.mu.Lock()
	e.current = s
	stopNow := e.stopRequested
	e.starting = false
	e.stopRequested = false
	e.mu.Unlock()

	go e.pump(s)
	go e.watchSilence(s)

	e.log.Debug("recognition started", zap.String("locale", locale))
	if stopNow {
		go func() {
			_ = e.stopSession(s, "requested during start")
			e.finish(s, nil)
		}()
	}
	return nil
}

func (e *Engine) abortStart() {
	e.mu.Lock()
	e.starting = false
	e.stopRequested = false
	e.mu.Unlock()
}

// Stop ends recognition. A Stop during Start is applied once the recognizer runs.
func (e *Engine) Stop(_ context.Context) error {
	e.mu.Lock()
	s := e.current
	if s == nil && e.starting {
		e.stopRequested = true
	}
	e.mu.Unlock()
	if s == nil {
		return nil
	}
	err := e.stopSession(s, "requested")
	e.finish(s, nil)
	return err
}

func (e *Engine) openRecognizer(s *session, locale string) error {
	speechConfig, err := speech.NewSpeechConfigFromSubscription(e.cfg.SubscriptionKey, e.cfg.Region)
	if err != nil {
		return fmt.Errorf("create speech config: %w", err)
	}
	s.cleanup = append(s.cleanup, speechConfig.Close)

	if err := speechConfig.SetSpeechRecognitionLanguage(locale); err != nil {
		return fmt.Errorf("set recognition language: %w", err)
	}
	if s.opts.FreeFormModel {
		if err := speechConfig.EnableDictation(); err != nil {
			return fmt.Errorf("enable dictation: %w", err)
		}
	}
	if s.opts.SilenceTimeoutMs > 0 {
		err := speechConfig.SetProperty(common.SpeechServiceConnectionEndSilenceTimeoutMs, strconv.Itoa(s.opts.SilenceTimeoutMs))
		if err != nil {
			return fmt.Errorf("set end silence timeout: %w", err)
		}
	}

	format, err := audio.GetWaveFormatPCM(uint32(e.cfg.Audio.SampleRate), 16, uint8(e.cfg.Audio.Channels))
	if err != nil {
		return fmt.Errorf("create audio format: %w", err)
	}
	s.cleanup = append(s.cleanup, format.Close)

	push, err := audio.CreatePushAudioInputStreamFromFormat(format)
	if err != nil {
		return fmt.Errorf("create push stream: %w", err)
	}
	s.push = push
	s.cleanup = append(s.cleanup, push.Close)

	audioConfig, err := audio.NewAudioConfigFromStreamInput(push)
	if err != nil {
		return fmt.Errorf("create audio config: %w", err)
	}
	s.cleanup = append(s.cleanup, audioConfig.Close)

	recognizer, err := speech.NewSpeechRecognizerFromConfig(speechConfig, audioConfig)
	if err != nil {
		return fmt.Errorf("create recognizer: %w", err)
	}
	s.recognizer = recognizer
	s.cleanup = append(s.cleanup, recognizer.Close)

	recognizer.SessionStarted(func(speech.SessionEventArgs) {
		e.Emit(domain.Started())
	})
	recognizer.Recognizing(func(event speech.SpeechRecognitionEventArgs) {
		s.heard()
		if s.opts.PartialResults {
			e.Emit(domain.PartialResult(event.Result.Text))
		}
	})
	recognizer.Recognized(func(event speech.SpeechRecognitionEventArgs) {
		if event.Result.Reason != common.RecognizedSpeech || event.Result.Text == "" {
			return
		}
		s.heard()
		e.Emit(domain.FinalResult(event.Result.Text))
	})
	recognizer.Canceled(func(event speech.SpeechRecognitionCanceledEventArgs) {
		var err error
		if event.Reason == common.Error {
			err = fmt.Errorf("azure recognition canceled: %s", event.ErrorDetails)
			e.log.Warn("recognition canceled", zap.String("detail", event.ErrorDetails))
		}
		go e.finish(s, err)
	})
	recognizer.SessionStopped(func(speech.SessionEventArgs) {
		go e.finish(s, nil)
	})
	return nil
}

func (e *Engine) pump(s *session) {
	defer close(s.pumpDone)

	buf := make([]byte, e.cfg.ChunkSize)
	for {
		n, err := s.capture.Read(buf)
		if n > 0 {
			if writeErr := s.push.Write(buf[:n]); writeErr != nil {
				s.fail(fmt.Errorf("push audio: %w", writeErr))
				go e.stopSession(s, "push")
				return
			}
		}
		if err != nil {
			if !captureEnded(err) {
				s.fail(fmt.Errorf("read audio: %w", err))
				go e.stopSession(s, "audio")
			}
			return
		}
	}
}

func (e *Engine) watchSilence(s *session) {
	minLength := time.Duration(s.opts.MinLengthMs) * time.Millisecond
	silence := time.Duration(s.opts.SilenceTimeoutMs) * time.Millisecond
	if silence <= 0 {
		return
	}

	ticker := time.NewTicker(silencePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			if silenceElapsed(now, s.startedAt, s.lastHeardAt(), minLength, silence) {
				_ = e.stopSession(s, "silence")
				e.finish(s, nil)
				return
			}
		}
	}
}

func (e *Engine) stopSession(s *session, reason string) error {
	s.stopOnce.Do(func() {
		e.log.Debug("stopping recognition", zap.String("reason", reason))
		if err := s.capture.Stop(); err != nil {
			s.stopErr = fmt.Errorf("stop audio capture: %w", err)
		}
		<-s.pumpDone
		s.push.CloseStream()
		if err := <-s.recognizer.StopContinuousRecognitionAsync(); err != nil && s.stopErr == nil {
			s.stopErr = fmt.Errorf("stop azure recognition: %w", err)
		}
	})
	return s.stopErr
}

// finish runs once per session and delivers Ended after capture has stopped.
func (e *Engine) finish(s *session, err error) {
	s.endOnce.Do(func() {
		_ = e.stopSession(s, "ended")

		e.mu.Lock()
		if e.current == s {
			e.current = nil
		}
		e.mu.Unlock()

		if err == nil {
			err = s.failureErr()
		}
		e.Emit(domain.Ended(err))
		close(s.done)
		s.release()
	})
}

func (s *session) heard() { s.lastHeard.Store(time.Now().UnixNano()) }

func (s *session) lastHeardAt() time.Time { return time.Unix(0, s.lastHeard.Load()) }

func (s *session) fail(err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	if s.failure == nil {
		s.failure = err
	}
}

func (s *session) failureErr() error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return s.failure
}

func (s *session) release() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
	s.cleanup = nil
}
