package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wordcast/internal/domain"
	"wordcast/internal/ports"
)

var (
	ErrEngineUnavailable = errors.New("speech recognition engine unavailable")
	ErrAlreadyListening  = errors.New("speech session is already listening")
	ErrTornDown          = errors.New("speech session has been torn down")
)

const teardownStopTimeout = 2 * time.Second

// Config controls session behavior that differs between dictation screens.
type Config struct {
	// Continuous keeps listening for further utterances after a final result.
	// When false the controller stops the engine once an utterance is finalized.
	Continuous bool
	// StaleAfter clears the transcript when no partial result arrived for this
	// long while listening. Zero disables the timeout.
	StaleAfter time.Duration
}

// SessionController turns engine events and user intents into a domain.Session.
type SessionController struct {
	engine ports.RecognitionEngine
	events ports.EventSink
	log    *zap.Logger
	cfg    Config
	newID  func() string

	mu          sync.Mutex
	state       sessionState
	transcript  transcriptBuffer
	stale       *inactivityTimer
	unsubscribe func()
	tornDown    bool

	notifyMu      sync.Mutex
	notifiedUpTo  uint64
	notifiedFirst bool
}

func NewSessionController(
	engine ports.RecognitionEngine,
	events ports.EventSink,
	log *zap.Logger,
	cfg Config,
) *SessionController {
	if log == nil {
		log = zap.NewNop()
	}
	c := &SessionController{
		engine: engine,
		events: events,
		log:    log,
		cfg:    cfg,
		newID:  func() string { return uuid.NewString() },
		state:  sessionState{status: domain.SessionStatusIdle},
	}
	c.stale = newInactivityTimer(cfg.StaleAfter, c.onStale)
	c.unsubscribe = engine.Subscribe(c.HandleEvent)
	return c
}

// Start asks the engine to begin capture. The session becomes Listening only once
// the engine reports Started.
func (c *SessionController) Start(ctx context.Context, locale string, opts ports.RecognitionOptions) error {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return ErrTornDown
	}
	if c.state.active() {
		c.mu.Unlock()
		return ErrAlreadyListening
	}
	c.state.pending = true
	c.state.stopping = false
	c.state.touch()
	c.mu.Unlock()

	c.log.Debug("requesting recognition start",
		zap.String("locale", locale),
		zap.Bool("partial_results", opts.PartialResults),
		zap.Int("min_length_ms", opts.MinLengthMs),
		zap.Int("silence_timeout_ms", opts.SilenceTimeoutMs),
	)

	if err := c.engine.Start(ctx, locale, opts); err != nil {
		c.mu.Lock()
		c.state.pending = false
		c.state.stopping = false
		c.state.touch()
		snapshot, version := c.snapshotLocked()
		c.mu.Unlock()

		c.log.Warn("recognition start rejected", zap.Error(err))
		c.events.SessionError(domain.ErrorCodeEngineUnavailable, err.Error())
		c.notify(snapshot, version)
		return fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}

	c.publish()
	return nil
}

// Stop asks the engine to stop capture. It is a no-op when nothing is listening.
// The session settles at Stopped when the engine reports Ended.
func (c *SessionController) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.tornDown || !c.state.active() {
		c.mu.Unlock()
		c.log.Debug("stop ignored; session not listening")
		return nil
	}
	if c.state.stopping {
		c.mu.Unlock()
		return nil
	}
	c.state.stopping = true
	c.state.touch()
	c.mu.Unlock()

	return c.requestStop(ctx)
}

// Clear resets the transcript and word count without touching the status.
func (c *SessionController) Clear() {
	c.mu.Lock()
	c.transcript.Reset()
	c.state.finalized = false
	c.stale.Stop()
	c.state.touch()
	snapshot, version := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snapshot, version)
}

// Session returns a copy of the current session state.
func (c *SessionController) Session() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	snapshot, _ := c.snapshotLocked()
	return snapshot
}

// Teardown releases engine listeners and the inactivity timer and stops an active
// engine session. Events delivered afterwards are discarded. Safe to call more
// than once.
func (c *SessionController) Teardown(ctx context.Context) error {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return nil
	}
	c.tornDown = true
	c.stale.Stop()
	needStop := c.state.active() && !c.state.stopping
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	c.engine.RemoveAllListeners()

	if !needStop {
		return nil
	}

	stopCtx, cancel := context.WithTimeout(ctx, teardownStopTimeout)
	defer cancel()
	if err := c.engine.Stop(stopCtx); err != nil {
		c.log.Warn("engine stop during teardown failed", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	return nil
}

// HandleEvent applies one engine event. It is subscribed to the engine on
// construction and exported for hosts that drive the controller directly.
func (c *SessionController) HandleEvent(event domain.RecognitionEvent) {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		c.log.Debug("stale recognition event after teardown", zap.String("kind", string(event.Kind)))
		return
	}

	var (
		applied  bool
		autoStop bool
	)
	switch event.Kind {
	case domain.RecognitionStarted:
		applied = c.onStartedLocked()
		// A stop requested while the start was in flight may have reached the
		// engine before it had anything to stop.
		autoStop = applied && c.state.stopping
	case domain.RecognitionPartialResult:
		applied = c.onPartialResultLocked(event.Text)
	case domain.RecognitionFinalResult:
		applied, autoStop = c.onFinalResultLocked(event.Text)
	case domain.RecognitionEnded:
		applied = c.onEndedLocked()
	default:
		c.log.Warn("unknown recognition event dropped", zap.String("kind", string(event.Kind)))
	}
	if !applied {
		c.mu.Unlock()
		c.log.Debug("recognition event ignored",
			zap.String("kind", string(event.Kind)),
			zap.String("status", string(c.Session().Status)),
		)
		return
	}
	utterance := c.state.utteranceID
	snapshot, version := c.snapshotLocked()
	c.mu.Unlock()

	if event.Kind == domain.RecognitionEnded && event.Err != nil {
		c.log.Warn("recognition ended with error", zap.String("utterance", utterance), zap.Error(event.Err))
		c.events.SessionError(domain.ErrorCodeEngineEnded, event.Err.Error())
	}
	c.notify(snapshot, version)

	if autoStop {
		// Engine callbacks may be running on the goroutine that Stop waits for.
		go func() {
			if err := c.requestStop(context.Background()); err != nil {
				c.log.Warn("automatic stop failed",
					zap.String("utterance", utterance),
					zap.String("after", string(event.Kind)),
					zap.Error(err),
				)
			}
		}()
	}
}

func (c *SessionController) onStartedLocked() bool {
	if !c.state.pending {
		return false
	}
	c.state.pending = false
	c.state.status = domain.SessionStatusListening
	c.state.finalized = false
	c.state.utteranceID = c.newID()
	c.state.touch()
	c.log.Info("listening", zap.String("utterance", c.state.utteranceID))
	return true
}

func (c *SessionController) onPartialResultLocked(text string) bool {
	if !c.state.listening() {
		return false
	}
	c.transcript.Set(text)
	c.state.finalized = false
	c.stale.Reset()
	c.state.touch()
	return true
}

func (c *SessionController) onFinalResultLocked(text string) (applied bool, autoStop bool) {
	if !c.state.listening() {
		return false, false
	}
	if strings.TrimSpace(text) == "" {
		c.log.Debug("blank final result; keeping current transcript", zap.String("utterance", c.state.utteranceID))
	} else {
		c.transcript.Set(text)
	}
	c.state.finalized = true
	c.state.touch()

	if !c.cfg.Continuous && !c.state.stopping {
		c.state.stopping = true
		autoStop = true
	}
	return true, autoStop
}

func (c *SessionController) onEndedLocked() bool {
	if !c.state.active() {
		return false
	}
	c.stale.Stop()
	c.log.Info("stopped listening",
		zap.String("utterance", c.state.utteranceID),
		zap.Int("words", c.transcript.Words()),
	)
	c.state.status = domain.SessionStatusStopped
	c.state.pending = false
	c.state.stopping = false
	c.state.touch()
	return true
}

func (c *SessionController) onStale(generation uint64) {
	c.mu.Lock()
	if c.tornDown || !c.stale.Current(generation) || !c.state.listening() {
		c.mu.Unlock()
		return
	}
	c.stale.Stop()
	c.log.Debug("no partial result within inactivity timeout; clearing transcript",
		zap.String("utterance", c.state.utteranceID),
		zap.Duration("stale_after", c.cfg.StaleAfter),
	)
	c.transcript.Reset()
	c.state.finalized = false
	c.state.touch()
	snapshot, version := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snapshot, version)
}

func (c *SessionController) requestStop(ctx context.Context) error {
	c.publish()

	if err := c.engine.Stop(ctx); err != nil {
		c.mu.Lock()
		c.state.stopping = false
		c.state.touch()
		snapshot, version := c.snapshotLocked()
		c.mu.Unlock()

		c.log.Warn("recognition stop rejected", zap.Error(err))
		c.events.SessionError(domain.ErrorCodeEngineUnavailable, err.Error())
		c.notify(snapshot, version)
		return fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	return nil
}

func (c *SessionController) publish() {
	c.mu.Lock()
	snapshot, version := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snapshot, version)
}

func (c *SessionController) snapshotLocked() (domain.Session, uint64) {
	return domain.Session{
		Status:      c.state.status,
		IsListening: c.state.listening(),
		Transcript:  c.transcript.Text(),
		WordCount:   c.transcript.Words(),
		Finalized:   c.state.finalized,
		UtteranceID: c.state.utteranceID,
		Pending:     c.state.pending,
		Stopping:    c.state.stopping,
	}, c.state.version
}

func (c *SessionController) notify(snapshot domain.Session, version uint64) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if c.notifiedFirst && version <= c.notifiedUpTo {
		return
	}
	c.notifiedFirst = true
	c.notifiedUpTo = version
	c.events.SessionChanged(snapshot)
}
