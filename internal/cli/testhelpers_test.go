package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"go.uber.org/zap"

	"wordcast/internal/bootstrap"
	"wordcast/internal/config"
	"wordcast/internal/domain"
	"wordcast/internal/ports"
	"wordcast/internal/recognition"
	"wordcast/internal/usecase"
)

func runCommand(t *testing.T, args []string) (stdout string, stderr string, err error) {
	t.Helper()

	cmd := NewRootCmd()
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

// scriptedEngine replays a fixed utterance once started.
type scriptedEngine struct {
	*recognition.Dispatcher

	startErr error
	script   []domain.RecognitionEvent

	mu      sync.Mutex
	locale  string
	opts    ports.RecognitionOptions
	stopped int
}

func newScriptedEngine(script ...domain.RecognitionEvent) *scriptedEngine {
	return &scriptedEngine{Dispatcher: recognition.NewDispatcher(nil), script: script}
}

func (e *scriptedEngine) Start(_ context.Context, locale string, opts ports.RecognitionOptions) error {
	if e.startErr != nil {
		return e.startErr
	}
	e.mu.Lock()
	e.locale = locale
	e.opts = opts
	e.mu.Unlock()

	go func() {
		e.Emit(domain.Started())
		for _, event := range e.script {
			e.Emit(event)
		}
	}()
	return nil
}

func (e *scriptedEngine) Stop(_ context.Context) error {
	e.mu.Lock()
	e.stopped++
	first := e.stopped == 1
	e.mu.Unlock()
	if first {
		go e.Emit(domain.Ended(nil))
	}
	return nil
}

func (e *scriptedEngine) startedWith() (string, ports.RecognitionOptions) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.locale, e.opts
}

// testApp returns an appState whose listen command runs against engine.
func testApp(cfg config.Config, engine ports.RecognitionEngine, in io.Reader) (*appState, *bytes.Buffer, *config.Config) {
	out := new(bytes.Buffer)
	used := new(config.Config)
	app := &appState{
		in:         in,
		out:        out,
		isTerminal: func(int) bool { return false },
		loadConfig: func() (config.Config, error) { return cfg, nil },
		build: func(resolved config.Config, sink ports.EventSink, log *zap.Logger) (bootstrap.Services, error) {
			if err := resolved.Validate(); err != nil {
				return bootstrap.Services{}, err
			}
			*used = resolved
			controller := usecase.NewSessionController(engine, sink, log, usecase.Config{
				Continuous: resolved.Session.Continuous,
				StaleAfter: resolved.Session.StaleAfter,
			})
			return bootstrap.Services{Controller: controller, Engine: engine, Config: resolved}, nil
		},
	}
	return app, out, used
}

func noFlagsChanged(string) bool { return false }

var errMicrophoneBusy = errors.New("microphone busy")

func (e *scriptedEngine) stopCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}
