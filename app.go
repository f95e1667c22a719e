package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"wordcast/internal/bootstrap"
	"wordcast/internal/domain"
	"wordcast/internal/usecase"
)

const (
	eventSession = "wordcast:session"
	eventError   = "wordcast:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context
	log *zap.Logger

	services   bootstrap.Services
	controller *usecase.SessionController
	bootErr    error
}

func NewApp(log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{log: log}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, a.log)
	if err != nil {
		a.bootErr = err
		a.log.Error("startup failed", zap.Error(err))
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.services = services
	a.controller = services.Controller
	a.SessionChanged(a.controller.Session())
}

func (a *App) shutdown(ctx context.Context) {
	if a.controller == nil {
		return
	}
	if err := a.controller.Teardown(ctx); err != nil {
		a.log.Warn("teardown failed", zap.Error(err))
	}
}

// StartListening asks the engine to start dictation.
func (a *App) StartListening() (domain.Session, error) {
	if err := a.requireReady(); err != nil {
		return domain.Session{}, err
	}
	err := a.controller.Start(a.ctx, a.services.Locale(), a.services.RecognitionOptions())
	if err != nil && !errors.Is(err, usecase.ErrAlreadyListening) {
		return a.controller.Session(), err
	}
	return a.controller.Session(), nil
}

// StopListening asks the engine to stop dictation.
func (a *App) StopListening() (domain.Session, error) {
	if err := a.requireReady(); err != nil {
		return domain.Session{}, err
	}
	if err := a.controller.Stop(a.ctx); err != nil {
		return a.controller.Session(), err
	}
	return a.controller.Session(), nil
}

// ClearTranscript empties the transcript and word count.
func (a *App) ClearTranscript() (domain.Session, error) {
	if err := a.requireReady(); err != nil {
		return domain.Session{}, err
	}
	a.controller.Clear()
	return a.controller.Session(), nil
}

// CopyTranscript writes the current transcript to the system clipboard.
func (a *App) CopyTranscript() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	text := a.controller.Session().Transcript
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if err := runtime.ClipboardSetText(a.ctx, text); err != nil {
		a.SessionError(domain.ErrorCodeClipboard, err.Error())
		return err
	}
	return nil
}

// GetSession returns the current session snapshot.
func (a *App) GetSession() domain.Session {
	if a.controller == nil {
		return domain.Session{Status: domain.SessionStatusIdle}
	}
	return a.controller.Session()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	info := a.services.RuntimeInfo()
	return map[string]string{
		"engine":     info.Engine,
		"locale":     info.Locale,
		"model":      info.Model,
		"continuous": fmt.Sprintf("%t", info.Continuous),
		"staleAfter": info.StaleAfter,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionChanged emits session snapshots to the frontend.
func (a *App) SessionChanged(session domain.Session) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, sessionPayload(session))
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func sessionPayload(session domain.Session) map[string]any {
	return map[string]any{
		"status":      string(session.Status),
		"isListening": session.IsListening,
		"transcript":  session.Transcript,
		"wordCount":   session.WordCount,
		"finalized":   session.Finalized,
		"message":     sessionMessage(session),
	}
}

func sessionMessage(session domain.Session) string {
	switch {
	case session.Pending:
		return "Starting..."
	case session.Stopping:
		return "Stopping..."
	case session.IsListening:
		return "Listening"
	case session.Status == domain.SessionStatusStopped:
		return "Stopped"
	case session.Status == domain.SessionStatusIdle:
		return "Press start to dictate"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeEngineUnavailable:
		return "Speech recognition unavailable"
	case domain.ErrorCodeEngineEnded:
		return "Speech recognition stopped unexpectedly"
	case domain.ErrorCodeClipboard:
		return "Clipboard write failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
