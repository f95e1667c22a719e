package main

import (
	"testing"

	"wordcast/internal/domain"
)

func TestSessionMessage(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		session domain.Session
		want    string
	}{
		"idle":      {session: domain.Session{Status: domain.SessionStatusIdle}, want: "Press start to dictate"},
		"pending":   {session: domain.Session{Status: domain.SessionStatusIdle, Pending: true}, want: "Starting..."},
		"listening": {session: domain.Session{Status: domain.SessionStatusListening, IsListening: true}, want: "Listening"},
		"stopping":  {session: domain.Session{Status: domain.SessionStatusListening, IsListening: true, Stopping: true}, want: "Stopping..."},
		"stopped":   {session: domain.Session{Status: domain.SessionStatusStopped}, want: "Stopped"},
		"unknown":   {session: domain.Session{Status: "weird"}, want: ""},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := sessionMessage(tc.session); got != tc.want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.ErrorCode]string{
		domain.ErrorCodeStartup:           "Startup failed",
		domain.ErrorCodeEngineUnavailable: "Speech recognition unavailable",
		domain.ErrorCodeEngineEnded:       "Speech recognition stopped unexpectedly",
		domain.ErrorCodeClipboard:         "Clipboard write failed",
	}
	for code, want := range cases {
		code := code
		want := want
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()
			if got := errorMessage(code, "ignored"); got != want {
				t.Fatalf("unexpected message: %q", got)
			}
		})
	}

	if got := errorMessage("other", "raw detail"); got != "raw detail" {
		t.Fatalf("expected detail passthrough, got %q", got)
	}
	if got := errorMessage("other", ""); got != "Unknown error" {
		t.Fatalf("expected unknown fallback, got %q", got)
	}
}

func TestSessionPayload(t *testing.T) {
	t.Parallel()

	payload := sessionPayload(domain.Session{
		Status:      domain.SessionStatusListening,
		IsListening: true,
		Transcript:  "hello world",
		WordCount:   2,
	})
	if payload["transcript"] != "hello world" || payload["wordCount"] != 2 || payload["message"] != "Listening" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestAppNotReadyBeforeStartup(t *testing.T) {
	t.Parallel()

	app := NewApp(nil)
	if _, err := app.StartListening(); err == nil {
		t.Fatalf("expected not-initialized error")
	}
	if got := app.GetSession(); got.Status != domain.SessionStatusIdle {
		t.Fatalf("expected idle session, got %+v", got)
	}
	app.SessionChanged(domain.Session{})
	app.SessionError(domain.ErrorCodeStartup, "no context")
}
