package domain

// SessionStatus models the listening lifecycle.
type SessionStatus string

const (
	SessionStatusIdle      SessionStatus = "idle"
	SessionStatusListening SessionStatus = "listening"
	SessionStatusStopped   SessionStatus = "stopped"
)

// ErrorCode identifies non-fatal backend errors surfaced to the UI.
type ErrorCode string

const (
	ErrorCodeStartup           ErrorCode = "startup"
	ErrorCodeEngineUnavailable ErrorCode = "engine_unavailable"
	ErrorCodeEngineEnded       ErrorCode = "engine_ended"
	ErrorCodeClipboard         ErrorCode = "clipboard"
)

// RecognitionEventKind identifies the variant of a RecognitionEvent.
type RecognitionEventKind string

const (
	RecognitionStarted       RecognitionEventKind = "started"
	RecognitionPartialResult RecognitionEventKind = "partial"
	RecognitionFinalResult   RecognitionEventKind = "final"
	RecognitionEnded         RecognitionEventKind = "ended"
)

// RecognitionEvent is produced by a recognition engine and consumed by the controller.
// Text is set for partial and final results. Err is set on Ended when the engine
// stopped abnormally.
type RecognitionEvent struct {
	Kind RecognitionEventKind
	Text string
	Err  error
}

func Started() RecognitionEvent { return RecognitionEvent{Kind: RecognitionStarted} }

func PartialResult(text string) RecognitionEvent {
	return RecognitionEvent{Kind: RecognitionPartialResult, Text: text}
}

func FinalResult(text string) RecognitionEvent {
	return RecognitionEvent{Kind: RecognitionFinalResult, Text: text}
}

func Ended(err error) RecognitionEvent { return RecognitionEvent{Kind: RecognitionEnded, Err: err} }

// Session is the UI-observable state of the dictation screen.
type Session struct {
	Status      SessionStatus `json:"status"`
	IsListening bool          `json:"isListening"`
	Transcript  string        `json:"transcript"`
	WordCount   int           `json:"wordCount"`
	Finalized   bool          `json:"finalized"`
	UtteranceID string        `json:"utteranceId,omitempty"`
	Pending     bool          `json:"pending"`
	Stopping    bool          `json:"stopping"`
}

// RuntimeInfo summarizes non-sensitive runtime configuration for hosts.
type RuntimeInfo struct {
	Engine     string `json:"engine"`
	Locale     string `json:"locale"`
	Model      string `json:"model,omitempty"`
	Continuous bool   `json:"continuous"`
	StaleAfter string `json:"staleAfter"`
}
