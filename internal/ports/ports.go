package ports

import (
	"context"
	"io"

	"wordcast/internal/domain"
)

// RecognitionOptions are the engine start options shared by every adapter.
type RecognitionOptions struct {
	FreeFormModel    bool
	PartialResults   bool
	MinLengthMs      int
	SilenceTimeoutMs int
}

// RecognitionEngine is the external speech-recognition capability. Start and Stop
// only report whether the request was accepted; activation and termination are
// observed through Started and Ended events.
type RecognitionEngine interface {
	Start(ctx context.Context, locale string, opts RecognitionOptions) error
	Stop(ctx context.Context) error
	Subscribe(handler func(domain.RecognitionEvent)) (unsubscribe func())
	RemoveAllListeners()
}

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// StreamingConfig describes provider-agnostic streaming settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	Language       string
	InterimResults bool
	Dictation      bool
	EndpointingMs  int
}

// TranscriptKind identifies whether a provider message is partial or final text.
type TranscriptKind string

const (
	TranscriptKindPartial TranscriptKind = "partial"
	TranscriptKindFinal   TranscriptKind = "final"
)

// TranscriptEvent is one provider message.
type TranscriptEvent struct {
	Kind          TranscriptKind
	Text          string
	IsSpeechFinal bool
}

// StreamingSession is an active provider websocket session.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan TranscriptEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts streaming transcription sessions.
type TranscriptionProvider interface {
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}

// EventSink emits session state to the UI.
type EventSink interface {
	SessionChanged(session domain.Session)
	SessionError(code domain.ErrorCode, detail string)
}
