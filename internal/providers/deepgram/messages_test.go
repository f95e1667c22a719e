package deepgram

import (
	"errors"
	"strings"
	"testing"

	"wordcast/internal/ports"
)

func TestDecodeFrame(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		payload  string
		wantEmit bool
		want     ports.TranscriptEvent
	}{
		{
			name:     "interim result",
			payload:  `{"type":"Results","is_final":false,"channel":{"alternatives":[{"transcript":" hello "}]}}`,
			wantEmit: true,
			want:     ports.TranscriptEvent{Kind: ports.TranscriptKindPartial, Text: "hello"},
		},
		{
			name:     "final segment",
			payload:  `{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello world"}]}}`,
			wantEmit: true,
			want:     ports.TranscriptEvent{Kind: ports.TranscriptKindFinal, Text: "hello world"},
		},
		{
			name:     "speech final",
			payload:  `{"type":"Results","is_final":true,"speech_final":true,"channel":{"alternatives":[{"transcript":"done"}]}}`,
			wantEmit: true,
			want:     ports.TranscriptEvent{Kind: ports.TranscriptKindFinal, Text: "done", IsSpeechFinal: true},
		},
		{
			name:     "empty speech final still closes the utterance",
			payload:  `{"type":"Results","is_final":true,"speech_final":true,"channel":{"alternatives":[{"transcript":""}]}}`,
			wantEmit: true,
			want:     ports.TranscriptEvent{Kind: ports.TranscriptKindFinal, IsSpeechFinal: true},
		},
		{
			name:    "empty interim is dropped",
			payload: `{"type":"Results","channel":{"alternatives":[{"transcript":""}]}}`,
		},
		{
			name:     "legacy results layout",
			payload:  `{"results":{"channels":[{"alternatives":[{"transcript":"legacy"}]}]},"is_final":true}`,
			wantEmit: true,
			want:     ports.TranscriptEvent{Kind: ports.TranscriptKindFinal, Text: "legacy"},
		},
		{
			name:     "utterance end",
			payload:  `{"type":"UtteranceEnd","channel":[0,1],"last_word_end":2.1}`,
			wantEmit: true,
			want:     ports.TranscriptEvent{Kind: ports.TranscriptKindFinal, IsSpeechFinal: true},
		},
		{name: "metadata", payload: `{"type":"Metadata","request_id":"abc"}`},
		{name: "speech started", payload: `{"type":"SpeechStarted","timestamp":0.5}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := decodeFrame([]byte(tt.payload))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.failure != nil {
				t.Fatalf("unexpected failure: %v", got.failure)
			}
			if got.emit != tt.wantEmit {
				t.Fatalf("expected emit=%v, got %+v", tt.wantEmit, got)
			}
			if tt.wantEmit && got.event != tt.want {
				t.Fatalf("unexpected event: %+v", got.event)
			}
		})
	}
}

func TestDecodeFrameServerError(t *testing.T) {
	t.Parallel()

	got, err := decodeFrame([]byte(`{"type":"Error","description":"bad audio"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(got.failure, ErrServer) || !strings.Contains(got.failure.Error(), "bad audio") {
		t.Fatalf("unexpected failure: %v", got.failure)
	}
	if got.emit {
		t.Fatalf("errors must not emit transcript events")
	}
}

func TestDecodeFrameMalformed(t *testing.T) {
	t.Parallel()

	if _, err := decodeFrame([]byte("not json")); err == nil {
		t.Fatalf("expected decode error")
	}
}
