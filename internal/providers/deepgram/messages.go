package deepgram

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"wordcast/internal/ports"
)

const (
	controlKeepAlive   = `{"type":"KeepAlive"}`
	controlCloseStream = `{"type":"CloseStream"}`
)

// ErrServer marks errors reported by Deepgram inside the stream.
var ErrServer = errors.New("deepgram stream error")

type envelope struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

// resultsMessage is a Results payload. Other message types reuse field names
// with different shapes (UtteranceEnd sends "channel" as an array), so it is
// only decoded once the type is known.
type resultsMessage struct {
	IsFinal     bool    `json:"is_final"`
	SpeechFinal bool    `json:"speech_final"`
	Channel     channel `json:"channel"`
	Results     struct {
		Channels []channel `json:"channels"`
	} `json:"results"`
}

type channel struct {
	Alternatives []alternative `json:"alternatives"`
}

type alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// frame is the decoded meaning of one server message.
type frame struct {
	event   ports.TranscriptEvent
	emit    bool
	failure error
}

// decodeFrame maps a server message to a transcript event. The returned error
// is only set for payloads that are not valid JSON.
func decodeFrame(payload []byte) (frame, error) {
	var head envelope
	if err := json.Unmarshal(payload, &head); err != nil {
		return frame{}, err
	}

	switch strings.ToLower(head.Type) {
	case "error":
		detail := firstNonEmpty(head.Description, head.Message, "unknown error")
		return frame{failure: fmt.Errorf("%w: %s", ErrServer, detail)}, nil
	case "utteranceend":
		return frame{
			event: ports.TranscriptEvent{Kind: ports.TranscriptKindFinal, IsSpeechFinal: true},
			emit:  true,
		}, nil
	case "metadata", "speechstarted":
		return frame{}, nil
	}

	var msg resultsMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return frame{}, err
	}
	text := msg.transcript()
	final := msg.IsFinal || msg.SpeechFinal
	if text == "" && !msg.SpeechFinal {
		return frame{}, nil
	}

	kind := ports.TranscriptKindPartial
	if final {
		kind = ports.TranscriptKindFinal
	}
	return frame{
		event: ports.TranscriptEvent{Kind: kind, Text: text, IsSpeechFinal: msg.SpeechFinal},
		emit:  true,
	}, nil
}

func (m resultsMessage) transcript() string {
	for _, ch := range []channel{m.Channel, firstChannel(m.Results.Channels)} {
		if len(ch.Alternatives) == 0 {
			continue
		}
		if text := strings.TrimSpace(ch.Alternatives[0].Transcript); text != "" {
			return text
		}
	}
	return ""
}

func firstChannel(channels []channel) channel {
	if len(channels) == 0 {
		return channel{}
	}
	return channels[0]
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
