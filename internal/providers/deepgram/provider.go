package deepgram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wordcast/internal/ports"
)

const (
	defaultBaseURL   = "https://api.deepgram.com/v1"
	defaultModel     = "nova-2"
	defaultKeepAlive = 5 * time.Second

	// Deepgram rejects utterance_end_ms below one second.
	minUtteranceEndMs = 1000
)

var ErrMissingAPIKey = errors.New("DEEPGRAM_API_KEY is not configured")

// Config controls the Deepgram live transcription connection.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	SmartFormat bool
	// KeepAlive is how long the socket may go without audio before a KeepAlive
	// message is sent. Negative disables keepalives.
	KeepAlive time.Duration
}

// Provider implements ports.TranscriptionProvider over the Deepgram listen websocket.
type Provider struct {
	cfg    Config
	log    *zap.Logger
	dialer *websocket.Dialer
}

func NewProvider(cfg Config, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		cfg.APIBaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = defaultKeepAlive
	}
	return &Provider{
		cfg: cfg,
		log: log.Named("deepgram"),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

func (p *Provider) StartStreaming(ctx context.Context, cfg ports.StreamingConfig) (ports.StreamingSession, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	wsURL, err := buildListenURL(p.cfg, cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.cfg.APIKey)

	conn, resp, err := p.dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("deepgram handshake failed (%s): %w", resp.Status, err)
		}
		return nil, fmt.Errorf("deepgram connect: %w", err)
	}
	if resp != nil {
		p.log.Debug("connected",
			zap.String("request_id", resp.Header.Get("dg-request-id")),
			zap.String("language", cfg.Language),
			zap.Bool("interim_results", cfg.InterimResults),
		)
	}

	session := newListenSession(conn, p.log, p.cfg.KeepAlive)
	go func() {
		select {
		case <-ctx.Done():
			_ = session.Close()
		case <-session.done:
		}
	}()
	return session, nil
}

func buildListenURL(providerCfg Config, streamCfg ports.StreamingConfig) (string, error) {
	base := strings.TrimSpace(providerCfg.APIBaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	listenURL, err := url.Parse(strings.TrimRight(base, "/") + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	encoding := streamCfg.Encoding
	if encoding == "" {
		encoding = "linear16"
	}
	sampleRate := streamCfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	channels := streamCfg.Channels
	if channels <= 0 {
		channels = 1
	}

	query := url.Values{}
	query.Set("model", providerCfg.Model)
	query.Set("encoding", encoding)
	query.Set("sample_rate", strconv.Itoa(sampleRate))
	query.Set("channels", strconv.Itoa(channels))
	query.Set("interim_results", strconv.FormatBool(streamCfg.InterimResults))
	query.Set("smart_format", strconv.FormatBool(providerCfg.SmartFormat))
	if streamCfg.Language != "" {
		query.Set("language", streamCfg.Language)
	}
	if streamCfg.Dictation {
		query.Set("dictation", "true")
		query.Set("punctuate", "true")
	}
	if streamCfg.EndpointingMs > 0 {
		query.Set("endpointing", strconv.Itoa(streamCfg.EndpointingMs))
		// utterance_end_ms only works together with interim results.
		if streamCfg.InterimResults {
			query.Set("utterance_end_ms", strconv.Itoa(max(streamCfg.EndpointingMs, minUtteranceEndMs)))
			query.Set("vad_events", "true")
		}
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
