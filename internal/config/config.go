package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EngineDeepgram = "deepgram"
	EngineAzure    = "azure"
)

// Config stores runtime configuration. Values resolve from defaults, then the
// optional YAML file, then environment variables.
type Config struct {
	Engine      EngineConfig      `yaml:"engine"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Session     SessionConfig     `yaml:"session"`
	Deepgram    DeepgramConfig    `yaml:"deepgram"`
	Azure       AzureConfig       `yaml:"azure"`
	Audio       AudioConfig       `yaml:"audio"`
	Log         LogConfig         `yaml:"log"`

	// Path is the config file that was read, empty when none existed.
	Path string `yaml:"-"`
}

type EngineConfig struct {
	Provider string `yaml:"provider"`
}

type RecognitionConfig struct {
	Locale           string `yaml:"locale"`
	FreeFormModel    bool   `yaml:"free_form_model"`
	PartialResults   bool   `yaml:"partial_results"`
	MinLengthMs      int    `yaml:"min_length_ms"`
	SilenceTimeoutMs int    `yaml:"silence_timeout_ms"`
}

type SessionConfig struct {
	Continuous   bool          `yaml:"continuous"`
	StaleAfter   time.Duration `yaml:"stale_after"`
	ChunkSize    int           `yaml:"chunk_size"`
	DrainTimeout time.Duration `yaml:"drain_timeout"`
}

type DeepgramConfig struct {
	APIKey      string `yaml:"api_key"`
	APIBaseURL  string `yaml:"api_base_url"`
	Model       string `yaml:"model"`
	SmartFormat bool   `yaml:"smart_format"`
}

type AzureConfig struct {
	SubscriptionKey string `yaml:"subscription_key"`
	Region          string `yaml:"region"`
}

type AudioConfig struct {
	RecorderCommand string `yaml:"recorder_command"`
	InputFormat     string `yaml:"input_format"`
	InputDevice     string `yaml:"input_device"`
	SampleRate      int    `yaml:"sample_rate"`
	Channels        int    `yaml:"channels"`
}

type LogConfig struct {
	Verbose bool `yaml:"verbose"`
	JSON    bool `yaml:"json"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Engine: EngineConfig{Provider: EngineDeepgram},
		Recognition: RecognitionConfig{
			Locale:           "en-US",
			FreeFormModel:    true,
			PartialResults:   true,
			MinLengthMs:      120000,
			SilenceTimeoutMs: 8000,
		},
		Session: SessionConfig{
			Continuous:   false,
			StaleAfter:   10 * time.Second,
			ChunkSize:    4096,
			DrainTimeout: 4 * time.Second,
		},
		Deepgram: DeepgramConfig{
			APIBaseURL:  "https://api.deepgram.com/v1",
			Model:       "nova-2",
			SmartFormat: true,
		},
		Audio: AudioConfig{
			RecorderCommand: "ffmpeg",
			InputFormat:     "pulse",
			InputDevice:     "default",
			SampleRate:      16000,
			Channels:        1,
		},
	}
}

// Load resolves configuration from defaults, the config file and environment variables.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	cfg := Default()

	explicitPath := strings.TrimSpace(os.Getenv("WORDCAST_CONFIG"))
	path := explicitPath
	if path == "" {
		path = filepath.Join(home, ".config", "wordcast", "config.yaml")
	}
	if err := loadFile(path, explicitPath != "", &cfg); err != nil {
		return Config{}, err
	}

	applyEnv(&cfg)
	normalize(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration that cannot run.
func (c Config) Validate() error {
	switch c.Engine.Provider {
	case EngineDeepgram, EngineAzure:
	default:
		return fmt.Errorf("unknown engine %q (expected %q or %q)", c.Engine.Provider, EngineDeepgram, EngineAzure)
	}
	if strings.TrimSpace(c.Recognition.Locale) == "" {
		return errors.New("recognition locale must not be empty")
	}
	return nil
}

func loadFile(path string, required bool, cfg *Config) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	cfg.Path = path
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Engine.Provider = strings.ToLower(envOrDefault("WORDCAST_ENGINE", cfg.Engine.Provider))

	cfg.Recognition.Locale = envOrDefault("WORDCAST_LOCALE", cfg.Recognition.Locale)
	cfg.Recognition.FreeFormModel = envOrDefaultBool("WORDCAST_FREE_FORM_MODEL", cfg.Recognition.FreeFormModel)
	cfg.Recognition.PartialResults = envOrDefaultBool("WORDCAST_PARTIAL_RESULTS", cfg.Recognition.PartialResults)
	cfg.Recognition.MinLengthMs = firstNonNegativeInt("WORDCAST_MIN_LENGTH_MS", "", cfg.Recognition.MinLengthMs)
	cfg.Recognition.SilenceTimeoutMs = firstNonNegativeInt("WORDCAST_SILENCE_TIMEOUT_MS", "", cfg.Recognition.SilenceTimeoutMs)

	cfg.Session.Continuous = envOrDefaultBool("WORDCAST_CONTINUOUS", cfg.Session.Continuous)
	cfg.Session.StaleAfter = time.Duration(firstNonNegativeInt("WORDCAST_STALE_AFTER_MS", "", int(cfg.Session.StaleAfter/time.Millisecond))) * time.Millisecond
	cfg.Session.ChunkSize = envOrDefaultInt("WORDCAST_AUDIO_CHUNK_SIZE", cfg.Session.ChunkSize)
	cfg.Session.DrainTimeout = time.Duration(firstNonNegativeInt("WORDCAST_DRAIN_TIMEOUT_MS", "DEEPGRAM_DRAIN_TIMEOUT_MS", int(cfg.Session.DrainTimeout/time.Millisecond))) * time.Millisecond

	cfg.Deepgram.APIKey = envOrDefault("DEEPGRAM_API_KEY", cfg.Deepgram.APIKey)
	cfg.Deepgram.APIBaseURL = envOrDefault("DEEPGRAM_API_BASE", cfg.Deepgram.APIBaseURL)
	cfg.Deepgram.Model = envOrDefault("DEEPGRAM_MODEL", cfg.Deepgram.Model)
	cfg.Deepgram.SmartFormat = envOrDefaultBool("DEEPGRAM_SMART_FORMAT", cfg.Deepgram.SmartFormat)

	cfg.Azure.SubscriptionKey = envOrDefault("AZURE_SPEECH_KEY", cfg.Azure.SubscriptionKey)
	cfg.Azure.Region = envOrDefault("AZURE_SPEECH_REGION", cfg.Azure.Region)

	cfg.Audio.RecorderCommand = envOrDefault("WORDCAST_FFMPEG_COMMAND", cfg.Audio.RecorderCommand)
	cfg.Audio.InputFormat = envOrDefault("WORDCAST_AUDIO_INPUT_FORMAT", cfg.Audio.InputFormat)
	cfg.Audio.InputDevice = firstNonEmpty(
		os.Getenv("WORDCAST_AUDIO_INPUT_DEVICE"),
		os.Getenv("DEEPGRAM_PULSE_SOURCE"),
		cfg.Audio.InputDevice,
		"default",
	)
	cfg.Audio.SampleRate = envOrDefaultInt("WORDCAST_SAMPLE_RATE", cfg.Audio.SampleRate)
	cfg.Audio.Channels = envOrDefaultInt("WORDCAST_CHANNELS", cfg.Audio.Channels)

	cfg.Log.Verbose = envOrDefaultBool("WORDCAST_LOG_VERBOSE", cfg.Log.Verbose)
	cfg.Log.JSON = envOrDefaultBool("WORDCAST_LOG_JSON", cfg.Log.JSON)
}

func normalize(cfg *Config) {
	if cfg.Engine.Provider == "" {
		cfg.Engine.Provider = EngineDeepgram
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 4096
	}
	if cfg.Session.StaleAfter < 0 {
		cfg.Session.StaleAfter = 0
	}
	if cfg.Session.DrainTimeout <= 0 {
		cfg.Session.DrainTimeout = 4 * time.Second
	}
	if cfg.Recognition.MinLengthMs < 0 {
		cfg.Recognition.MinLengthMs = 0
	}
	if cfg.Recognition.SilenceTimeoutMs < 0 {
		cfg.Recognition.SilenceTimeoutMs = 0
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func firstNonNegativeInt(primary string, secondary string, fallback int) int {
	for _, key := range []string{primary, secondary} {
		if key == "" {
			continue
		}
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err == nil && parsed >= 0 {
			return parsed
		}
	}
	return fallback
}
