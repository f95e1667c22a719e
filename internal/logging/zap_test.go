package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		debugOn bool
	}{
		{name: "console info", opts: Options{}, debugOn: false},
		{name: "console debug", opts: Options{Verbose: true}, debugOn: true},
		{name: "json info", opts: Options{JSON: true}, debugOn: false},
		{name: "json debug", opts: Options{Verbose: true, JSON: true}, debugOn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.opts)
			require.NoError(t, err)
			require.NotNil(t, logger)
			require.Equal(t, tt.debugOn, logger.Core().Enabled(zapcore.DebugLevel))
			require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
		})
	}
}

func TestNewJSONTagsAppAndHost(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{JSON: true, Host: HostDesktop, Output: zapcore.AddSync(&buf)})
	require.NoError(t, err)

	logger.Info("listening", zap.String("utterance", "u-1"))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "listening", entry["msg"])
	require.Equal(t, "wordcast", entry["app"])
	require.Equal(t, HostDesktop, entry["host"])
	require.Equal(t, "u-1", entry["utterance"])
}

func TestNewConsoleWithoutColor(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Host: HostCLI, NoColor: true, Output: zapcore.AddSync(&buf)})
	require.NoError(t, err)

	logger.Warn("recognition start rejected")
	require.NoError(t, logger.Sync())

	out := buf.String()
	require.Contains(t, out, "WARN")
	require.Contains(t, out, "recognition start rejected")
	require.Contains(t, out, `"host": "cli"`)
	require.NotContains(t, out, "\x1b[")
}
