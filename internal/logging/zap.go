package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	HostCLI     = "cli"
	HostDesktop = "desktop"
)

type Options struct {
	Verbose bool
	JSON    bool
	// Host tags every entry with the front end that owns the session.
	Host string
	// NoColor drops ANSI level colors, for stderr that is not a terminal.
	NoColor bool
	// Output defaults to stderr so stdout stays free for transcript text.
	Output zapcore.WriteSyncer
}

func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	out := opts.Output
	if out == nil {
		out = zapcore.Lock(os.Stderr)
	}

	core := zapcore.NewCore(newEncoder(opts), out, zap.NewAtomicLevelAt(level))

	zapOpts := []zap.Option{zap.ErrorOutput(zapcore.Lock(os.Stderr))}
	if opts.Verbose {
		zapOpts = append(zapOpts, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	}

	fields := []zap.Field{zap.String("app", "wordcast")}
	if opts.Host != "" {
		fields = append(fields, zap.String("host", opts.Host))
	}
	return zap.New(core, zapOpts...).With(fields...), nil
}

func newEncoder(opts Options) zapcore.Encoder {
	if opts.JSON {
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(cfg)
	}

	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	cfg.CallerKey = ""
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if opts.NoColor {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return zapcore.NewConsoleEncoder(cfg)
}
