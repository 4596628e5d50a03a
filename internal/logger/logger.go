package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const appName = "recruit-bot"

// Options control the root logger.
type Options struct {
	JSON  bool
	Debug bool
	// Output is a zap sink path. Empty means stdout.
	Output  string
	Version string
}

func New(json bool, debug bool) (*zap.Logger, error) {
	return Build(Options{JSON: json, Debug: debug})
}

// Build creates the root logger. Every entry carries the app name, and the
// version when known.
func Build(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	encoding := "console"
	if opts.JSON {
		encoding = "json"
	}

	output := opts.Output
	if output == "" {
		output = "stdout"
	}

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
		// Stacktraces only in json mode.
		DisableStacktrace: !opts.JSON,
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:     "step",
			LevelKey:       "level",
			TimeKey:        "time",
			CallerKey:      "caller",
			NameKey:        "component",
			StacktraceKey:  "stacktrace",
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.RFC3339TimeEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeName:     zapcore.FullNameEncoder,
		},
	}

	fields := []zap.Field{zap.String("app", appName)}
	if opts.Version != "" {
		fields = append(fields, zap.String("version", opts.Version))
	}

	return cfg.Build(zap.Fields(fields...))
}

// TruncateForLog trims s and cuts it to limit runes, marking the cut with an
// ellipsis.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	if runes := []rune(s); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return s
}
