// Package logger provides the process-wide zap logger used by the block
// layer, the page codec and the blockctl CLI.
package logger

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
)

var globalLogger atomic.Pointer[zap.Logger]

// contextKey is the type for context keys
type contextKey string

const (
	// ExchangeIDKey is the context key for the exchange a page belongs to
	ExchangeIDKey contextKey = "exchange_id"
	// TaskIDKey is the context key for the producing or consuming task
	TaskIDKey contextKey = "task_id"
)

// Config represents logger configuration
type Config struct {
	Level       string   `yaml:"level"`
	Development bool     `yaml:"development"`
	Encoding    string   `yaml:"encoding"` // json or console
	OutputPaths []string `yaml:"output_paths"`
}

// Init builds a logger from cfg and installs it globally.
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	globalLogger.Store(l)
	return nil
}

// New builds a zap logger from cfg without installing it.
func New(cfg Config) (*zap.Logger, error) {
	levelName := cfg.Level
	if levelName == "" {
		levelName = "info"
	}
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid log level").
			WithDetail("level", cfg.Level)
	}

	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "json"
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if cfg.Development {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	// stdout carries CLI output, so logs default to stderr.
	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stderr"}
	}

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Development,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	l, err := zapCfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to build logger")
	}
	if cfg.Development {
		l = l.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return l, nil
}

// Set installs l as the global logger. Tests use it with zaptest.
func Set(l *zap.Logger) {
	globalLogger.Store(l)
}

// Get returns the global logger, creating an info-level JSON logger on
// first use.
func Get() *zap.Logger {
	if l := globalLogger.Load(); l != nil {
		return l
	}
	l, err := New(Config{Level: "info", Encoding: "json"})
	if err != nil {
		l = zap.NewNop()
	}
	globalLogger.CompareAndSwap(nil, l)
	return globalLogger.Load()
}

// ContextWithExchange tags ctx with an exchange id.
func ContextWithExchange(ctx context.Context, exchangeID string) context.Context {
	return context.WithValue(ctx, ExchangeIDKey, exchangeID)
}

// ContextWithTask tags ctx with a task id.
func ContextWithTask(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, TaskIDKey, taskID)
}

// WithContext returns the global logger annotated with the ids in ctx.
func WithContext(ctx context.Context) *zap.Logger {
	return Annotate(ctx, Get())
}

// Annotate adds the exchange and task ids carried by ctx to l.
func Annotate(ctx context.Context, l *zap.Logger) *zap.Logger {
	if exchangeID, ok := ctx.Value(ExchangeIDKey).(string); ok {
		l = l.With(zap.String("exchange_id", exchangeID))
	}
	if taskID, ok := ctx.Value(TaskIDKey).(string); ok {
		l = l.With(zap.String("task_id", taskID))
	}
	return l
}

// Sync flushes any buffered log entries
func Sync() error {
	if l := globalLogger.Load(); l != nil {
		return l.Sync()
	}
	return nil
}
