// Package logger wraps zap with the judger's context conventions.
package logger

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global *Logger

// Logger wraps a zap logger with a minimum level check exposed for
// debug-gated call sites (the sandbox client logs every request at
// debug, which is too chatty for production by default).
type Logger struct {
	zap   *zap.Logger
	level zapcore.Level
}

// Config holds logger construction settings.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	OutputPath string // file path or "stdout"
	Worker     string // worker id, attached as a static field
}

// Init initializes the global logger.
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	global = l
	return nil
}

// New builds a standalone Logger instance.
func New(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     rfc3339TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	outputPath := cfg.OutputPath
	if outputPath == "" {
		outputPath = "stdout"
	}

	var ws zapcore.WriteSyncer
	if outputPath == "stdout" {
		ws = zapcore.AddSync(os.Stdout)
	} else {
		f, err := os.OpenFile(outputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		ws = zapcore.AddSync(f)
	}

	core := zapcore.NewCore(encoder, ws, level)
	opts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Worker != "" {
		opts = append(opts, zap.Fields(zap.String("worker", cfg.Worker)))
	}
	return &Logger{zap: zap.New(core, opts...), level: level}, nil
}

func rfc3339TimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format(time.RFC3339))
}

// IsDebug reports whether this logger is at debug level.
func (l *Logger) IsDebug() bool {
	return l != nil && l.level == zapcore.DebugLevel
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.zap.Sync()
}

func (l *Logger) with(ctx context.Context) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	if sid := submissionID(ctx); sid != "" {
		return l.zap.With(zap.String("sid", sid))
	}
	return l.zap
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	l.with(ctx).Debug(msg, fields...)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	l.with(ctx).Info(msg, fields...)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	l.with(ctx).Warn(msg, fields...)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	l.with(ctx).Error(msg, fields...)
}

type submissionIDKey struct{}

// WithSubmissionID attaches a submission id to ctx so every log line the
// pipeline emits for that submission carries it automatically.
func WithSubmissionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, submissionIDKey{}, sid)
}

func submissionID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(submissionIDKey{}).(string); ok {
		return v
	}
	return ""
}

// Global convenience wrappers, used by components constructed before a
// per-component logger is threaded through (process bootstrap, cmd/).

func Debug(ctx context.Context, msg string, fields ...zap.Field) { global.Debug(ctx, msg, fields...) }
func Info(ctx context.Context, msg string, fields ...zap.Field)  { global.Info(ctx, msg, fields...) }
func Warn(ctx context.Context, msg string, fields ...zap.Field)  { global.Warn(ctx, msg, fields...) }
func Error(ctx context.Context, msg string, fields ...zap.Field) { global.Error(ctx, msg, fields...) }

func Sync() error {
	return global.Sync()
}

// Get returns the process-wide logger, or a no-op logger if Init was
// never called (unit tests construct their own Logger instead).
func Get() *Logger {
	if global == nil {
		global = &Logger{zap: zap.NewNop()}
	}
	return global
}
