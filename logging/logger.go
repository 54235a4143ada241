// Package logging builds the zap logger used by every component.
package logging

import (
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger owns a *zap.Logger and the files behind it.
type Logger struct {
	*zap.Logger
	closers []io.Closer
}

// New builds a Logger from config. With FileOutput set, each level at or
// above Level gets its own rotated file.
func New(config Config) *Logger {
	config.applyDefaults()

	var (
		cores   []zapcore.Core
		closers []io.Closer
	)
	encoder := newEncoder(config)
	minLevel := config.ZapLevel()

	if config.FileOutput {
		for level := minLevel; level <= zapcore.FatalLevel; level++ {
			file := newLevelWriter(config, level.String())
			closers = append(closers, file)
			cores = append(cores, zapcore.NewCore(encoder, writeSyncer(config, file), exactly(level)))
		}
	} else if config.LogInTerminal {
		cores = append(cores, zapcore.NewCore(encoder, writeSyncer(config, nil), atLeast(minLevel)))
	}

	if len(cores) == 0 {
		return &Logger{Logger: zap.NewNop()}
	}

	zl := zap.New(zapcore.NewTee(cores...))
	if config.ShowCaller {
		zl = zl.WithOptions(zap.AddCaller())
	}
	return &Logger{Logger: zl, closers: closers}
}

// Wrap adopts an existing *zap.Logger, typically in tests.
func Wrap(zl *zap.Logger) *Logger {
	if zl == nil {
		zl = zap.NewNop()
	}
	return &Logger{Logger: zl}
}

// Close flushes and releases the log files. Sync errors are ignored since
// syncing a terminal fails on most platforms.
func (l *Logger) Close() error {
	_ = l.Sync()
	var errs []error
	for _, c := range l.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func newEncoder(config Config) zapcore.Encoder {
	ec := zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     timeEncoder(config.TimeFormat),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
	if config.Format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func timeEncoder(layout string) zapcore.TimeEncoder {
	return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format(layout))
	}
}

func exactly(level zapcore.Level) zap.LevelEnablerFunc {
	return func(l zapcore.Level) bool { return l == level }
}

func atLeast(level zapcore.Level) zap.LevelEnablerFunc {
	return func(l zapcore.Level) bool { return l >= level }
}
