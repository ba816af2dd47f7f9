// Package logging provides the robot's application logger.
//
// Components depend on the small printf-style Logger interface. The
// implementation is a zap SugaredLogger writing human-readable lines to stderr
// and JSON lines to the log file, so an operator watching the console and a
// support engineer reading the file see the same events.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging surface used across the robot.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// With returns a logger that adds key/value pairs to every entry.
	With(keysAndValues ...interface{}) Logger
}

// Options configures New.
type Options struct {
	// Level is debug, info, warn or error.
	Level string

	// File receives JSON entries. Empty disables file output.
	File string

	// Console receives human-readable entries. Nil disables console output,
	// which the terminal UI needs since it owns the screen.
	Console io.Writer
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a Logger and returns a closer that flushes and closes the file.
func New(opts Options) (Logger, func() error, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level: %w", err)
	}

	var cores []zapcore.Core
	var file *os.File

	if opts.Console != nil {
		consoleConfig := zapcore.EncoderConfig{
			TimeKey:          "time",
			LevelKey:         "level",
			MessageKey:       "message",
			EncodeTime:       zapcore.TimeEncoderOfLayout("15:04:05"),
			EncodeLevel:      zapcore.CapitalLevelEncoder,
			ConsoleSeparator: " ",
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleConfig),
			zapcore.AddSync(opts.Console),
			level,
		))
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		file, err = os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		fileConfig := zapcore.EncoderConfig{
			TimeKey:     "timestamp",
			LevelKey:    "level",
			MessageKey:  "message",
			EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
			EncodeLevel: zapcore.LowercaseLevelEncoder,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileConfig),
			zapcore.AddSync(file),
			level,
		))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	closer := func() error {
		_ = logger.Sync()
		if file != nil {
			return file.Close()
		}
		return nil
	}

	return &zapLogger{sugar: logger.Sugar()}, closer, nil
}

// NewWriter builds a logger writing JSON entries to w. Used by tests.
func NewWriter(w io.Writer, level zapcore.Level) Logger {
	encoderConfig := zapcore.EncoderConfig{
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(w), level)
	return &zapLogger{sugar: zap.New(core).Sugar()}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &zapLogger{sugar: zap.NewNop().Sugar()}
}

func (l *zapLogger) Debug(msg string, args ...interface{}) { l.sugar.Debugf(msg, args...) }
func (l *zapLogger) Info(msg string, args ...interface{})  { l.sugar.Infof(msg, args...) }
func (l *zapLogger) Warn(msg string, args ...interface{})  { l.sugar.Warnf(msg, args...) }
func (l *zapLogger) Error(msg string, args ...interface{}) { l.sugar.Errorf(msg, args...) }

func (l *zapLogger) With(keysAndValues ...interface{}) Logger {
	return &zapLogger{sugar: l.sugar.With(keysAndValues...)}
}
