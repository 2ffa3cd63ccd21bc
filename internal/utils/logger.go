package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger writes human-readable lines to the console and, optionally, JSON lines
// to a log file.
type Logger struct {
	sugar *zap.SugaredLogger
	file  *os.File
}

type LoggerOptions struct {
	// Verbose enables debug lines (per-file diagnostics).
	Verbose bool
	// File, when set, also receives every line as JSON.
	File string
	// Out defaults to os.Stdout.
	Out io.Writer
}

func NewLogger(opts LoggerOptions) (*Logger, error) {
	level := zapcore.InfoLevel
	if opts.Verbose {
		level = zapcore.DebugLevel
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000000")
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(out), level),
	}

	var file *os.File
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		file = f
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(f), level))
	}

	return &Logger{
		sugar: zap.New(zapcore.NewTee(cores...)).Sugar(),
		file:  file,
	}, nil
}

// NewNopLogger discards everything.
func NewNopLogger() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

func (l *Logger) LogInfo(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

func (l *Logger) LogWarn(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

func (l *Logger) LogError(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

func (l *Logger) LogDebug(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

// Desugar exposes the structured logger for libraries that take a *zap.Logger.
func (l *Logger) Desugar() *zap.Logger {
	return l.sugar.Desugar()
}

func (l *Logger) Close() error {
	_ = l.sugar.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
