package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileLogger writes JSON lines to a file through zap. The dashboard uses it
// because stdout and stderr belong to the terminal UI while it runs.
type FileLogger struct {
	sugar *zap.SugaredLogger
	file  *os.File
}

// NewFileLogger opens (or creates) path in append mode and returns a logger
// writing to it. Debug messages are dropped unless debug is true.
func NewFileLogger(path string, debug bool) (*FileLogger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(f),
		level,
	)

	return &FileLogger{
		sugar: zap.New(core).Sugar(),
		file:  f,
	}, nil
}

func (l *FileLogger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *FileLogger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *FileLogger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *FileLogger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// Close flushes buffered entries and closes the file.
func (l *FileLogger) Close() error {
	// Sync on a regular file only fails if the write itself failed.
	_ = l.sugar.Sync()
	return l.file.Close()
}
