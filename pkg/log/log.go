package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// InitLogger replaces the process logger. Debug mode uses the development
// encoder at debug level; otherwise JSON at info level. Extra paths are used
// as output sinks instead of stderr (e.g. a file while the TUI owns the terminal).
func InitLogger(debug bool, paths ...string) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if len(paths) > 0 {
		cfg.OutputPaths = paths
		cfg.ErrorOutputPaths = paths
	}

	l, err := cfg.Build()
	if err != nil {
		l = zap.NewExample()
		l.Warn("failed to build logger, using fallback", zap.Error(err))
	}
	mu.Lock()
	logger = l
	mu.Unlock()
}

// current returns the installed logger.
func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(msg string, fields ...zap.Field) { current().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { current().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { current().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { current().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { current().Fatal(msg, fields...) }

func Sync() error {
	return current().Sync()
}
