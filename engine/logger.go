package engine

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the engine's default logger, used when Options carry none.
// It is a no-op logger unless SetLogger was called.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger replaces the default logger.
// This must be called before any analysis.
func SetLogger(l *zap.Logger) {
	logger = l
}

// NewLogger builds the console logger of the command line tool. It writes
// warnings to stderr, and debug output too when verbose is set.
func NewLogger(verbose bool) *zap.Logger {
	return newLogger(zapcore.Lock(os.Stderr), verbose)
}

func newLogger(w zapcore.WriteSyncer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), w, level)
	return zap.New(core)
}
