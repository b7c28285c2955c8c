package longpoll

import (
	"sync/atomic"

	"github.com/go-logr/logr"
)

var logger atomic.Value

func init() {
	logger.Store(logr.Discard())
}

// SetLogger replaces the package logger. It may be called at any time.
func SetLogger(l logr.Logger) {
	logger.Store(l)
}

func log() logr.Logger {
	return logger.Load().(logr.Logger)
}
