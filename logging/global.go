package logging

import (
	"sync"

	"go.uber.org/zap"
)

var (
	globalMu     sync.RWMutex
	globalLogger = zap.NewNop()
)

// Global returns the process logger. It is a no-op logger until SetGlobal.
func Global() *zap.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// SetGlobal replaces the process logger and zap's globals. It returns a
// function restoring the previous logger.
func SetGlobal(logger *zap.Logger) func() {
	if logger == nil {
		logger = zap.NewNop()
	}
	globalMu.Lock()
	prev := globalLogger
	globalLogger = logger
	globalMu.Unlock()

	undo := zap.ReplaceGlobals(logger)
	return func() {
		undo()
		globalMu.Lock()
		globalLogger = prev
		globalMu.Unlock()
	}
}
