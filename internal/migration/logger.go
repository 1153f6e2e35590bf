// Package migration provides logging infrastructure for the import pipeline
package migration

import (
	"log/slog"
	"sync"

	"github.com/kitabu/kitabu-go/internal/logging"
)

var (
	migrationLogger *slog.Logger
	loggerMu        sync.RWMutex
)

// getLogger returns the package logger, falling back to the default slog
// logger when logging has not been initialized (tests).
func getLogger() *slog.Logger {
	loggerMu.RLock()
	l := migrationLogger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}

	loggerMu.Lock()
	defer loggerMu.Unlock()
	if migrationLogger == nil {
		if svc := logging.ForService("migration"); svc != nil {
			migrationLogger = svc
		} else {
			migrationLogger = slog.Default().With("service", "migration")
		}
	}
	return migrationLogger
}

// SetLogger overrides the package logger. Used by tests.
func SetLogger(l *slog.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	migrationLogger = l
}
