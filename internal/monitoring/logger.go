// Package monitoring provides the shared diagnostic logger for the SDK.
//
// All packages log through the zerolog logger held here so that an
// embedding application can redirect or mute SDK output with a single
// call to SetLogger.
package monitoring

import (
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var logger atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	logger.Store(&l)
}

// Logger returns the current package logger.
func Logger() zerolog.Logger {
	return *logger.Load()
}

// SetLogger replaces the package logger.
func SetLogger(l zerolog.Logger) {
	logger.Store(&l)
}

// Mute silences all SDK logging. Intended for tests.
func Mute() {
	SetLogger(zerolog.New(io.Discard))
}
