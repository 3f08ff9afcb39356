// Package logging configures the process-wide zerolog setup. Components take
// a zerolog.Logger in their constructors; this package only builds the root
// logger handed to them.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog with sane defaults and returns the root logger.
// Uses console writer for human-readable logs by default.
func Setup(level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	cw := zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
		w.TimeFormat = time.RFC3339
	})

	logger := zerolog.New(cw).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// New returns a logger writing structured JSON to out, for tests and for
// embedding hosts that capture logs themselves.
func New(out io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
