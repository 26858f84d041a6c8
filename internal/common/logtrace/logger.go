// Package logtrace configures the process-wide zerolog logger.
package logtrace

import (
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger installs the global logger writing to stderr with Unix millisecond
// timestamps. pretty switches to zerolog's console writer for interactive use.
// Every record carries the run id so the lines of one process can be told apart
// when a session manager collects the output of several clients.
func InitLogger(level string, pretty bool) string {
	var out io.Writer = os.Stderr
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	}
	return initLogger(out, level)
}

func initLogger(out io.Writer, level string) string {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	runID := NewRunID()
	log.Logger = zerolog.New(out).With().Timestamp().Str("run_id", runID).Logger()
	return runID
}

// NewRunID returns a time-ordered identifier for this process.
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Component returns a sub-logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
