// Package logging builds the zerolog loggers used across the relay.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Options controls logger construction.
type Options struct {
	Level  string
	Format string
	Writer io.Writer
}

// New builds a logger and installs it as the zerolog package logger.
func New(opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if strings.TrimSpace(opts.Level) != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", FormatJSON:
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q (want %s or %s)", opts.Format, FormatJSON, FormatConsole)
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return logger, nil
}

// ForRun returns a child logger tagged with one invocation's identity.
func ForRun(base zerolog.Logger, runID, eventName, action string, number int) zerolog.Logger {
	ctx := base.With().Str("run_id", runID)
	if eventName != "" {
		ctx = ctx.Str("event_name", eventName)
	}
	if action != "" {
		ctx = ctx.Str("action", action)
	}
	if number > 0 {
		ctx = ctx.Int("pr", number)
	}
	return ctx.Logger()
}
