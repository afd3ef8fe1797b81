package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// New builds the process logger. Pretty (console) output goes to stderr so
// parsable KEY=VALUE command output on stdout stays clean. Pretty output
// only happens when stderr is actually a terminal; piped or redirected
// stderr always gets JSON lines.
func New(level string, pretty bool) zerolog.Logger {
	isTTY := term.IsTerminal(int(os.Stderr.Fd()))
	return newLogger(level, pretty && isTTY, os.Stderr)
}

func newLogger(level string, pretty bool, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(out).With().Timestamp().Logger()
	}
	return logger.Level(parsed)
}
