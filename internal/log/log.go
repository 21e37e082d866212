// Package log provides structured logging for the collectors and command runner.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	// Console writer on stderr so stdout stays reserved for the report
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    false,
	}

	logger = zerolog.New(output).
		With().
		Timestamp().
		Logger()

	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if level, err := zerolog.ParseLevel(lvl); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	}
}

// SetOutput sets the logger output destination
func SetOutput(w io.Writer) {
	logger = logger.Output(w)
}

// SetLevel sets the global log level
func SetLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

// Degraded records a fact that fell back to its unavailable value.
func Degraded(check string, err error) {
	logger.Debug().Str("check", check).Err(err).Msg("fact degraded")
}

// Command records an external command invocation.
func Command(name string, exitCode int, timedOut bool, elapsed time.Duration) {
	logger.Debug().
		Str("command", name).
		Int("exit_code", exitCode).
		Bool("timed_out", timedOut).
		Dur("elapsed", elapsed).
		Msg("command finished")
}
