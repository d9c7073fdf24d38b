// Package nlog provides the structured logging used throughout julea.
package nlog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the package-level logger. Init configures it; until then it
// logs at info level to stderr.
var Logger = zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()

// Config controls Init.
type Config struct {
	Level      string // "debug", "info", "warn", "error"
	JSONOutput bool
	Output     io.Writer
}

// Init (re)configures the package-level Logger.
func Init(cfg Config) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.JSONOutput {
		Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
}

// WithComponent returns a child logger tagged with the given component name.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}
