// Package logging constructs zerolog loggers. There is deliberately no
// package-level logger: components receive theirs explicitly.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls log output
type Config struct {
	Level  string
	Pretty bool
	Output io.Writer // defaults to stderr
}

// New builds a logger from config. Unknown levels fall back to info.
func New(cfg Config) zerolog.Logger {
	var out io.Writer = os.Stderr
	if cfg.Output != nil {
		out = cfg.Output
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
