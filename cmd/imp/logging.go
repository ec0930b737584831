package main

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/imp-lang/imp/pkg/config"
)

// newLogger builds the CLI logger: human-readable console output by default,
// one JSON object per line when requested. Flags override the config.
func newLogger(w io.Writer, cfg config.LogConfig, flags logFlags) (zerolog.Logger, error) {
	if flags.level != "" {
		cfg.Level = flags.level
	}
	if flags.json {
		cfg.JSON = true
	}

	level, err := cfg.ZerologLevel()
	if err != nil {
		return zerolog.Nop(), err
	}
	if level == zerolog.NoLevel {
		level = zerolog.WarnLevel
	}

	if !cfg.JSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
