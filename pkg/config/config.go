// Package config loads imp's layered TOML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

// ProjectFile is looked up in the working directory.
const ProjectFile = ".imp.toml"

// Color modes for REPL error output.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config is the merged configuration.
type Config struct {
	REPL   REPLConfig   `toml:"repl"`
	Log    LogConfig    `toml:"log"`
	Limits LimitsConfig `toml:"limits"`
}

type REPLConfig struct {
	Prompt         string `toml:"prompt"`
	ContinuePrompt string `toml:"continue_prompt"`
	InputPrompt    string `toml:"input_prompt"`
	HistoryFile    string `toml:"history_file"`
	Color          string `toml:"color"`
	Banner         bool   `toml:"banner"`
}

type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

type LimitsConfig struct {
	// MaxIterations caps loop iterations per top-level statement; 0 is unlimited.
	MaxIterations int64 `toml:"max_iterations"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		REPL: REPLConfig{
			Prompt:         ">>>  ",
			ContinuePrompt: "... ",
			InputPrompt:    "",
			HistoryFile:    filepath.Join(Dir(), "history"),
			Color:          ColorAuto,
			Banner:         true,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Dir is the per-user configuration directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "imp")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".imp")
	}
	return filepath.Join(home, ".config", "imp")
}

// Load reads configuration with precedence: project (.imp.toml in
// projectDir) → user (Dir()/config.toml) → defaults. The first file found
// wins; keys it leaves out keep their default. The returned path is empty
// when no file was found. A file that exists but does not parse is an error.
func Load(projectDir string) (Config, string, error) {
	candidates := []string{
		filepath.Join(projectDir, ProjectFile),
		filepath.Join(Dir(), "config.toml"),
	}

	var accumulated error
	for _, path := range candidates {
		cfg, err := LoadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				return Config{}, "", err
			}
			accumulated = errors.Join(accumulated, err)
			continue
		}
		return cfg, path, nil
	}

	if accumulated != nil {
		return Config{}, "", accumulated
	}
	return Default(), "", nil
}

// ParseError reports a configuration file that could not be decoded or
// failed validation.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse config %q: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// LoadFile decodes one TOML file over the defaults.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}
	cfg, err := Decode(data)
	if err != nil {
		return Config{}, &ParseError{Path: path, Err: err}
	}
	return cfg, nil
}

// Decode parses TOML over the defaults and validates the result.
func Decode(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated and numeric fields.
func (c Config) Validate() error {
	switch c.REPL.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("repl.color must be %q, %q or %q, got %q", ColorAuto, ColorAlways, ColorNever, c.REPL.Color)
	}
	if _, err := c.Log.ZerologLevel(); err != nil {
		return err
	}
	if c.Limits.MaxIterations < 0 {
		return fmt.Errorf("limits.max_iterations must not be negative, got %d", c.Limits.MaxIterations)
	}
	return nil
}

// ZerologLevel parses Level.
func (c LogConfig) ZerologLevel() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// Encode renders cfg as TOML, used by `imp config`.
func Encode(cfg Config) ([]byte, error) {
	return toml.Marshal(cfg)
}
