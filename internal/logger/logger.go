// Package logger holds the process-wide zerolog logger used by the CLI
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level string `yaml:"level"`
	// Output is "stderr" (default) or "stdout"
	Output string `yaml:"output"`
	// Console switches from JSON lines to human-readable output
	Console bool `yaml:"console"`
}

var global = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Init replaces the global logger. Stdout stays free for command output
// unless Output asks for it.
func Init(cfg Config) error {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return err
		}
		level = parsed
	}

	var out io.Writer = os.Stderr
	if cfg.Output == "stdout" {
		out = os.Stdout
	}
	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	global = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return nil
}

func GetLogger() zerolog.Logger {
	return global
}

// WithComponent tags log lines with the emitting part of the program
func WithComponent(component string) zerolog.Logger {
	return global.With().Str("component", component).Logger()
}

// NewTestLogger returns a logger that discards everything
func NewTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard).Level(zerolog.Disabled)
}
