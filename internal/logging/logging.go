// Package logging builds the zerolog logger shared by the CLI and the demuxer.
package logging

import (
	"io"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/llehouerou/vorbisdemux/internal/config"
)

// New returns a logger writing to w at the configured level. Console output
// is human-readable; otherwise each event is one JSON line.
func New(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	out := w
	if cfg.Console == nil || *cfg.Console {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: !isTerminal(w)}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

type fder interface {
	Fd() uintptr
}

// isTerminal reports whether w looks like an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(fder)
	return ok && isatty.IsTerminal(f.Fd())
}
