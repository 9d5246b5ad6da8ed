package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
)

// Options controls the console logger.
type Options struct {
	Verbose bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

// New builds a console logger backed by charmbracelet/log.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := log.InfoLevel
	if opts.Verbose {
		level = log.DebugLevel
	}

	handler := log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "costdeploy",
	})

	return slog.New(handler)
}

// Setup installs the console logger as the process default and returns it.
func Setup(opts Options) *slog.Logger {
	logger := New(opts)
	slog.SetDefault(logger)
	return logger
}
