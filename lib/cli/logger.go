package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger creates the structured logger used for progress and
// verbose output. Command results go to stdout as plain text; anything
// diagnostic (transfer strategy selection, hash verification, poll
// diagnostics) goes through this logger to stderr.
//
// On a terminal the output is human-readable text; when stderr is
// piped (CI, calling agents) it switches to JSON. Verbose drops the
// level to Debug.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}
