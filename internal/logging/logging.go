// Package logging builds the slog loggers used by the command line tools.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// ParseLevel maps debug|info|warn|error to a slog level. The empty string is
// info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", s)
	}
}

// New returns a tint logger writing to w. Colours are enabled only when w is
// a terminal.
func New(w io.Writer, level slog.Leveler) *slog.Logger {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
		if !noColor {
			w = colorable.NewColorable(f)
		}
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Empty errors and zero statuses are noise.
			if len(groups) == 0 {
				switch a.Key {
				case "err":
					if a.Value.Any() == nil {
						return slog.Attr{}
					}
				case "status":
					if a.Value.Kind() == slog.KindInt64 && a.Value.Int64() == 0 {
						return slog.Attr{}
					}
				}
			}
			return a
		},
	}))
}

// Setup installs a stderr logger at level as the slog default and returns it
// together with the LevelVar controlling it.
func Setup(level string) (*slog.Logger, *slog.LevelVar, error) {
	ll := &slog.LevelVar{}
	lvl, err := ParseLevel(level)
	ll.Set(lvl)
	logger := New(os.Stderr, ll)
	slog.SetDefault(logger)
	return logger, ll, err
}
