// Package diag sets up the diagnostic sink the splitter and emitter log
// warnings and structural notices through (spec section 7's partial-data
// handling: alignment fallbacks, extabindex cross-unit notices, and the
// other "warn and continue" cases). Grounded on cmd/cpu/debug.go's color
// vocabulary (colorWarning/colorError New(color.Fg...) definitions) fed
// through a plain log/slog.Logger the way other_examples' slog-based
// tools do, fanned out with samber/slog-multi so a run can log to the
// console and to a file simultaneously.
package diag

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	slogmulti "github.com/samber/slog-multi"
)

var (
	colorInfo    = color.New(color.FgGreen)
	colorWarning = color.New(color.FgYellow)
	colorError   = color.New(color.FgRed, color.Bold)
)

// consoleHandler renders records the way cmd/cpu's debugger prints
// diagnostics: a colorized level tag followed by the plain message, no
// structured-field dump.
type consoleHandler struct {
	w     io.Writer
	level slog.Level
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	tag := colorWarning.Sprint("warning:")
	if r.Level >= slog.LevelError {
		tag = colorError.Sprint("error:")
	} else if r.Level < slog.LevelWarn {
		tag = colorInfo.Sprint("info:")
	}
	_, err := io.WriteString(h.w, tag+" "+r.Message+"\n")
	return err
}

func (h *consoleHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *consoleHandler) WithGroup(_ string) slog.Handler      { return h }

// New builds the logger every splitter and emitter entry point uses for
// non-fatal diagnostics. When logPath is non-empty, records also fan out
// to a plain-text handler writing there, so a batch run keeps a durable
// record of every warning raised during the split.
func New(logPath string) (*slog.Logger, error) {
	handlers := []slog.Handler{&consoleHandler{w: os.Stderr, level: slog.LevelInfo}}

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return slog.New(slogmulti.Fanout(handlers...)), nil
}

// Default is the logger used wherever a caller has no explicit *slog.Logger
// of its own (e.g. library entry points exercised directly from tests).
var Default = slog.New(&consoleHandler{w: os.Stderr, level: slog.LevelInfo})
