package workspace

import (
	"context"
	"log/slog"

	"github.com/chrimage/content-mill/internal/logging"
)

// runLogHandler sends each record to the console handler when its level
// passes there, and to the run log at any level the file accepts. Run log
// lines always carry the run id, including lines logged before the pipeline
// attaches one, so several run.log files can be concatenated and filtered.
type runLogHandler struct {
	console  slog.Handler
	file     slog.Handler
	runID    string
	hasRunID bool
}

func newRunLogHandler(console, file slog.Handler, runID string) slog.Handler {
	if _, noop := console.(logging.NoopHandler); noop {
		console = nil
	}
	return &runLogHandler{console: console, file: file, runID: runID, hasRunID: runID == ""}
}

func (h *runLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.file.Enabled(ctx, level) {
		return true
	}
	return h.console != nil && h.console.Enabled(ctx, level)
}

func (h *runLogHandler) Handle(ctx context.Context, record slog.Record) error {
	var consoleErr error
	if h.console != nil && h.console.Enabled(ctx, record.Level) {
		consoleErr = h.console.Handle(ctx, record.Clone())
	}
	if !h.file.Enabled(ctx, record.Level) {
		return consoleErr
	}
	if !h.hasRunID && !recordHas(record, logging.FieldRunID) {
		record = record.Clone()
		record.AddAttrs(slog.String(logging.FieldRunID, h.runID))
	}
	if err := h.file.Handle(ctx, record); err != nil {
		return err
	}
	return consoleErr
}

func (h *runLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	if next.console != nil {
		next.console = h.console.WithAttrs(attrs)
	}
	next.file = h.file.WithAttrs(attrs)
	for _, a := range attrs {
		if a.Key == logging.FieldRunID {
			next.hasRunID = true
		}
	}
	return &next
}

// WithGroup nests later attributes, so a run id added after it would land
// inside the group; the run log records its own at the top level instead.
func (h *runLogHandler) WithGroup(name string) slog.Handler {
	next := *h
	if next.console != nil {
		next.console = h.console.WithGroup(name)
	}
	file := h.file
	if !next.hasRunID {
		file = file.WithAttrs([]slog.Attr{slog.String(logging.FieldRunID, h.runID)})
		next.hasRunID = true
	}
	next.file = file.WithGroup(name)
	return &next
}

func recordHas(record slog.Record, key string) bool {
	found := false
	record.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			found = true
			return false
		}
		return true
	})
	return found
}
