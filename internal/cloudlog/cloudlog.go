// Package cloudlog adapts cloud.go's GoogleCloudHandler (a plain
// severity/message/time JSON-lines slog.Handler for Cloud Logging's
// structured-log ingestion) for the search engine: same handler shape,
// generalised from *os.File to io.Writer so it can be driven by
// whatever sink a deployment wires up.
package cloudlog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"
)

// Handler writes one JSON object per log line in the shape Cloud
// Logging's structured-log agent expects: severity, message, time, plus
// whatever attributes the call site or WithAttrs supplied.
type Handler struct {
	writer     io.Writer
	level      slog.Level
	extraAttrs map[string]interface{}
}

// New creates a handler writing to w at or above level.
func New(w io.Writer, level slog.Level) *Handler {
	return &Handler{writer: w, level: level}
}

// Enabled reports whether level passes this handler's threshold.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle writes one structured log entry.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	severity := severityFor(r.Level)

	attrs := map[string]interface{}{}
	r.Attrs(func(attr slog.Attr) bool {
		attrs[attr.Key] = attr.Value.Any()
		return true
	})
	for k, v := range h.extraAttrs {
		attrs[k] = v
	}

	entry := map[string]interface{}{
		"severity": severity,
		"message":  r.Message,
		"time":     time.Now().Format(time.RFC3339Nano),
	}
	for k, v := range attrs {
		entry[k] = v
	}

	return json.NewEncoder(h.writer).Encode(entry)
}

// WithAttrs returns a handler that additionally carries attrs on every
// subsequent record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.extraAttrs = make(map[string]interface{}, len(h.extraAttrs)+len(attrs))
	for k, v := range h.extraAttrs {
		next.extraAttrs[k] = v
	}
	for _, attr := range attrs {
		next.extraAttrs[attr.Key] = attr.Value.Any()
	}
	return &next
}

// WithGroup is a no-op; Cloud Logging's flat JSON shape has no nested
// group concept worth modelling here.
func (h *Handler) WithGroup(string) slog.Handler {
	return h
}

func severityFor(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARNING"
	case slog.LevelError:
		return "ERROR"
	default:
		return "DEFAULT"
	}
}
