// FILE: logship/src/internal/appender/handler.go
package appender

import (
	"context"
	"log/slog"

	"logship/src/internal/core"
)

// Attribute keys lifted out of Fields into the record itself
const (
	loggerAttrKey = "logger"
	errorAttrKey  = "error"
)

// Handler adapts an Appender to slog so applications can ship their own
// logs through the pipeline
type Handler struct {
	app    *Appender
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

// Handler returns a slog.Handler feeding records at or above level to a
func (a *Appender) Handler(level slog.Leveler) *Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &Handler{app: a, level: level}
}

func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	rec := core.LogRecord{
		Time:    r.Time,
		Level:   fromSlogLevel(r.Level),
		Message: r.Message,
	}

	fields := make(map[string]any)
	for _, a := range h.attrs {
		addAttr(&rec, fields, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(&rec, fields, h.prefix, a)
		return true
	})
	if len(fields) > 0 {
		rec.Fields = fields
	}

	h.app.Accept(ctx, rec)
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	h2.attrs = append(h2.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		h2.attrs = append(h2.attrs, a)
	}
	return &h2
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func addAttr(rec *core.LogRecord, fields map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			addAttr(rec, fields, groupPrefix, ga)
		}
		return
	}

	key := prefix + a.Key
	switch {
	case key == loggerAttrKey && a.Value.Kind() == slog.KindString:
		rec.Logger = a.Value.String()
	case key == errorAttrKey:
		if err, ok := a.Value.Any().(error); ok {
			rec.Error = err.Error()
		} else {
			rec.Error = a.Value.String()
		}
	default:
		fields[key] = a.Value.Any()
	}
}

func fromSlogLevel(l slog.Level) core.Level {
	switch {
	case l >= slog.LevelError:
		return core.LevelError
	case l >= slog.LevelWarn:
		return core.LevelWarn
	case l >= slog.LevelInfo:
		return core.LevelInfo
	case l >= slog.LevelDebug:
		return core.LevelDebug
	default:
		return core.LevelTrace
	}
}
