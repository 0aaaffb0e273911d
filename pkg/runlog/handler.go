package runlog

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
)

// Handler is a slog.Handler that writes every record as one log-file entry:
// the message followed by its attributes as key=value pairs.
type Handler struct {
	file   *File
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// NewHandler returns a handler appending to f. A nil opts logs at Info and above.
func NewHandler(f *File, opts *slog.HandlerOptions) *Handler {
	h := &Handler{file: f, level: slog.LevelInfo}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

// NewLogger is shorthand for slog.New(NewHandler(f, &slog.HandlerOptions{Level: level})).
func NewLogger(f *File, level slog.Level) *slog.Logger {
	return slog.New(NewHandler(f, &slog.HandlerOptions{Level: level}))
}

func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	if r.Level >= slog.LevelWarn {
		b.WriteString(r.Level.String())
		b.WriteString(": ")
	}
	b.WriteString(r.Message)

	prefix := h.groupPrefix()
	for _, a := range h.attrs {
		appendAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, prefix, a)
		return true
	})

	ts := r.Time
	if ts.IsZero() {
		ts = h.file.now()
	}
	h.file.WriteAt(ts, b.String())
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	prefix := h.groupPrefix()
	nh := h.clone()
	for _, a := range attrs {
		a.Key = prefix + a.Key
		nh.attrs = append(nh.attrs, a)
	}
	return nh
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := h.clone()
	nh.groups = append(nh.groups, name)
	return nh
}

func (h *Handler) clone() *Handler {
	return &Handler{
		file:   h.file,
		level:  h.level,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

func (h *Handler) groupPrefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range group {
			appendAttr(b, p, ga)
		}
		return
	}
	b.WriteString(" ")
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteString("=")
	b.WriteString(quoteIfNeeded(a.Value.String()))
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

// ParseLevel converts a config log level to slog.Level. Unknown values mean Info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
