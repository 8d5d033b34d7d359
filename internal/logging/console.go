package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders records as a single key=value line, keeping the
// output greppable without JSON tooling.
type consoleHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

func newConsoleHandler(w io.Writer, lvl slog.Leveler) slog.Handler {
	return &consoleHandler{mu: new(sync.Mutex), out: w, level: lvl}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.level != nil {
		min = h.level.Level()
	}
	return level >= min
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder
	b.WriteString(record.Time.Format(time.TimeOnly))
	b.WriteByte(' ')
	b.WriteString(levelLabel(record.Level))
	b.WriteByte(' ')
	b.WriteString(record.Message)
	for _, attr := range h.attrs {
		writeAttr(&b, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		writeAttr(&b, h.groups, attr)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

func writeAttr(b *strings.Builder, groups []string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		for _, nested := range attr.Value.Group() {
			writeAttr(b, append(groups, attr.Key), nested)
		}
		return
	}
	if attr.Equal(slog.Attr{}) {
		return
	}
	b.WriteByte(' ')
	for _, group := range groups {
		b.WriteString(group)
		b.WriteByte('.')
	}
	b.WriteString(attr.Key)
	b.WriteByte('=')
	value := attr.Value.String()
	if strings.ContainsAny(value, " \t\"") {
		value = fmt.Sprintf("%q", value)
	}
	b.WriteString(value)
}
