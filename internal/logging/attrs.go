package logging

import (
	"context"
	"log/slog"
	"time"
)

// Attr aliases slog.Attr so call sites can stay on this package.
type Attr = slog.Attr

// String builds a string attribute.
func String(key, value string) Attr { return slog.String(key, value) }

// Int builds an int attribute.
func Int(key string, value int) Attr { return slog.Int(key, value) }

// Int64 builds an int64 attribute.
func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

// Bool builds a bool attribute.
func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

// Duration builds a duration attribute.
func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

// Error builds an attribute for an error value, tolerating nil.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

// Any builds an attribute for an arbitrary value.
func Any(key string, value any) Attr { return slog.Any(key, value) }

// NewNop returns a logger that discards everything. Useful in tests and
// for optional logger parameters.
func NewNop() *slog.Logger {
	return slog.New(noopHandler{})
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (noopHandler) Handle(context.Context, slog.Record) error { return nil }
func (noopHandler) WithAttrs([]slog.Attr) slog.Handler        { return noopHandler{} }
func (noopHandler) WithGroup(string) slog.Handler             { return noopHandler{} }
