package testutil

import (
	"context"
	"log/slog"
	"testing"
)

// NewTestLogger returns a logger that forwards records to t.Log, so
// output is attributed to the failing test and silenced otherwise.
func NewTestLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(testHandler{t: t})
}

type testHandler struct {
	t     *testing.T
	attrs []slog.Attr
}

func (h testHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h testHandler) Handle(_ context.Context, r slog.Record) error {
	line := r.Level.String() + " " + r.Message
	for _, a := range h.attrs {
		line += " " + a.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		line += " " + a.String()
		return true
	})
	h.t.Log(line)
	return nil
}

func (h testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.attrs = append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)
	return h
}

func (h testHandler) WithGroup(string) slog.Handler { return h }
