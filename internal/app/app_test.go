package app

import (
	"context"
	"errors"
	"testing"

	"github.com/koopa0/atelier/internal/testutil"
)

func TestFailStartup_FlushesTracerProvider(t *testing.T) {
	shutdownCalls := 0
	cancelCalls := 0
	a := &App{
		Logger: testutil.NewTestLogger(t),
		cancel: func() { cancelCalls++ },
		otelShutdown: func(context.Context) error {
			shutdownCalls++
			return nil
		},
	}

	startErr := errors.New("pinging database: connection refused")
	if got := a.failStartup(startErr); !errors.Is(got, startErr) {
		t.Errorf("failStartup returned %v, want %v", got, startErr)
	}
	if shutdownCalls != 1 {
		t.Errorf("tracer shutdown called %d times, want 1", shutdownCalls)
	}
	if cancelCalls != 1 {
		t.Errorf("cancel called %d times, want 1", cancelCalls)
	}
}

func TestFailStartup_NoTracing(t *testing.T) {
	cancelled := false
	a := &App{
		Logger: testutil.NewTestLogger(t),
		cancel: func() { cancelled = true },
	}

	startErr := errors.New("running migrations: dirty database")
	if got := a.failStartup(startErr); !errors.Is(got, startErr) {
		t.Errorf("failStartup returned %v, want %v", got, startErr)
	}
	if !cancelled {
		t.Error("lifecycle context was not cancelled")
	}
}

func TestFailStartup_ShutdownErrorDoesNotMaskCause(t *testing.T) {
	a := &App{
		Logger:       testutil.NewTestLogger(t),
		cancel:       func() {},
		otelShutdown: func(context.Context) error { return errors.New("exporter flush failed") },
	}

	startErr := errors.New("creating generator: model not found")
	if got := a.failStartup(startErr); !errors.Is(got, startErr) {
		t.Errorf("failStartup returned %v, want the startup error", got)
	}
}
