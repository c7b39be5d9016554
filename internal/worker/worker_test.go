package worker

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	w := New(nil, nil, Config{}, nil)

	if w.pollInterval != 2*time.Second {
		t.Errorf("pollInterval = %v, want 2s default", w.pollInterval)
	}
	if w.concurrency != 2 {
		t.Errorf("concurrency = %d, want 2 default", w.concurrency)
	}
	if w.logger == nil {
		t.Error("logger should fall back to default")
	}
	if w.stop == nil {
		t.Error("stop channel should be initialized")
	}
}

func TestNewCustomConfig(t *testing.T) {
	w := New(nil, nil, Config{PollInterval: 10 * time.Second, Concurrency: 4}, slog.Default())

	if w.pollInterval != 10*time.Second {
		t.Errorf("pollInterval = %v, want 10s", w.pollInterval)
	}
	if w.concurrency != 4 {
		t.Errorf("concurrency = %d, want 4", w.concurrency)
	}
}

func TestStartStop(t *testing.T) {
	w := New(nil, nil, Config{PollInterval: 50 * time.Millisecond, Concurrency: 2}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Start(ctx)
	time.Sleep(10 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Stop() timed out")
	}
}

func TestStopViaContext(t *testing.T) {
	w := New(nil, nil, Config{PollInterval: 50 * time.Millisecond, Concurrency: 1}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	cancel()
	time.Sleep(100 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Error("Stop() timed out after context cancellation")
	}
}

func TestBusyIdleByDefault(t *testing.T) {
	w := New(nil, nil, Config{}, nil)
	if w.Busy() {
		t.Error("fresh worker must not report busy")
	}
}
