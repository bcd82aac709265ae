package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

type fakeGenerator struct {
	mu    sync.Mutex
	calls []core.Date
	err   error
}

func (f *fakeGenerator) Generate(_ context.Context, asOf core.Date) (services.GenerateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, asOf)
	if f.err != nil {
		return services.GenerateResult{}, f.err
	}
	return services.GenerateResult{
		Created:  2,
		Examined: 1,
		Warnings: []services.TemplateWarning{{TemplateID: 9, Reason: "occurrence cap reached"}},
	}, nil
}

func (f *fakeGenerator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestRecurringWorker_RunOnceUsesUTCDay(t *testing.T) {
	gen := &fakeGenerator{}
	w := NewRecurringWorker(gen, time.Hour, log.Discard())
	loc := time.FixedZone("UTC+10", 10*60*60)
	w.now = func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, loc) }

	res, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if res.Created != 2 {
		t.Errorf("Created = %d", res.Created)
	}
	if got := gen.calls[0].String(); got != "2024-02-29" {
		t.Errorf("asOf = %s, want 2024-02-29", got)
	}
}

func TestRecurringWorker_RunOnceReturnsError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("list active templates: database is locked")}
	w := NewRecurringWorker(gen, time.Hour, log.Discard())
	if _, err := w.RunOnce(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestRecurringWorker_RunTicksUntilCancelled(t *testing.T) {
	gen := &fakeGenerator{}
	w := NewRecurringWorker(gen, 10*time.Millisecond, log.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for gen.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d passes ran", gen.count())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestNewRecurringWorker_DefaultInterval(t *testing.T) {
	w := NewRecurringWorker(&fakeGenerator{}, 0, log.Discard())
	if w.interval != time.Hour {
		t.Errorf("interval = %v, want 1h", w.interval)
	}
}
