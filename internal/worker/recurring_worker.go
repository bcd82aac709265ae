package worker

import (
	"context"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

// Generator materializes due occurrences up to asOf.
type Generator interface {
	Generate(ctx context.Context, asOf core.Date) (services.GenerateResult, error)
}

// RecurringWorker runs generation once at start-up and then on every tick.
type RecurringWorker struct {
	generator Generator
	interval  time.Duration
	logger    *log.Logger
	now       func() time.Time
}

func NewRecurringWorker(generator Generator, interval time.Duration, logger *log.Logger) *RecurringWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RecurringWorker{
		generator: generator,
		interval:  interval,
		logger:    logger.WithComponent(log.ComponentWorker),
		now:       time.Now,
	}
}

// Run blocks until ctx is cancelled. A failed pass is logged and retried on the next tick.
func (w *RecurringWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Recurring worker started", "interval", w.interval)
	w.RunOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Recurring worker stopped")
			return ctx.Err()
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce generates everything due today (UTC).
func (w *RecurringWorker) RunOnce(ctx context.Context) (services.GenerateResult, error) {
	now := w.now()
	asOf := core.DateOf(now)
	result, err := w.generator.Generate(ctx, asOf)
	if err != nil {
		w.logger.ErrorContext(ctx, "Recurring generation failed",
			log.FieldAsOf, asOf.String(),
			log.FieldError, err)
		return result, err
	}
	for _, warn := range result.Warnings {
		w.logger.WarnContext(ctx, "Recurring template skipped",
			log.FieldTemplateID, warn.TemplateID,
			"reason", warn.Reason)
	}
	w.logger.InfoContext(ctx, "Recurring generation pass complete",
		log.FieldAsOf, asOf.String(),
		log.FieldCount, result.Created,
		"next_check", now.Add(w.interval).Format("15:04:05"))
	return result, nil
}
