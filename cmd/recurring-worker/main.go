package main

import (
	"context"
	"errors"

	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger().WithComponent(log.ComponentApp)
	logger.Info("Starting recurring-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backend := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := backend.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()
	if backend.Publisher == nil {
		logger.Info("AMQP disabled - generated transactions will not be announced")
	}

	engine := services.NewRecurrenceEngine(backend.Store, backend.Publisher, cfg.RecurringMaxOccurrences, logger)
	w := worker.NewRecurringWorker(engine, cfg.RecurringInterval, logger)

	logger.Info("Recurring processor configured",
		"interval", cfg.RecurringInterval,
		"max_occurrences", cfg.RecurringMaxOccurrences,
		"backend", cfg.DataBackend)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Recurring worker failed", log.FieldError, err)
	}
	logger.Info("Recurring-worker shutdown complete")
}
