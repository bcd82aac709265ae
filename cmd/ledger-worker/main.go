package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	sheetsmem "fintrack/internal/sheets/memory"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger().WithComponent(log.ComponentApp)
	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("ledger-worker requires AMQP_URL")
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backend := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := backend.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()
	if backend.Events == nil {
		logger.Error("AMQP client unavailable, cannot consume ledger events")
		os.Exit(1)
	}

	exporter, err := newExporter(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize ledger exporter", log.FieldError, err)
		os.Exit(1)
	}
	exportWorker := worker.NewExportWorker(backend.Store, exporter, logger)

	g, gctx := errgroup.WithContext(ctx)

	// Events published while the worker was down are covered by re-exporting
	// the recent committed range; the exporter skips rows it already holds.
	if cfg.ExportBackfillDays > 0 {
		g.Go(func() error {
			to := core.DateOf(time.Now())
			from := to.AddDays(-cfg.ExportBackfillDays)
			n, err := exportWorker.ExportRange(gctx, from, to)
			if err != nil {
				logger.Error("Startup backfill incomplete", log.FieldError, err, log.FieldCount, n)
			}
			return nil
		})
	}

	g.Go(func() error {
		return backend.Events.Consume(gctx, exportWorker.HandleEvent)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Ledger worker failed", log.FieldError, err)
	}
	logger.Info("Ledger-worker shutdown complete")
}

func newExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.LedgerExporter, error) {
	logger = logger.WithComponent(log.ComponentSheets)
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets disabled - exporting to memory only")
		return sheetsmem.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}
