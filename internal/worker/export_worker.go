package worker

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/ports"
	"fintrack/internal/sheets"
)

// ExportWorker copies confirmed transactions to an external ledger.
type ExportWorker struct {
	store      ports.TransactionStore
	exporter   sheets.LedgerExporter
	logger     *log.Logger
	structured *log.StructuredLogger
}

func NewExportWorker(store ports.TransactionStore, exporter sheets.LedgerExporter, logger *log.Logger) *ExportWorker {
	logger = logger.WithComponent(log.ComponentWorker)
	return &ExportWorker{
		store:      store,
		exporter:   exporter,
		logger:     logger,
		structured: log.NewStructuredLogger(logger),
	}
}

// HandleEvent exports the committed row behind a transaction.confirmed event.
// Other event types are acknowledged without work. A missing committed row is
// logged and dropped since redelivery cannot fix it.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev core.LedgerEvent) error {
	if ev.Type != core.EventTransactionConfirmed {
		w.logger.DebugContext(ctx, "Ignoring ledger event",
			log.FieldEventID, ev.ID,
			log.FieldEventType, ev.Type)
		return nil
	}

	tx, err := w.store.GetCommitted(ctx, ev.CommittedID)
	if errors.Is(err, core.ErrNotFound) {
		w.logger.WarnContext(ctx, "Committed transaction not found, dropping event",
			log.FieldEventID, ev.ID,
			log.FieldCommittedID, ev.CommittedID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get committed transaction: %w", err)
	}
	return w.export(ctx, tx)
}

// ExportRange re-exports every committed transaction in [from, to]. The
// exporter skips rows it already holds, so this backfills events lost while
// the worker was down.
func (w *ExportWorker) ExportRange(ctx context.Context, from, to core.Date) (int, error) {
	txs, err := w.store.ListCommitted(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("list committed transactions: %w", err)
	}
	if len(txs) == 0 {
		w.logger.InfoContext(ctx, "No committed transactions to export")
		return 0, nil
	}

	exported, failed := 0, 0
	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			return exported, err
		}
		if err := w.export(ctx, tx); err != nil {
			failed++
			continue
		}
		exported++
	}

	w.logger.InfoContext(ctx, "Backfill export completed",
		"total", len(txs),
		"exported", exported,
		"errors", failed)
	if failed > 0 {
		return exported, fmt.Errorf("%d of %d exports failed", failed, len(txs))
	}
	return exported, nil
}

func (w *ExportWorker) export(ctx context.Context, tx core.CommittedTransaction) error {
	ref, err := w.exporter.Export(ctx, tx)
	if err != nil {
		w.structured.LogError(ctx, "Failed to export transaction", err, log.OpExport,
			log.NewFields().WithTransaction(tx.PendingID, tx.ID, tx.Amount.Cents, tx.Currency))
		return fmt.Errorf("export transaction %d: %w", tx.ID, err)
	}
	w.logger.InfoContext(ctx, "Exported transaction",
		log.FieldCommittedID, tx.ID,
		log.FieldPendingID, tx.PendingID,
		log.FieldAmountCents, tx.Amount.Cents,
		log.FieldCurrency, tx.Currency,
		"row_ref", ref)
	return nil
}
