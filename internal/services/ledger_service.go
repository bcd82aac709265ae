package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/ports"
)

// DefaultBatchConcurrency bounds how many ids of one batch are processed at once.
const DefaultBatchConcurrency = 4

// LedgerStore is the storage the ledger needs.
type LedgerStore interface {
	ports.PendingStore
	ports.TransactionStore
}

// BatchItemResult is the outcome for one id of a batch.
type BatchItemResult struct {
	ID    int64  `json:"id"`
	OK    bool   `json:"ok"`
	Kind  string `json:"error_kind,omitempty"`
	Error string `json:"error,omitempty"`
}

// BatchResult lists per-id outcomes in input order.
type BatchResult struct {
	Results   []BatchItemResult `json:"results"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// LedgerService confirms and rejects pending transactions.
type LedgerService struct {
	store       LedgerStore
	publisher   ports.EventPublisher
	concurrency int
	logger      *log.Logger
	structured  *log.StructuredLogger
	now         func() time.Time
}

// NewLedgerService creates the service. publisher may be nil.
func NewLedgerService(store LedgerStore, publisher ports.EventPublisher, concurrency int, logger *log.Logger) *LedgerService {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentLedger)
	return &LedgerService{
		store:       store,
		publisher:   publisher,
		concurrency: concurrency,
		logger:      logger,
		structured:  log.NewStructuredLogger(logger),
		now:         time.Now,
	}
}

func (s *LedgerService) Get(ctx context.Context, id int64) (core.PendingTransaction, error) {
	return s.store.GetPending(ctx, id)
}

// List returns pending rows in status; an empty status lists every row.
func (s *LedgerService) List(ctx context.Context, status core.TransactionStatus) ([]core.PendingTransaction, error) {
	if status != "" && !status.IsValid() {
		return nil, core.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}
	return s.store.ListPending(ctx, status)
}

// Committed lists the committed ledger between from and to inclusive. Empty bounds are open.
func (s *LedgerService) Committed(ctx context.Context, from, to core.Date) ([]core.CommittedTransaction, error) {
	if !from.IsEmpty() && !to.IsEmpty() && to.Before(from) {
		return nil, core.NewValidationError("to", "must not be before from")
	}
	return s.store.ListCommitted(ctx, from, to)
}

func (s *LedgerService) GetCommitted(ctx context.Context, id int64) (core.CommittedTransaction, error) {
	return s.store.GetCommitted(ctx, id)
}

// Confirm commits the pending transaction id. Unknown ids fail with core.ErrNotFound,
// rows no longer pending with core.ErrConflict.
func (s *LedgerService) Confirm(ctx context.Context, id int64) (core.CommittedTransaction, error) {
	if id <= 0 {
		return core.CommittedTransaction{}, fmt.Errorf("pending transaction %d: %w", id, core.ErrNotFound)
	}
	c, err := s.store.ConfirmPending(ctx, id, s.now().UTC())
	if err != nil {
		return core.CommittedTransaction{}, err
	}
	s.structured.LogTransition(ctx, log.OpConfirm, id, c.ID, c.Amount.Cents, c.Currency)

	ev := core.NewLedgerEvent(core.EventTransactionConfirmed)
	ev.PendingID = id
	ev.CommittedID = c.ID
	ev.TemplateID = c.TemplateID
	publish(ctx, s.publisher, s.logger, ev)
	return c, nil
}

// Reject discards the pending transaction id. Same error contract as Confirm.
func (s *LedgerService) Reject(ctx context.Context, id int64) (core.PendingTransaction, error) {
	if id <= 0 {
		return core.PendingTransaction{}, fmt.Errorf("pending transaction %d: %w", id, core.ErrNotFound)
	}
	p, err := s.store.RejectPending(ctx, id, s.now().UTC())
	if err != nil {
		return core.PendingTransaction{}, err
	}
	s.structured.LogTransition(ctx, log.OpReject, id, 0, p.Amount.Cents, p.Currency)

	ev := core.NewLedgerEvent(core.EventTransactionRejected)
	ev.PendingID = id
	ev.TemplateID = p.TemplateID
	publish(ctx, s.publisher, s.logger, ev)
	return p, nil
}

func (s *LedgerService) BatchConfirm(ctx context.Context, ids []int64) BatchResult {
	return s.batch(ctx, ids, log.OpConfirm, func(ctx context.Context, id int64) error {
		_, err := s.Confirm(ctx, id)
		return err
	})
}

func (s *LedgerService) BatchReject(ctx context.Context, ids []int64) BatchResult {
	return s.batch(ctx, ids, log.OpReject, func(ctx context.Context, id int64) error {
		_, err := s.Reject(ctx, id)
		return err
	})
}

// batch applies fn to every id independently. A failing id never stops the others.
// Repeated ids are processed once; later copies fail with a conflict.
func (s *LedgerService) batch(ctx context.Context, ids []int64, op string, fn func(context.Context, int64) error) BatchResult {
	results := make([]BatchItemResult, len(ids))
	seen := make(map[int64]struct{}, len(ids))

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		results[i].ID = id
		if _, dup := seen[id]; dup {
			err := fmt.Errorf("pending transaction %d appears more than once in the batch: %w", id, core.ErrConflict)
			results[i].Kind = core.ErrorKind(err)
			results[i].Error = err.Error()
			continue
		}
		seen[id] = struct{}{}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Kind = core.KindInternal
				results[i].Error = err.Error()
				return nil
			}
			if err := fn(ctx, id); err != nil {
				results[i].Kind = core.ErrorKind(err)
				results[i].Error = err.Error()
				return nil
			}
			results[i].OK = true
			return nil
		})
	}
	_ = g.Wait()

	out := BatchResult{Results: results}
	for _, r := range results {
		if r.OK {
			out.Succeeded++
		} else {
			out.Failed++
		}
	}
	s.logger.InfoContext(ctx, "Batch processed",
		log.FieldOperation, op,
		"succeeded", out.Succeeded,
		"failed", out.Failed)
	return out
}
