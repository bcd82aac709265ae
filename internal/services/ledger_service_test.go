package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"fintrack/internal/core"
)

// seedPending creates one monthly template and materializes n (<= 12) pending rows for it.
func seedPending(t *testing.T, n int) (*LedgerService, *recordingPublisher, []core.PendingTransaction) {
	t.Helper()
	ctx := context.Background()
	store := newStore()
	pub := &recordingPublisher{}
	mustCreate(store, monthlyTemplate(core.NewDate(2024, 1, 1)))
	engine := NewRecurrenceEngine(store, nil, 0, testLogger())
	if _, err := engine.Generate(ctx, core.NewDate(2024, n, 1)); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	pending, err := store.ListPending(ctx, core.StatusPending)
	if err != nil || len(pending) != n {
		t.Fatalf("seeded %d pending rows (err=%v), want %d", len(pending), err, n)
	}
	return NewLedgerService(store, pub, 2, testLogger()), pub, pending
}

func TestLedgerService_ConfirmTwiceIsConflict(t *testing.T) {
	ctx := context.Background()
	ledger, pub, pending := seedPending(t, 1)
	id := pending[0].ID

	c, err := ledger.Confirm(ctx, id)
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if c.PendingID != id || c.Amount.Cents != pending[0].Amount.Cents {
		t.Errorf("unexpected committed transaction: %+v", c)
	}

	if _, err := ledger.Confirm(ctx, id); !errors.Is(err, core.ErrConflict) {
		t.Errorf("second Confirm() error = %v, want ErrConflict", err)
	}
	if _, err := ledger.Reject(ctx, id); !errors.Is(err, core.ErrConflict) {
		t.Errorf("Reject() after confirm error = %v, want ErrConflict", err)
	}

	ledgerRows, _ := ledger.Committed(ctx, core.Date{}, core.Date{})
	if len(ledgerRows) != 1 {
		t.Errorf("committed rows = %d, want exactly 1", len(ledgerRows))
	}
	row, _ := ledger.Get(ctx, id)
	if row.Status != core.StatusConfirmed || row.CommittedID != c.ID {
		t.Errorf("pending row not marked confirmed: %+v", row)
	}

	events := pub.byType(core.EventTransactionConfirmed)
	if len(events) != 1 || events[0].PendingID != id || events[0].CommittedID != c.ID {
		t.Errorf("unexpected confirm events: %+v", events)
	}
}

func TestLedgerService_UnknownIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := seedPending(t, 1)
	for _, id := range []int64{0, -1, 999} {
		if _, err := ledger.Confirm(ctx, id); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Confirm(%d) error = %v, want ErrNotFound", id, err)
		}
		if _, err := ledger.Reject(ctx, id); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Reject(%d) error = %v, want ErrNotFound", id, err)
		}
	}
}

func TestLedgerService_BatchRejectReportsPerID(t *testing.T) {
	ctx := context.Background()
	ledger, pub, pending := seedPending(t, 2)
	a, c := pending[0].ID, pending[1].ID
	const missing = 4242

	res := ledger.BatchReject(ctx, []int64{a, missing, c})
	if len(res.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(res.Results))
	}
	if !res.Results[0].OK || res.Results[0].ID != a {
		t.Errorf("result[0] = %+v, want success for %d", res.Results[0], a)
	}
	if res.Results[1].OK || res.Results[1].ID != missing || res.Results[1].Kind != core.KindNotFound {
		t.Errorf("result[1] = %+v, want not_found for %d", res.Results[1], missing)
	}
	if !res.Results[2].OK || res.Results[2].ID != c {
		t.Errorf("result[2] = %+v, want success for %d", res.Results[2], c)
	}
	if res.Succeeded != 2 || res.Failed != 1 {
		t.Errorf("succeeded/failed = %d/%d, want 2/1", res.Succeeded, res.Failed)
	}

	for _, id := range []int64{a, c} {
		row, err := ledger.Get(ctx, id)
		if err != nil || row.Status != core.StatusRejected {
			t.Errorf("row %d = %+v (err=%v), want rejected", id, row, err)
		}
	}
	committed, _ := ledger.Committed(ctx, core.Date{}, core.Date{})
	if len(committed) != 0 {
		t.Errorf("reject created %d committed rows", len(committed))
	}
	if got := len(pub.byType(core.EventTransactionRejected)); got != 2 {
		t.Errorf("reject events = %d, want 2", got)
	}
}

func TestLedgerService_BatchConfirmDuplicatesAndConflicts(t *testing.T) {
	ctx := context.Background()
	ledger, _, pending := seedPending(t, 3)
	first, second, third := pending[0].ID, pending[1].ID, pending[2].ID

	if _, err := ledger.Reject(ctx, third); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}

	res := ledger.BatchConfirm(ctx, []int64{first, second, first, third})
	want := []struct {
		ok   bool
		kind string
	}{
		{true, ""},
		{true, ""},
		{false, core.KindConflict},
		{false, core.KindConflict},
	}
	for i, w := range want {
		got := res.Results[i]
		if got.OK != w.ok || got.Kind != w.kind {
			t.Errorf("result[%d] = %+v, want ok=%v kind=%q", i, got, w.ok, w.kind)
		}
	}
	committed, _ := ledger.Committed(ctx, core.Date{}, core.Date{})
	if len(committed) != 2 {
		t.Errorf("committed rows = %d, want 2", len(committed))
	}
}

func TestLedgerService_ConcurrentConfirmSameID(t *testing.T) {
	ctx := context.Background()
	ledger, _, pending := seedPending(t, 1)
	id := pending[0].ID

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Confirm(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, core.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if ok != 1 || conflicts != 15 {
		t.Errorf("ok/conflicts = %d/%d, want 1/15", ok, conflicts)
	}
}

func TestLedgerService_PublishFailureKeepsTransition(t *testing.T) {
	ctx := context.Background()
	ledger, pub, pending := seedPending(t, 1)
	pub.err = errBrokerDown

	if _, err := ledger.Confirm(ctx, pending[0].ID); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	row, _ := ledger.Get(ctx, pending[0].ID)
	if row.Status != core.StatusConfirmed {
		t.Errorf("status = %s, want confirmed", row.Status)
	}
}

func TestLedgerService_ListValidation(t *testing.T) {
	ctx := context.Background()
	ledger, _, _ := seedPending(t, 2)

	if _, err := ledger.List(ctx, "archived"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("List(archived) error = %v, want validation", err)
	}
	rows, err := ledger.List(ctx, core.StatusPending)
	if err != nil || len(rows) != 2 {
		t.Errorf("List(pending) = %d rows, err %v", len(rows), err)
	}
	if _, err := ledger.Committed(ctx, core.NewDate(2024, 2, 1), core.NewDate(2024, 1, 1)); !errors.Is(err, core.ErrValidation) {
		t.Errorf("Committed() with inverted range error = %v, want validation", err)
	}
}
