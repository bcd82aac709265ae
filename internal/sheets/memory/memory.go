package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fintrack/internal/core"
)

// Exporter keeps exported rows in memory. Used when no spreadsheet is configured and in tests.
type Exporter struct {
	mu    sync.Mutex
	rows  []core.CommittedTransaction
	index map[int64]int
}

func New() *Exporter {
	return &Exporter{index: map[int64]int{}}
}

// Export stores the transaction and returns a synthetic row reference.
func (e *Exporter) Export(_ context.Context, tx core.CommittedTransaction) (string, error) {
	if tx.ID <= 0 {
		return "", errors.New("committed transaction has no id")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if i, ok := e.index[tx.ID]; ok {
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	e.rows = append(e.rows, tx)
	e.index[tx.ID] = len(e.rows) - 1
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

// Rows returns a copy of everything exported so far.
func (e *Exporter) Rows() []core.CommittedTransaction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.CommittedTransaction(nil), e.rows...)
}
