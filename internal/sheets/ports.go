package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerExporter appends committed transactions to an external ledger.
	// Exporting the same committed id twice must not produce a second row.
	LedgerExporter interface {
		Export(ctx context.Context, tx core.CommittedTransaction) (rowRef string, err error)
	}
)

// Header names the exported columns in order.
var Header = []string{"date", "description", "amount", "currency", "account_id", "category_id", "subcategory_id", "committed_id"}
