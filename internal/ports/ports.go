// Package ports declares the storage and collaborator contracts the services depend on.
package ports

import (
	"context"
	"time"

	"fintrack/internal/core"
)

type (
	// TemplateStore provides CRUD for recurring templates.
	TemplateStore interface {
		CreateTemplate(ctx context.Context, t core.RecurringTemplate) (int64, error)
		UpdateTemplate(ctx context.Context, t core.RecurringTemplate) error
		DeleteTemplate(ctx context.Context, id int64) error
		GetTemplate(ctx context.Context, id int64) (core.RecurringTemplate, error)
		ListTemplates(ctx context.Context) ([]core.RecurringTemplate, error)
		ListActiveTemplates(ctx context.Context) ([]core.RecurringTemplate, error)
		SetTemplateActive(ctx context.Context, id int64, active bool) error
	}

	// OccurrenceStore records which occurrences of a template are materialized.
	OccurrenceStore interface {
		// OccurrenceDates returns every occurrence date materialized for the template,
		// whatever the status of the pending row.
		OccurrenceDates(ctx context.Context, templateID int64) ([]core.Date, error)

		// MaterializeOccurrences inserts the pending transactions of one template and
		// advances its last_generated in a single atomic unit. Rows colliding on
		// (template_id, occurrence_date) are skipped. Returns the number inserted.
		MaterializeOccurrences(ctx context.Context, templateID int64, items []core.PendingTransaction, lastGenerated core.Date) (int, error)
	}

	// PendingStore holds pending transactions and performs their state transitions.
	PendingStore interface {
		GetPending(ctx context.Context, id int64) (core.PendingTransaction, error)
		// ListPending lists rows in the given status; an empty status lists all rows.
		ListPending(ctx context.Context, status core.TransactionStatus) ([]core.PendingTransaction, error)
		// ConfirmPending appends the committed transaction and marks the row confirmed atomically.
		// Unknown ids return core.ErrNotFound, non-pending rows core.ErrConflict.
		ConfirmPending(ctx context.Context, id int64, at time.Time) (core.CommittedTransaction, error)
		// RejectPending marks the row rejected. Same error contract as ConfirmPending.
		RejectPending(ctx context.Context, id int64, at time.Time) (core.PendingTransaction, error)
	}

	// TransactionStore reads the committed ledger.
	TransactionStore interface {
		GetCommitted(ctx context.Context, id int64) (core.CommittedTransaction, error)
		ListCommitted(ctx context.Context, from, to core.Date) ([]core.CommittedTransaction, error)
	}

	// Store is everything a backend provides.
	Store interface {
		TemplateStore
		OccurrenceStore
		PendingStore
		TransactionStore
		Close() error
	}

	AccountLookup interface {
		Account(ctx context.Context, id int64) (core.Account, error)
	}

	CategoryLookup interface {
		Category(ctx context.Context, id int64) (core.Category, error)
	}

	// EventPublisher notifies downstream consumers after a mutation has completed.
	EventPublisher interface {
		Publish(ctx context.Context, ev core.LedgerEvent) error
	}
)
