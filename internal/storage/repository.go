package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db            *sql.DB
	queries       *Queries
	schemaVersion uint
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the main pool opens the file
	version, err := migrateSchema(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer keeps transactions serialized and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:            db,
		queries:       New(db),
		schemaVersion: version,
	}, nil
}

func dsn(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SchemaVersion is the migration version the database was opened at.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schemaVersion
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Templates

func (r *SQLiteRepository) CreateTemplate(ctx context.Context, t core.RecurringTemplate) (int64, error) {
	id, err := r.queries.CreateTemplate(ctx, t, time.Now())
	if err != nil {
		return 0, fmt.Errorf("create template: %w", err)
	}
	slog.InfoContext(ctx, "Recurring template saved to SQLite",
		"id", id,
		"name", t.Name,
		"pattern", t.Pattern,
		"amount_cents", t.Amount.Cents)
	return id, nil
}

func (r *SQLiteRepository) UpdateTemplate(ctx context.Context, t core.RecurringTemplate) error {
	n, err := r.queries.UpdateTemplate(ctx, t, time.Now())
	if err != nil {
		return fmt.Errorf("update template %d: %w", t.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("template %d: %w", t.ID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTemplate(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteTemplate(ctx, id)
	if err != nil {
		return fmt.Errorf("delete template %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("template %d: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Recurring template deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) GetTemplate(ctx context.Context, id int64) (core.RecurringTemplate, error) {
	t, err := r.queries.GetTemplate(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringTemplate{}, fmt.Errorf("template %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("get template %d: %w", id, err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTemplates(ctx context.Context) ([]core.RecurringTemplate, error) {
	ts, err := r.queries.ListTemplates(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return ts, nil
}

func (r *SQLiteRepository) ListActiveTemplates(ctx context.Context) ([]core.RecurringTemplate, error) {
	ts, err := r.queries.ListTemplates(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list active templates: %w", err)
	}
	return ts, nil
}

func (r *SQLiteRepository) SetTemplateActive(ctx context.Context, id int64, active bool) error {
	n, err := r.queries.SetTemplateActive(ctx, id, active, time.Now())
	if err != nil {
		return fmt.Errorf("set template %d active: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("template %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// Occurrences

func (r *SQLiteRepository) OccurrenceDates(ctx context.Context, templateID int64) ([]core.Date, error) {
	ds, err := r.queries.OccurrenceDates(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("occurrence dates for template %d: %w", templateID, err)
	}
	return ds, nil
}

func (r *SQLiteRepository) MaterializeOccurrences(ctx context.Context, templateID int64, items []core.PendingTransaction, lastGenerated core.Date) (int, error) {
	now := time.Now()
	created := 0
	err := r.withTx(ctx, func(q *Queries) error {
		for _, p := range items {
			p.TemplateID = templateID
			n, err := q.InsertPendingIgnoreDuplicate(ctx, p, now)
			if err != nil {
				return fmt.Errorf("insert pending %s: %w", p.OccurrenceDate, err)
			}
			created += int(n)
		}
		if lastGenerated.IsEmpty() {
			return nil
		}
		if err := q.SetLastGenerated(ctx, templateID, lastGenerated, now); err != nil {
			return fmt.Errorf("advance last_generated: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("materialize template %d: %w", templateID, err)
	}
	return created, nil
}

// Pending transactions

func (r *SQLiteRepository) GetPending(ctx context.Context, id int64) (core.PendingTransaction, error) {
	p, err := r.queries.GetPending(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.PendingTransaction{}, fmt.Errorf("pending transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.PendingTransaction{}, fmt.Errorf("get pending transaction %d: %w", id, err)
	}
	return p, nil
}

func (r *SQLiteRepository) ListPending(ctx context.Context, status core.TransactionStatus) ([]core.PendingTransaction, error) {
	ps, err := r.queries.ListPending(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list pending transactions: %w", err)
	}
	return ps, nil
}

func (r *SQLiteRepository) ConfirmPending(ctx context.Context, id int64, at time.Time) (core.CommittedTransaction, error) {
	var committed core.CommittedTransaction
	err := r.withTx(ctx, func(q *Queries) error {
		p, err := loadPendingForTransition(ctx, q, id)
		if err != nil {
			return err
		}
		committed = p.Commit(at)
		cid, err := q.InsertCommitted(ctx, committed)
		if err != nil {
			return fmt.Errorf("insert committed transaction: %w", err)
		}
		committed.ID = cid
		n, err := q.ResolvePending(ctx, id, core.StatusConfirmed, cid, at)
		if err != nil {
			return fmt.Errorf("mark pending confirmed: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("pending transaction %d is no longer pending: %w", id, core.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return core.CommittedTransaction{}, err
	}
	slog.InfoContext(ctx, "Pending transaction confirmed",
		"pending_id", id,
		"committed_id", committed.ID,
		"amount_cents", committed.Amount.Cents)
	return committed, nil
}

func (r *SQLiteRepository) RejectPending(ctx context.Context, id int64, at time.Time) (core.PendingTransaction, error) {
	var p core.PendingTransaction
	err := r.withTx(ctx, func(q *Queries) error {
		var err error
		if p, err = loadPendingForTransition(ctx, q, id); err != nil {
			return err
		}
		n, err := q.ResolvePending(ctx, id, core.StatusRejected, 0, at)
		if err != nil {
			return fmt.Errorf("mark pending rejected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("pending transaction %d is no longer pending: %w", id, core.ErrConflict)
		}
		return nil
	})
	if err != nil {
		return core.PendingTransaction{}, err
	}
	p.Status = core.StatusRejected
	p.ResolvedAt = at
	slog.InfoContext(ctx, "Pending transaction rejected", "pending_id", id)
	return p, nil
}

func loadPendingForTransition(ctx context.Context, q *Queries, id int64) (core.PendingTransaction, error) {
	p, err := q.GetPending(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("pending transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return p, fmt.Errorf("get pending transaction %d: %w", id, err)
	}
	if p.Status != core.StatusPending {
		return p, fmt.Errorf("pending transaction %d is %s: %w", id, p.Status, core.ErrConflict)
	}
	return p, nil
}

// Committed ledger

func (r *SQLiteRepository) GetCommitted(ctx context.Context, id int64) (core.CommittedTransaction, error) {
	c, err := r.queries.GetCommitted(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CommittedTransaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.CommittedTransaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCommitted(ctx context.Context, from, to core.Date) ([]core.CommittedTransaction, error) {
	cs, err := r.queries.ListCommitted(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return cs, nil
}

// Registry tables

// Account implements ports.AccountLookup.
func (r *SQLiteRepository) Account(ctx context.Context, id int64) (core.Account, error) {
	a, err := r.queries.GetAccount(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %d: %w", id, err)
	}
	return a, nil
}

// Category implements ports.CategoryLookup.
func (r *SQLiteRepository) Category(ctx context.Context, id int64) (core.Category, error) {
	c, err := r.queries.GetCategory(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

// SeedRegistry upserts accounts and categories. Parents must precede their children.
func (r *SQLiteRepository) SeedRegistry(ctx context.Context, accounts []core.Account, categories []core.Category) error {
	err := r.withTx(ctx, func(q *Queries) error {
		for _, a := range accounts {
			if err := q.UpsertAccount(ctx, a); err != nil {
				return fmt.Errorf("upsert account %d: %w", a.ID, err)
			}
		}
		for _, c := range categories {
			if err := q.UpsertCategory(ctx, c); err != nil {
				return fmt.Errorf("upsert category %d: %w", c.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Registry seeded",
		"accounts", len(accounts),
		"categories", len(categories))
	return nil
}
