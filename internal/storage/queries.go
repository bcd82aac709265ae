package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type scanner interface {
	Scan(dest ...any) error
}

const templateColumns = `id, name, description, account_id, amount_cents, currency, category_id, subcategory_id,
	recurrence_pattern, recurrence_interval, day_of_month, start_date, end_date, is_active, last_generated,
	created_at, updated_at`

const pendingColumns = `id, template_id, account_id, amount_cents, currency, category_id, subcategory_id,
	description, occurrence_date, status, committed_id, created_at, resolved_at`

const committedColumns = `id, pending_id, template_id, account_id, amount_cents, currency, category_id,
	subcategory_id, description, date, committed_at`

// Templates

func (q *Queries) CreateTemplate(ctx context.Context, t core.RecurringTemplate, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO recurring_templates (name, description, account_id, amount_cents, currency, category_id,
			subcategory_id, recurrence_pattern, recurrence_interval, day_of_month, start_date, end_date,
			is_active, last_generated, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.Description, t.AccountID, t.Amount.Cents, t.Currency, t.CategoryID,
		nullInt(t.SubcategoryID), string(t.Pattern), t.Interval, nullInt(int64(t.DayOfMonth)),
		t.StartDate.String(), nullDate(t.EndDate), t.IsActive, nullDate(t.LastGenerated),
		formatTime(now), formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (q *Queries) UpdateTemplate(ctx context.Context, t core.RecurringTemplate, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE recurring_templates
		SET name = ?, description = ?, account_id = ?, amount_cents = ?, currency = ?, category_id = ?,
			subcategory_id = ?, recurrence_pattern = ?, recurrence_interval = ?, day_of_month = ?,
			start_date = ?, end_date = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.Description, t.AccountID, t.Amount.Cents, t.Currency, t.CategoryID,
		nullInt(t.SubcategoryID), string(t.Pattern), t.Interval, nullInt(int64(t.DayOfMonth)),
		t.StartDate.String(), nullDate(t.EndDate), t.IsActive, formatTime(now), t.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) DeleteTemplate(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM recurring_templates WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) SetTemplateActive(ctx context.Context, id int64, active bool, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE recurring_templates SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, formatTime(now), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) SetLastGenerated(ctx context.Context, id int64, d core.Date, now time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE recurring_templates SET last_generated = ?, updated_at = ?
		WHERE id = ? AND (last_generated IS NULL OR last_generated < ?)`,
		d.String(), formatTime(now), id, d.String())
	return err
}

func (q *Queries) GetTemplate(ctx context.Context, id int64) (core.RecurringTemplate, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM recurring_templates WHERE id = ?`, id)
	return scanTemplate(row)
}

func (q *Queries) ListTemplates(ctx context.Context, activeOnly bool) ([]core.RecurringTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM recurring_templates`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY id`
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.RecurringTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Pending transactions

// InsertPendingIgnoreDuplicate inserts a pending row unless (template_id, occurrence_date) exists.
// Returns the number of rows inserted (0 or 1).
func (q *Queries) InsertPendingIgnoreDuplicate(ctx context.Context, p core.PendingTransaction, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO pending_transactions (template_id, account_id, amount_cents, currency, category_id,
			subcategory_id, description, occurrence_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'pending', ?)
		ON CONFLICT (template_id, occurrence_date) DO NOTHING`,
		nullInt(p.TemplateID), p.AccountID, p.Amount.Cents, p.Currency, p.CategoryID,
		nullInt(p.SubcategoryID), p.Description, p.OccurrenceDate.String(), formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) OccurrenceDates(ctx context.Context, templateID int64) ([]core.Date, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT occurrence_date FROM pending_transactions WHERE template_id = ?
		UNION
		SELECT date FROM committed_transactions WHERE template_id = ?
		ORDER BY 1`, templateID, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.Date
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		d, err := core.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("parse occurrence date %q: %w", s, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (q *Queries) GetPending(ctx context.Context, id int64) (core.PendingTransaction, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+pendingColumns+` FROM pending_transactions WHERE id = ?`, id)
	return scanPending(row)
}

func (q *Queries) ListPending(ctx context.Context, status core.TransactionStatus) ([]core.PendingTransaction, error) {
	query := `SELECT ` + pendingColumns + ` FROM pending_transactions`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY occurrence_date, id`
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.PendingTransaction
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ResolvePending moves a row out of status pending. Returns 0 when the row was not pending.
func (q *Queries) ResolvePending(ctx context.Context, id int64, status core.TransactionStatus, committedID int64, at time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE pending_transactions SET status = ?, committed_id = ?, resolved_at = ?
		WHERE id = ? AND status = 'pending'`,
		string(status), nullInt(committedID), formatTime(at), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Committed transactions

func (q *Queries) InsertCommitted(ctx context.Context, c core.CommittedTransaction) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO committed_transactions (pending_id, template_id, account_id, amount_cents, currency,
			category_id, subcategory_id, description, date, committed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullInt(c.PendingID), nullInt(c.TemplateID), c.AccountID, c.Amount.Cents, c.Currency,
		c.CategoryID, nullInt(c.SubcategoryID), c.Description, c.Date.String(), formatTime(c.CommittedAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (q *Queries) GetCommitted(ctx context.Context, id int64) (core.CommittedTransaction, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+committedColumns+` FROM committed_transactions WHERE id = ?`, id)
	return scanCommitted(row)
}

func (q *Queries) ListCommitted(ctx context.Context, from, to core.Date) ([]core.CommittedTransaction, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsEmpty() {
		conds = append(conds, "date >= ?")
		args = append(args, from.String())
	}
	if !to.IsEmpty() {
		conds = append(conds, "date <= ?")
		args = append(args, to.String())
	}
	query := `SELECT ` + committedColumns + ` FROM committed_transactions`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY date, id`
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []core.CommittedTransaction
	for rows.Next() {
		c, err := scanCommitted(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Registries

func (q *Queries) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	var a core.Account
	err := q.db.QueryRowContext(ctx, `SELECT id, name, currency, owner FROM accounts WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.Currency, &a.Owner)
	return a, err
}

func (q *Queries) UpsertAccount(ctx context.Context, a core.Account) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, currency, owner) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, currency = excluded.currency, owner = excluded.owner`,
		a.ID, a.Name, a.Currency, a.Owner)
	return err
}

func (q *Queries) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var (
		c      core.Category
		parent sql.NullInt64
	)
	err := q.db.QueryRowContext(ctx, `SELECT id, parent_id, name FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &parent, &c.Name)
	c.ParentID = parent.Int64
	return c, err
}

func (q *Queries) UpsertCategory(ctx context.Context, c core.Category) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO categories (id, parent_id, name) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET parent_id = excluded.parent_id, name = excluded.name`,
		c.ID, nullInt(c.ParentID), c.Name)
	return err
}

// Scanning helpers

func scanTemplate(s scanner) (core.RecurringTemplate, error) {
	var (
		t                    core.RecurringTemplate
		pattern, start       string
		sub, dom             sql.NullInt64
		end, last            sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&t.ID, &t.Name, &t.Description, &t.AccountID, &t.Amount.Cents, &t.Currency, &t.CategoryID,
		&sub, &pattern, &t.Interval, &dom, &start, &end, &t.IsActive, &last, &createdAt, &updatedAt)
	if err != nil {
		return core.RecurringTemplate{}, err
	}
	t.SubcategoryID = sub.Int64
	t.DayOfMonth = int(dom.Int64)
	t.Pattern = core.RecurrencePattern(pattern)
	if t.StartDate, err = core.ParseDate(start); err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("parse start_date: %w", err)
	}
	if t.EndDate, err = parseNullDate(end); err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("parse end_date: %w", err)
	}
	if t.LastGenerated, err = parseNullDate(last); err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("parse last_generated: %w", err)
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

func scanPending(s scanner) (core.PendingTransaction, error) {
	var (
		p                    core.PendingTransaction
		tmpl, sub, committed sql.NullInt64
		date, status         string
		createdAt            string
		resolvedAt           sql.NullString
	)
	err := s.Scan(&p.ID, &tmpl, &p.AccountID, &p.Amount.Cents, &p.Currency, &p.CategoryID, &sub,
		&p.Description, &date, &status, &committed, &createdAt, &resolvedAt)
	if err != nil {
		return core.PendingTransaction{}, err
	}
	p.TemplateID = tmpl.Int64
	p.SubcategoryID = sub.Int64
	p.CommittedID = committed.Int64
	p.Status = core.TransactionStatus(status)
	if p.OccurrenceDate, err = core.ParseDate(date); err != nil {
		return core.PendingTransaction{}, fmt.Errorf("parse occurrence_date: %w", err)
	}
	p.CreatedAt = parseTime(createdAt)
	if resolvedAt.Valid {
		p.ResolvedAt = parseTime(resolvedAt.String)
	}
	return p, nil
}

func scanCommitted(s scanner) (core.CommittedTransaction, error) {
	var (
		c                  core.CommittedTransaction
		pending, tmpl, sub sql.NullInt64
		date, committedAt  string
	)
	err := s.Scan(&c.ID, &pending, &tmpl, &c.AccountID, &c.Amount.Cents, &c.Currency, &c.CategoryID,
		&sub, &c.Description, &date, &committedAt)
	if err != nil {
		return core.CommittedTransaction{}, err
	}
	c.PendingID = pending.Int64
	c.TemplateID = tmpl.Int64
	c.SubcategoryID = sub.Int64
	if c.Date, err = core.ParseDate(date); err != nil {
		return core.CommittedTransaction{}, fmt.Errorf("parse date: %w", err)
	}
	c.CommittedAt = parseTime(committedAt)
	return c, nil
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func nullDate(d core.Date) sql.NullString {
	return sql.NullString{String: d.String(), Valid: !d.IsEmpty()}
}

func parseNullDate(s sql.NullString) (core.Date, error) {
	if !s.Valid || s.String == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s.String)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
