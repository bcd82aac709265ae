package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	Daily   RecurrencePattern = "daily"
	Weekly  RecurrencePattern = "weekly"
	Monthly RecurrencePattern = "monthly"
	Yearly  RecurrencePattern = "yearly"
)

const (
	StatusPending   TransactionStatus = "pending"
	StatusConfirmed TransactionStatus = "confirmed"
	StatusRejected  TransactionStatus = "rejected"
)

const dateLayout = "2006-01-02"

// MaxInterval bounds recurrence_interval so occurrence arithmetic stays far from overflow.
const MaxInterval = 1200

type (
	RecurrencePattern string

	TransactionStatus string

	// Date is a calendar day in UTC. The zero value means "unset".
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	RecurringTemplate struct {
		ID            int64
		Name          string
		Description   string
		AccountID     int64
		Amount        Money
		Currency      string
		CategoryID    int64
		SubcategoryID int64 // 0 when the template has no subcategory
		Pattern       RecurrencePattern
		Interval      int
		DayOfMonth    int // 0 when unset; only used by monthly templates
		StartDate     Date
		EndDate       Date
		IsActive      bool
		LastGenerated Date
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	PendingTransaction struct {
		ID             int64
		TemplateID     int64 // 0 for manual entries
		AccountID      int64
		Amount         Money
		Currency       string
		CategoryID     int64
		SubcategoryID  int64
		Description    string
		OccurrenceDate Date
		Status         TransactionStatus
		CommittedID    int64
		CreatedAt      time.Time
		ResolvedAt     time.Time
	}

	CommittedTransaction struct {
		ID            int64
		PendingID     int64
		TemplateID    int64
		AccountID     int64
		Amount        Money
		Currency      string
		CategoryID    int64
		SubcategoryID int64
		Description   string
		Date          Date
		CommittedAt   time.Time
	}

	Account struct {
		ID       int64
		Name     string
		Currency string
		Owner    string
	}

	Category struct {
		ID       int64
		ParentID int64 // 0 for top-level types
		Name     string
	}
)

// NewDate creates a new Date from year, month, day. Out-of-range days normalize like time.Date.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// IsEmpty reports whether the date is unset.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String formats the date as YYYY-MM-DD, or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Equal reports whether both dates are the same day.
func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampedDate builds a date, pinning day to the last day of the month when the month is shorter.
// month may be outside 1..12; it is normalized first.
func ClampedDate(year int, month time.Month, day int) Date {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	y, m := first.Year(), first.Month()
	if last := DaysIn(y, m); day > last {
		day = last
	}
	return NewDate(y, int(m), day)
}

func (p RecurrencePattern) IsValid() bool {
	switch p {
	case Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

func (s TransactionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is allowed.
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusRejected
}

func (m Money) Validate() error {
	if m.Cents == 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateSchedule checks only the recurrence fields. The engine uses it to skip templates
// whose stored configuration became inconsistent.
func (t RecurringTemplate) ValidateSchedule() error {
	if !t.Pattern.IsValid() {
		return NewValidationError("recurrence_pattern", fmt.Sprintf("unknown pattern %q", t.Pattern))
	}
	if t.Interval <= 0 {
		return NewValidationError("recurrence_interval", "must be a positive integer")
	}
	if t.Interval > MaxInterval {
		return NewValidationError("recurrence_interval", fmt.Sprintf("must be at most %d", MaxInterval))
	}
	if t.DayOfMonth < 0 || t.DayOfMonth > 31 {
		return NewValidationError("day_of_month", "must be between 1 and 31")
	}
	if t.DayOfMonth != 0 && t.Pattern != Monthly {
		return NewValidationError("day_of_month", "only allowed for monthly templates")
	}
	if t.StartDate.IsEmpty() {
		return NewValidationError("start_date", "is required")
	}
	if !t.EndDate.IsEmpty() && t.EndDate.Before(t.StartDate) {
		return NewValidationError("end_date", "must not be before start date")
	}
	return nil
}

func (t RecurringTemplate) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return NewValidationError("name", "is required")
	}
	if len(t.Name) > 200 {
		return NewValidationError("name", "too long (max 200 characters)")
	}
	if len(t.Description) > 200 {
		return NewValidationError("description", "too long (max 200 characters)")
	}
	if t.AccountID <= 0 {
		return NewValidationError("account_id", "is required")
	}
	if err := t.Amount.Validate(); err != nil {
		return NewValidationError("amount", "must be nonzero")
	}
	if t.Currency != "" && !IsCurrencyCode(t.Currency) {
		return NewValidationError("currency", fmt.Sprintf("invalid currency code %q", t.Currency))
	}
	if t.CategoryID <= 0 {
		return NewValidationError("category_id", "is required")
	}
	if t.SubcategoryID < 0 {
		return NewValidationError("subcategory_id", "must not be negative")
	}
	return t.ValidateSchedule()
}

// MaterializedDescription is the description copied into generated pending transactions.
func (t RecurringTemplate) MaterializedDescription() string {
	if d := strings.TrimSpace(t.Description); d != "" {
		return d
	}
	return t.Name
}

// Occurrence builds the pending transaction for one occurrence date.
func (t RecurringTemplate) Occurrence(date Date) PendingTransaction {
	return PendingTransaction{
		TemplateID:     t.ID,
		AccountID:      t.AccountID,
		Amount:         t.Amount,
		Currency:       t.Currency,
		CategoryID:     t.CategoryID,
		SubcategoryID:  t.SubcategoryID,
		Description:    t.MaterializedDescription(),
		OccurrenceDate: date,
		Status:         StatusPending,
	}
}

// Commit builds the committed record for a confirmed pending transaction.
func (p PendingTransaction) Commit(at time.Time) CommittedTransaction {
	return CommittedTransaction{
		PendingID:     p.ID,
		TemplateID:    p.TemplateID,
		AccountID:     p.AccountID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		CategoryID:    p.CategoryID,
		SubcategoryID: p.SubcategoryID,
		Description:   p.Description,
		Date:          p.OccurrenceDate,
		CommittedAt:   at,
	}
}

// IsCurrencyCode reports whether s looks like an ISO-4217 code.
func IsCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
