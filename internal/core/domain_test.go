package core

import (
	"errors"
	"testing"
	"time"
)

func validTemplate() RecurringTemplate {
	return RecurringTemplate{
		Name:       "Rent",
		AccountID:  1,
		Amount:     Money{Cents: -95000},
		Currency:   "EUR",
		CategoryID: 3,
		Pattern:    Monthly,
		Interval:   1,
		DayOfMonth: 1,
		StartDate:  NewDate(2024, 1, 1),
		IsActive:   true,
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: -1}).Validate(); err != nil {
		t.Fatalf("expected ok for negative amount, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestClampedDate(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		day   int
		want  Date
	}{
		{2024, time.February, 31, NewDate(2024, 2, 29)},
		{2023, time.February, 31, NewDate(2023, 2, 28)},
		{2024, time.April, 31, NewDate(2024, 4, 30)},
		{2024, time.January, 15, NewDate(2024, 1, 15)},
		{2024, 14, 31, NewDate(2025, 2, 28)}, // month overflow normalizes first
	}
	for _, tc := range cases {
		if got := ClampedDate(tc.year, tc.month, tc.day); !got.Equal(tc.want) {
			t.Errorf("ClampedDate(%d, %d, %d) = %s, want %s", tc.year, tc.month, tc.day, got, tc.want)
		}
	}
}

func TestParseDateAndString(t *testing.T) {
	d, err := ParseDate("2024-03-01")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.String() != "2024-03-01" {
		t.Fatalf("String() = %q", d.String())
	}
	if _, err := ParseDate("01/03/2024"); err == nil {
		t.Fatalf("expected error for wrong layout")
	}
	if (Date{}).String() != "" {
		t.Fatalf("zero date should format as empty string")
	}
}

func TestRecurringTemplateValidate(t *testing.T) {
	if err := validTemplate().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name  string
		field string
		edit  func(*RecurringTemplate)
	}{
		{"missing name", "name", func(r *RecurringTemplate) { r.Name = "  " }},
		{"missing account", "account_id", func(r *RecurringTemplate) { r.AccountID = 0 }},
		{"zero amount", "amount", func(r *RecurringTemplate) { r.Amount = Money{} }},
		{"bad currency", "currency", func(r *RecurringTemplate) { r.Currency = "eur" }},
		{"missing category", "category_id", func(r *RecurringTemplate) { r.CategoryID = 0 }},
		{"unknown pattern", "recurrence_pattern", func(r *RecurringTemplate) { r.Pattern = "hourly" }},
		{"zero interval", "recurrence_interval", func(r *RecurringTemplate) { r.Interval = 0 }},
		{"interval too large", "recurrence_interval", func(r *RecurringTemplate) { r.Interval = MaxInterval + 1 }},
		{"day of month too large", "day_of_month", func(r *RecurringTemplate) { r.DayOfMonth = 32 }},
		{"day of month on weekly", "day_of_month", func(r *RecurringTemplate) { r.Pattern = Weekly }},
		{"missing start", "start_date", func(r *RecurringTemplate) { r.StartDate = Date{} }},
		{"end before start", "end_date", func(r *RecurringTemplate) { r.EndDate = NewDate(2023, 12, 31) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := validTemplate()
			tt.edit(&tmpl)
			err := tmpl.Validate()
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("expected field %q, got %v", tt.field, err)
			}
		})
	}
}

func TestOccurrenceCopiesTemplateFields(t *testing.T) {
	tmpl := validTemplate()
	tmpl.ID = 7
	tmpl.SubcategoryID = 9
	p := tmpl.Occurrence(NewDate(2024, 2, 1))

	if p.TemplateID != 7 || p.AccountID != 1 || p.Amount.Cents != -95000 || p.Currency != "EUR" ||
		p.CategoryID != 3 || p.SubcategoryID != 9 {
		t.Fatalf("fields not copied verbatim: %+v", p)
	}
	if p.Description != "Rent" {
		t.Fatalf("description should fall back to name, got %q", p.Description)
	}
	if p.Status != StatusPending {
		t.Fatalf("status = %s, want pending", p.Status)
	}

	tmpl.Description = "Monthly rent"
	if got := tmpl.Occurrence(NewDate(2024, 2, 1)).Description; got != "Monthly rent" {
		t.Fatalf("description = %q", got)
	}
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{NewValidationError("x", "bad"), KindValidation},
		{ErrNotFound, KindNotFound},
		{errors.Join(errors.New("ctx"), ErrConflict), KindConflict},
		{&LookupError{Kind: "account", ID: 1, Err: ErrNotFound}, KindLookup},
		{errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
