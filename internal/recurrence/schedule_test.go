package recurrence

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
)

func template(pattern core.RecurrencePattern, interval int, start core.Date) core.RecurringTemplate {
	return core.RecurringTemplate{
		ID:         1,
		Name:       "t",
		AccountID:  1,
		Amount:     core.Money{Cents: -100},
		Currency:   "EUR",
		CategoryID: 1,
		Pattern:    pattern,
		Interval:   interval,
		StartDate:  start,
		IsActive:   true,
	}
}

func dates(ds ...core.Date) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.String()
	}
	return out
}

func assertDates(t *testing.T, got []core.Date, want ...string) {
	t.Helper()
	g := dates(got...)
	if len(g) != len(want) {
		t.Fatalf("got %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("got %v, want %v", g, want)
		}
	}
}

func TestOccurrences(t *testing.T) {
	tests := []struct {
		name  string
		tmpl  func() core.RecurringTemplate
		after core.Date
		asOf  core.Date
		want  []string
	}{
		{
			name: "monthly with end date stops at end",
			tmpl: func() core.RecurringTemplate {
				tm := template(core.Monthly, 1, core.NewDate(2024, 1, 1))
				tm.EndDate = core.NewDate(2024, 3, 31)
				return tm
			},
			asOf: core.NewDate(2024, 6, 1),
			want: []string{"2024-01-01", "2024-02-01", "2024-03-01"},
		},
		{
			name: "daily every 7 days includes asOf",
			tmpl: func() core.RecurringTemplate { return template(core.Daily, 7, core.NewDate(2024, 1, 1)) },
			asOf: core.NewDate(2024, 1, 22),
			want: []string{"2024-01-01", "2024-01-08", "2024-01-15", "2024-01-22"},
		},
		{
			name: "monthly day 31 clamps in february",
			tmpl: func() core.RecurringTemplate {
				tm := template(core.Monthly, 1, core.NewDate(2024, 1, 31))
				tm.DayOfMonth = 31
				return tm
			},
			asOf: core.NewDate(2024, 4, 30),
			want: []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30"},
		},
		{
			name: "monthly without pinned day keeps start day after clamping",
			tmpl: func() core.RecurringTemplate { return template(core.Monthly, 1, core.NewDate(2023, 1, 31)) },
			asOf: core.NewDate(2023, 3, 31),
			want: []string{"2023-01-31", "2023-02-28", "2023-03-31"},
		},
		{
			name: "monthly pinned day before start day skips first month",
			tmpl: func() core.RecurringTemplate {
				tm := template(core.Monthly, 1, core.NewDate(2024, 1, 15))
				tm.DayOfMonth = 10
				return tm
			},
			asOf: core.NewDate(2024, 3, 20),
			want: []string{"2024-02-10", "2024-03-10"},
		},
		{
			name: "every two months",
			tmpl: func() core.RecurringTemplate { return template(core.Monthly, 2, core.NewDate(2024, 1, 5)) },
			asOf: core.NewDate(2024, 7, 4),
			want: []string{"2024-01-05", "2024-03-05", "2024-05-05"},
		},
		{
			name: "weekly interval 2",
			tmpl: func() core.RecurringTemplate { return template(core.Weekly, 2, core.NewDate(2024, 1, 1)) },
			asOf: core.NewDate(2024, 2, 1),
			want: []string{"2024-01-01", "2024-01-15", "2024-01-29"},
		},
		{
			name: "yearly on leap day clamps",
			tmpl: func() core.RecurringTemplate { return template(core.Yearly, 1, core.NewDate(2024, 2, 29)) },
			asOf: core.NewDate(2028, 3, 1),
			want: []string{"2024-02-29", "2025-02-28", "2026-02-28", "2027-02-28", "2028-02-29"},
		},
		{
			name:  "resumes after last generated",
			tmpl:  func() core.RecurringTemplate { return template(core.Monthly, 1, core.NewDate(2024, 1, 1)) },
			after: core.NewDate(2024, 2, 1),
			asOf:  core.NewDate(2024, 4, 15),
			want:  []string{"2024-03-01", "2024-04-01"},
		},
		{
			name:  "nothing new when last generated is asOf",
			tmpl:  func() core.RecurringTemplate { return template(core.Daily, 1, core.NewDate(2024, 1, 1)) },
			after: core.NewDate(2024, 1, 10),
			asOf:  core.NewDate(2024, 1, 10),
			want:  nil,
		},
		{
			name:  "skip ahead over a long daily history",
			tmpl:  func() core.RecurringTemplate { return template(core.Daily, 3, core.NewDate(2000, 1, 1)) },
			after: core.NewDate(2024, 1, 1),
			asOf:  core.NewDate(2024, 1, 8),
			// 2000-01-01 + 3k days: 8766 days to 2024-01-01 (8766 = 3*2922) lands on 2024-01-01.
			want: []string{"2024-01-04", "2024-01-07"},
		},
		{
			name: "start in the future yields nothing",
			tmpl: func() core.RecurringTemplate { return template(core.Daily, 1, core.NewDate(2025, 1, 1)) },
			asOf: core.NewDate(2024, 12, 31),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Occurrences(context.Background(), tt.tmpl(), tt.after, tt.asOf, 0)
			if err != nil {
				t.Fatalf("Occurrences() error = %v", err)
			}
			if got.Truncated {
				t.Fatalf("unexpected truncation")
			}
			assertDates(t, got.Dates, tt.want...)
		})
	}
}

func TestOccurrencesLimit(t *testing.T) {
	tm := template(core.Daily, 1, core.NewDate(2024, 1, 1))

	got, err := Occurrences(context.Background(), tm, core.Date{}, core.NewDate(2024, 1, 10), 3)
	if err != nil {
		t.Fatalf("Occurrences() error = %v", err)
	}
	if !got.Truncated {
		t.Fatalf("expected truncation")
	}
	assertDates(t, got.Dates, "2024-01-01", "2024-01-02", "2024-01-03")

	got, err = Occurrences(context.Background(), tm, core.Date{}, core.NewDate(2024, 1, 3), 3)
	if err != nil {
		t.Fatalf("Occurrences() error = %v", err)
	}
	if got.Truncated {
		t.Fatalf("limit reached exactly at asOf must not report truncation")
	}
}

func TestOccurrencesInvalidSchedule(t *testing.T) {
	tests := []struct {
		name string
		edit func(*core.RecurringTemplate)
	}{
		{"zero interval", func(tm *core.RecurringTemplate) { tm.Interval = 0 }},
		{"negative interval", func(tm *core.RecurringTemplate) { tm.Interval = -2 }},
		{"day of month out of range", func(tm *core.RecurringTemplate) { tm.DayOfMonth = 40 }},
		{"unknown pattern", func(tm *core.RecurringTemplate) { tm.Pattern = "fortnightly" }},
		{"interval too large", func(tm *core.RecurringTemplate) { tm.Interval = 1 << 60 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := template(core.Monthly, 1, core.NewDate(2024, 1, 1))
			tt.edit(&tm)
			_, err := Occurrences(context.Background(), tm, core.Date{}, core.NewDate(2024, 6, 1), 0)
			if !errors.Is(err, core.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestOccurrencesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tm := template(core.Daily, 1, core.NewDate(2024, 1, 1))
	if _, err := Occurrences(ctx, tm, core.Date{}, core.NewDate(2024, 12, 31), 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// stuckStepper never advances past the start date.
type stuckStepper struct{}

func (stuckStepper) Nth(start core.Date, _, _, _ int) core.Date { return start }
func (stuckStepper) Units(start, d core.Date) int               { return daysBetween(start, d) }

func TestOccurrencesStopsWhenScheduleDoesNotAdvance(t *testing.T) {
	orig := steppers[core.Daily]
	steppers[core.Daily] = stuckStepper{}
	t.Cleanup(func() { steppers[core.Daily] = orig })

	tm := template(core.Daily, 1, core.NewDate(2024, 1, 1))
	for _, after := range []core.Date{{}, core.NewDate(2024, 1, 5)} {
		_, err := Occurrences(context.Background(), tm, after, core.NewDate(2024, 2, 1), 0)
		if !errors.Is(err, core.ErrValidation) {
			t.Fatalf("after %s: expected validation error, got %v", after, err)
		}
	}
}

func TestIsEligible(t *testing.T) {
	asOf := core.NewDate(2024, 6, 1)

	active := template(core.Monthly, 1, core.NewDate(2024, 1, 1))
	if !IsEligible(active, asOf) {
		t.Errorf("active started template should be eligible")
	}

	inactive := active
	inactive.IsActive = false
	if IsEligible(inactive, asOf) {
		t.Errorf("inactive template must not be eligible")
	}

	future := template(core.Monthly, 1, core.NewDate(2024, 7, 1))
	if IsEligible(future, asOf) {
		t.Errorf("template starting after asOf must not be eligible")
	}

	ended := active
	ended.EndDate = core.NewDate(2024, 3, 31)
	if !IsEligible(ended, asOf) {
		t.Errorf("ended template stays eligible so it can catch up to its end date")
	}
}

func TestGetStepper(t *testing.T) {
	for _, p := range []core.RecurrencePattern{core.Daily, core.Weekly, core.Monthly, core.Yearly} {
		if _, err := GetStepper(p); err != nil {
			t.Errorf("GetStepper(%s) error = %v", p, err)
		}
	}
	if _, err := GetStepper("hourly"); err == nil {
		t.Errorf("expected error for unknown pattern")
	}
}
