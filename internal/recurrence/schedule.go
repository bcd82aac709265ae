package recurrence

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

// Expansion is the result of expanding one template over a window.
type Expansion struct {
	Dates []core.Date
	// Truncated is set when the limit stopped the expansion before asOf.
	Truncated bool
}

// Occurrences returns the occurrence dates of t that fall after `after` (exclusive, ignored
// when empty) and on or before asOf, never before the start date nor past the end date.
// Dates are ascending. limit <= 0 means no limit.
//
// The template's schedule is validated first; an inconsistent schedule returns a
// *core.ValidationError and no dates. Expansion stops with ctx's error when ctx is done.
func Occurrences(ctx context.Context, t core.RecurringTemplate, after, asOf core.Date, limit int) (Expansion, error) {
	if err := t.ValidateSchedule(); err != nil {
		return Expansion{}, err
	}
	stepper, err := GetStepper(t.Pattern)
	if err != nil {
		return Expansion{}, core.NewValidationError("recurrence_pattern", err.Error())
	}

	upper := asOf
	if !t.EndDate.IsEmpty() && t.EndDate.Before(upper) {
		upper = t.EndDate
	}
	lower := t.StartDate
	if !after.IsEmpty() && !after.Before(lower) {
		lower = after.AddDays(1)
	}
	if lower.After(upper) {
		return Expansion{}, nil
	}

	k := 0
	if lower.After(t.StartDate) {
		k = stepper.Units(t.StartDate, lower)/t.Interval - 1
		if k < 0 {
			k = 0
		}
	}

	var (
		out  Expansion
		prev core.Date
	)
	for ; ; k++ {
		if err := ctx.Err(); err != nil {
			return Expansion{}, err
		}
		d := stepper.Nth(t.StartDate, k, t.Interval, t.DayOfMonth)
		if !prev.IsEmpty() && !d.After(prev) {
			return Expansion{}, core.NewValidationError("recurrence_interval",
				fmt.Sprintf("schedule does not advance past %s", prev))
		}
		prev = d
		if d.After(upper) {
			break
		}
		if d.Before(lower) {
			continue
		}
		if limit > 0 && len(out.Dates) == limit {
			out.Truncated = true
			break
		}
		out.Dates = append(out.Dates, d)
	}
	return out, nil
}

// IsEligible reports whether a template takes part in a generation run at asOf:
// it must be active and already started. Templates past their end date stay eligible
// so that occurrences up to the end date are still caught up.
func IsEligible(t core.RecurringTemplate, asOf core.Date) bool {
	if !t.IsActive {
		return false
	}
	return !t.StartDate.After(asOf)
}
