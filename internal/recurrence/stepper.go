// Package recurrence expands recurring templates into occurrence dates.
//
// This file implements the Strategy Pattern for schedule stepping. Each
// recurrence pattern (daily, weekly, monthly, yearly) has its own stepper
// that knows how to compute the k-th occurrence from the start date.
package recurrence

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// Stepper is the strategy interface for one recurrence pattern.
type Stepper interface {
	// Nth returns the k-th occurrence (k >= 0) counted from start.
	// Occurrences are computed from start directly so clamping never drifts.
	Nth(start core.Date, k, interval, dayOfMonth int) core.Date

	// Units returns the number of whole base units (days, weeks, months, years)
	// between start and d. Used to skip ahead without walking every occurrence.
	Units(start, d core.Date) int
}

// DailyStepper steps by interval days.
type DailyStepper struct{}

func (DailyStepper) Nth(start core.Date, k, interval, _ int) core.Date {
	return start.AddDays(k * interval)
}

func (DailyStepper) Units(start, d core.Date) int {
	return daysBetween(start, d)
}

// WeeklyStepper steps by interval weeks.
type WeeklyStepper struct{}

func (WeeklyStepper) Nth(start core.Date, k, interval, _ int) core.Date {
	return start.AddDays(7 * k * interval)
}

func (WeeklyStepper) Units(start, d core.Date) int {
	return daysBetween(start, d) / 7
}

// MonthlyStepper steps by interval months, pinned to dayOfMonth when set and to the
// start day otherwise. Days past the end of a short month clamp to its last day.
type MonthlyStepper struct{}

func (MonthlyStepper) Nth(start core.Date, k, interval, dayOfMonth int) core.Date {
	day := dayOfMonth
	if day == 0 {
		day = start.Day()
	}
	return core.ClampedDate(start.Year(), start.Month()+time.Month(k*interval), day)
}

func (MonthlyStepper) Units(start, d core.Date) int {
	return (d.Year()-start.Year())*12 + int(d.Month()) - int(start.Month())
}

// YearlyStepper steps by interval years on the start month and day (Feb 29 clamps to Feb 28).
type YearlyStepper struct{}

func (YearlyStepper) Nth(start core.Date, k, interval, _ int) core.Date {
	return core.ClampedDate(start.Year()+k*interval, start.Month(), start.Day())
}

func (YearlyStepper) Units(start, d core.Date) int {
	return d.Year() - start.Year()
}

// steppers maps recurrence patterns to their strategies.
var steppers = map[core.RecurrencePattern]Stepper{
	core.Daily:   DailyStepper{},
	core.Weekly:  WeeklyStepper{},
	core.Monthly: MonthlyStepper{},
	core.Yearly:  YearlyStepper{},
}

// GetStepper returns the stepper for a pattern.
func GetStepper(pattern core.RecurrencePattern) (Stepper, error) {
	s, ok := steppers[pattern]
	if !ok {
		return nil, fmt.Errorf("unknown recurrence pattern: %s", pattern)
	}
	return s, nil
}

func daysBetween(a, b core.Date) int {
	return int(b.Time.Sub(a.Time).Hours() / 24)
}
