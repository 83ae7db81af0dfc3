// Package recurrence materializes recurring-rule occurrences.
//
// This file implements the Strategy Pattern for interval stepping. Each
// interval unit (day, week, month) has its own stepper that computes the
// date of the k-th occurrence from the rule's start date.
package recurrence

import (
	"fmt"

	"easybudget/internal/core"
)

// Stepper computes occurrence dates for one interval unit. Occurrence 0
// is always the start date itself. Stepping is anchor-based: the k-th
// occurrence is derived from the start date, not from the previous
// occurrence, so a monthly rule anchored on the 31st returns to the 31st
// after passing through a shorter month.
type Stepper interface {
	// Occurrence returns the date of the k-th occurrence (k >= 0) for a
	// rule starting at start with the given interval count.
	Occurrence(start core.Date, everyN, k int) core.Date
}

// DayStepper steps in whole days.
type DayStepper struct{}

func (DayStepper) Occurrence(start core.Date, everyN, k int) core.Date {
	return core.AddDays(start, everyN*k)
}

// WeekStepper steps in whole weeks.
type WeekStepper struct{}

func (WeekStepper) Occurrence(start core.Date, everyN, k int) core.Date {
	return core.AddDays(start, 7*everyN*k)
}

// MonthStepper steps in calendar months, clamping the day to the last
// valid day of the target month.
type MonthStepper struct{}

func (MonthStepper) Occurrence(start core.Date, everyN, k int) core.Date {
	return core.AddMonths(start, everyN*k)
}

var stepStrategies = map[core.IntervalUnit]Stepper{
	core.UnitDay:   DayStepper{},
	core.UnitWeek:  WeekStepper{},
	core.UnitMonth: MonthStepper{},
}

// GetStepper returns the stepper for an interval unit.
func GetStepper(unit core.IntervalUnit) (Stepper, error) {
	s, ok := stepStrategies[unit]
	if !ok {
		return nil, fmt.Errorf("unknown interval unit: %s", unit)
	}
	return s, nil
}
