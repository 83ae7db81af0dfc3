package recurrence

import (
	"fmt"
	"time"

	"easybudget/internal/core"
)

// DefaultHorizonMonths is how far ahead occurrences are materialized.
const DefaultHorizonMonths = 12

// Horizon returns the furthest date to materialize occurrences for: the
// end of the month monthsAhead months after now.
func Horizon(now time.Time, monthsAhead int) core.Date {
	return core.EndOfMonth(core.AddMonths(core.DateOf(now), monthsAhead))
}

// Occurrences returns the ordered occurrence dates of a rule that fall at
// or before horizon. When after is non-zero, only dates strictly after it
// are returned; callers pass the rule's LastGenerated watermark so that
// re-expansion resumes where the previous run stopped and never recreates
// occurrences the user deleted individually.
func Occurrences(rule core.RecurrenceRule, after core.Date, horizon core.Date) ([]core.Date, error) {
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule: %w", err)
	}

	stepper, err := GetStepper(rule.Unit)
	if err != nil {
		return nil, err
	}

	var dates []core.Date
	for k := 0; ; k++ {
		d := stepper.Occurrence(rule.StartDate, rule.EveryN, k)
		if d.After(horizon) {
			return dates, nil
		}
		if !after.IsZero() && !d.After(after) {
			continue
		}
		dates = append(dates, d)
	}
}
