package core

import "time"

// AddMonths advances a date by the given number of months, clamping the
// day to the last valid day of the target month. Starting on the 31st and
// stepping into a shorter month lands on that month's final day; the
// original day-of-month is not remembered across a single call, so callers
// that need a stable anchor must always step from the anchor date.
func AddMonths(d Date, months int) Date {
	idx := d.Year()*12 + (d.Month() - 1) + months
	year := idx / 12
	month := idx%12 + 1

	day := d.Day()
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// AddDays advances a date by n calendar days.
func AddDays(d Date, n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year, month int) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// EndOfMonth returns the last day of the date's month.
func EndOfMonth(d Date) Date {
	return NewDate(d.Year(), d.Month(), DaysInMonth(d.Year(), d.Month()))
}

// StartOfMonth returns the first day of the date's month.
func StartOfMonth(d Date) Date {
	return NewDate(d.Year(), d.Month(), 1)
}

// WeekdayIndex returns the Monday-first weekday index (Mon=0 .. Sun=6),
// used to align the first of the month in the calendar grid.
func WeekdayIndex(d Date) int {
	return (int(d.Time.Weekday()) + 6) % 7
}
