package ledger

import (
	"easybudget/internal/core"
)

// Cell is one slot of the month grid. Leading and trailing padding cells
// keep the 1st aligned under its weekday in a Monday-first layout.
type Cell struct {
	Blank   bool
	Balance core.DailyBalance
}

// MonthCalendar is the fully computed month view: the running balances
// for every day plus the grid cells the UI paints, in 7-column rows.
type MonthCalendar struct {
	Year         int
	Month        int
	OpeningCents int64
	Days         []core.DailyBalance
	Cells        []Cell
}

// BuildMonthCalendar computes the calendar for a month. openingCents is
// the ending balance on the day before the 1st; dayTotals maps ISO dates
// to per-day net sums.
func BuildMonthCalendar(year, month int, openingCents int64, dayTotals map[string]int64) MonthCalendar {
	first := core.NewDate(year, month, 1)
	last := core.EndOfMonth(first)

	days := DailyBalances(first, last, openingCents, dayTotals)

	cells := make([]Cell, 0, 42)
	for i := 0; i < core.WeekdayIndex(first); i++ {
		cells = append(cells, Cell{Blank: true})
	}
	for _, db := range days {
		cells = append(cells, Cell{Balance: db})
	}
	for len(cells)%7 != 0 {
		cells = append(cells, Cell{Blank: true})
	}

	return MonthCalendar{
		Year:         year,
		Month:        month,
		OpeningCents: openingCents,
		Days:         days,
		Cells:        cells,
	}
}

// ClosingCents returns the ending balance on the last day of the month.
func (c MonthCalendar) ClosingCents() int64 {
	if len(c.Days) == 0 {
		return c.OpeningCents
	}
	return c.Days[len(c.Days)-1].EndingCents
}
