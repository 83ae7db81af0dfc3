package ledger

import (
	"testing"
)

func TestBuildMonthCalendarAlignment(t *testing.T) {
	// September 2024 starts on a Sunday: six leading blanks.
	cal := BuildMonthCalendar(2024, 9, 0, nil)

	if len(cal.Days) != 30 {
		t.Fatalf("expected 30 days, got %d", len(cal.Days))
	}
	for i := 0; i < 6; i++ {
		if !cal.Cells[i].Blank {
			t.Fatalf("cell %d should be blank padding", i)
		}
	}
	if cal.Cells[6].Blank || cal.Cells[6].Balance.Date.Day() != 1 {
		t.Fatalf("cell 6 should be September 1st")
	}
	if len(cal.Cells)%7 != 0 {
		t.Fatalf("grid not padded to full weeks: %d cells", len(cal.Cells))
	}
}

func TestBuildMonthCalendarNoLeadingBlanksOnMonday(t *testing.T) {
	// January 2024 starts on a Monday.
	cal := BuildMonthCalendar(2024, 1, 0, nil)
	if cal.Cells[0].Blank {
		t.Fatal("expected the 1st in the first cell")
	}
	if cal.Cells[0].Balance.Date.Day() != 1 {
		t.Fatalf("first cell is day %d", cal.Cells[0].Balance.Date.Day())
	}
}

func TestBuildMonthCalendarRunningBalance(t *testing.T) {
	totals := map[string]int64{
		"2024-01-05": -2000,
		"2024-01-20": 150000,
	}
	cal := BuildMonthCalendar(2024, 1, 5000, totals)

	if cal.Days[0].EndingCents != 5000 {
		t.Fatalf("day 1 ending = %d, want 5000", cal.Days[0].EndingCents)
	}
	if cal.Days[4].EndingCents != 3000 {
		t.Fatalf("day 5 ending = %d, want 3000", cal.Days[4].EndingCents)
	}
	if cal.ClosingCents() != 5000-2000+150000 {
		t.Fatalf("closing = %d", cal.ClosingCents())
	}
}
