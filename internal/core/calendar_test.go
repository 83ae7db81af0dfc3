package core

import "testing"

func TestAddMonthsClampsToMonthEnd(t *testing.T) {
	cases := []struct {
		start  Date
		months int
		want   string
	}{
		{NewDate(2024, 1, 31), 1, "2024-02-29"}, // leap year
		{NewDate(2023, 1, 31), 1, "2023-02-28"},
		{NewDate(2024, 1, 31), 2, "2024-03-31"},
		{NewDate(2024, 1, 31), 3, "2024-04-30"},
		{NewDate(2024, 11, 30), 3, "2025-02-28"}, // year rollover
		{NewDate(2024, 5, 15), 12, "2025-05-15"},
	}
	for _, tc := range cases {
		got := AddMonths(tc.start, tc.months)
		if got.ISO() != tc.want {
			t.Fatalf("AddMonths(%s, %d) = %s, want %s", tc.start.ISO(), tc.months, got.ISO(), tc.want)
		}
	}
}

func TestEndOfMonth(t *testing.T) {
	if got := EndOfMonth(NewDate(2024, 2, 3)).ISO(); got != "2024-02-29" {
		t.Fatalf("got %s", got)
	}
	if got := EndOfMonth(NewDate(2025, 2, 3)).ISO(); got != "2025-02-28" {
		t.Fatalf("got %s", got)
	}
}

func TestWeekdayIndexMondayFirst(t *testing.T) {
	// 2024-01-01 was a Monday.
	if got := WeekdayIndex(NewDate(2024, 1, 1)); got != 0 {
		t.Fatalf("Monday index = %d, want 0", got)
	}
	// 2024-09-01 was a Sunday.
	if got := WeekdayIndex(NewDate(2024, 9, 1)); got != 6 {
		t.Fatalf("Sunday index = %d, want 6", got)
	}
}
