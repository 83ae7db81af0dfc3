// Package ledger computes running daily balances for calendar rendering.
package ledger

import (
	"easybudget/internal/core"
)

// DailyBalances folds per-day net sums into a running ending balance, one
// entry per calendar day from start to end inclusive, in date order.
// openingCents is the ending balance of the day before start. Days absent
// from dayTotals carry the previous balance forward unchanged.
func DailyBalances(start, end core.Date, openingCents int64, dayTotals map[string]int64) []core.DailyBalance {
	if end.Before(start) {
		return nil
	}

	var out []core.DailyBalance
	running := openingCents
	for d := start; !d.After(end); d = core.AddDays(d, 1) {
		net := dayTotals[d.ISO()]
		running += net
		out = append(out, core.DailyBalance{
			Date:        d,
			NetCents:    net,
			EndingCents: running,
		})
	}
	return out
}
