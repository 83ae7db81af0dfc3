package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"easybudget/internal/core"
	"easybudget/internal/storage"
)

func newTestService(t *testing.T, now time.Time) *LedgerService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "easybudget.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	svc := NewLedgerService(repo, 12)
	svc.now = func() time.Time { return now }
	return svc
}

func TestAddRuleExpandsMonthlyWithClamping(t *testing.T) {
	// Horizon from 2024-01-15 with 12 months reaches 2025-01-31.
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)
	ctx := context.Background()

	_, created, err := svc.AddRule(ctx, core.RecurrenceRule{
		StartDate: core.NewDate(2024, 1, 31),
		Amount:    core.Money{Cents: -10000},
		Note:      "rent",
		EveryN:    1,
		Unit:      core.UnitMonth,
	})
	require.NoError(t, err)
	require.Equal(t, 13, created) // 2024-01-31 .. 2025-01-31

	feb, err := svc.TransactionsOn(ctx, core.NewDate(2024, 2, 29))
	require.NoError(t, err)
	require.Len(t, feb, 1)
	require.Equal(t, int64(-10000), feb[0].Amount.Cents)

	mar, err := svc.TransactionsOn(ctx, core.NewDate(2024, 3, 31))
	require.NoError(t, err)
	require.Len(t, mar, 1)
}

func TestEnsureExpandedIsIdempotent(t *testing.T) {
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)
	ctx := context.Background()

	_, created, err := svc.AddRule(ctx, core.RecurrenceRule{
		StartDate: core.NewDate(2024, 1, 1),
		Amount:    core.Money{Cents: -500},
		Note:      "subscription",
		EveryN:    1,
		Unit:      core.UnitWeek,
	})
	require.NoError(t, err)
	require.Positive(t, created)

	again, err := svc.EnsureExpanded(ctx, now)
	require.NoError(t, err)
	require.Zero(t, again)

	// A later horizon only adds the newly reachable occurrences.
	more, err := svc.EnsureExpanded(ctx, now.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Positive(t, more)
	require.Less(t, more, created)
}

func TestDeleteOccurrenceStaysDeleted(t *testing.T) {
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)
	ctx := context.Background()

	ruleID, _, err := svc.AddRule(ctx, core.RecurrenceRule{
		StartDate: core.NewDate(2024, 2, 1),
		Amount:    core.Money{Cents: -2000},
		Note:      "insurance",
		EveryN:    1,
		Unit:      core.UnitMonth,
	})
	require.NoError(t, err)

	march, err := svc.TransactionsOn(ctx, core.NewDate(2024, 3, 1))
	require.NoError(t, err)
	require.Len(t, march, 1)

	require.NoError(t, svc.DeleteTransaction(ctx, march[0].ID))

	// Re-expansion must not resurrect the deleted occurrence.
	_, err = svc.EnsureExpanded(ctx, now)
	require.NoError(t, err)

	march, err = svc.TransactionsOn(ctx, core.NewDate(2024, 3, 1))
	require.NoError(t, err)
	require.Empty(t, march)

	// The rule and its other occurrences survive.
	rules, err := svc.Rules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.Equal(t, ruleID, rules[0].ID)

	april, err := svc.TransactionsOn(ctx, core.NewDate(2024, 4, 1))
	require.NoError(t, err)
	require.Len(t, april, 1)
}

func TestDeleteSeriesRemovesRuleAndOccurrences(t *testing.T) {
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)
	ctx := context.Background()

	keepID, err := svc.AddTransaction(ctx, core.Transaction{
		Date:   core.NewDate(2024, 2, 1),
		Amount: core.Money{Cents: 170000},
		Note:   "salary",
	})
	require.NoError(t, err)

	ruleID, _, err := svc.AddRule(ctx, core.RecurrenceRule{
		StartDate: core.NewDate(2024, 2, 1),
		Amount:    core.Money{Cents: -3000},
		Note:      "internet",
		EveryN:    1,
		Unit:      core.UnitMonth,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSeries(ctx, ruleID))

	rules, err := svc.Rules(ctx)
	require.NoError(t, err)
	require.Empty(t, rules)

	day, err := svc.TransactionsOn(ctx, core.NewDate(2024, 2, 1))
	require.NoError(t, err)
	require.Len(t, day, 1)
	require.Equal(t, keepID, day[0].ID)
}

func TestAddRuleAdoptsManualStartTransaction(t *testing.T) {
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)
	ctx := context.Background()

	manualID, err := svc.AddTransaction(ctx, core.Transaction{
		Date:   core.NewDate(2024, 2, 1),
		Amount: core.Money{Cents: -7500},
		Note:   "gym",
	})
	require.NoError(t, err)

	ruleID, _, err := svc.AddRule(ctx, core.RecurrenceRule{
		StartDate: core.NewDate(2024, 2, 1),
		Amount:    core.Money{Cents: -7500},
		Note:      "gym",
		EveryN:    1,
		Unit:      core.UnitMonth,
	})
	require.NoError(t, err)

	// Exactly one transaction on the start date, now part of the series.
	day, err := svc.TransactionsOn(ctx, core.NewDate(2024, 2, 1))
	require.NoError(t, err)
	require.Len(t, day, 1)
	require.Equal(t, manualID, day[0].ID)
	require.NotNil(t, day[0].RuleID)
	require.Equal(t, ruleID, *day[0].RuleID)
}

func TestMonthCalendarBalances(t *testing.T) {
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)
	ctx := context.Background()

	_, err := svc.AddTransaction(ctx, core.Transaction{
		Date:   core.NewDate(2023, 12, 28),
		Amount: core.Money{Cents: 50000},
		Note:   "carried in",
	})
	require.NoError(t, err)
	_, err = svc.AddTransaction(ctx, core.Transaction{
		Date:   core.NewDate(2024, 1, 10),
		Amount: core.Money{Cents: -12000},
	})
	require.NoError(t, err)

	cal, err := svc.MonthCalendar(ctx, 2024, 1)
	require.NoError(t, err)
	require.Equal(t, int64(50000), cal.OpeningCents)
	require.Equal(t, int64(50000), cal.Days[0].EndingCents)
	require.Equal(t, int64(38000), cal.Days[9].EndingCents)
	require.Equal(t, int64(38000), cal.ClosingCents())

	bal, err := svc.BalanceOn(ctx, core.NewDate(2024, 1, 31))
	require.NoError(t, err)
	require.Equal(t, int64(38000), bal.Cents)
}

func TestAddTransactionValidation(t *testing.T) {
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)
	ctx := context.Background()

	_, err := svc.AddTransaction(ctx, core.Transaction{
		Date:   core.NewDate(2024, 1, 1),
		Amount: core.Money{Cents: 0},
	})
	require.ErrorIs(t, err, core.ErrInvalidAmount)

	_, _, err = svc.AddRule(ctx, core.RecurrenceRule{
		StartDate: core.NewDate(2024, 1, 1),
		Amount:    core.Money{Cents: -100},
		EveryN:    0,
		Unit:      core.UnitDay,
	})
	require.ErrorIs(t, err, core.ErrInvalidInterval)
}
