// Package services provides business logic and orchestration over the
// storage layer: transaction bookkeeping, recurrence materialization and
// calendar computation.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"easybudget/internal/core"
	"easybudget/internal/ledger"
	"easybudget/internal/recurrence"
	"easybudget/internal/storage"
)

// LedgerService owns the storage handle and exposes every operation the
// UI layer invokes synchronously. There is no shared global connection:
// the repository is constructed explicitly and passed in.
type LedgerService struct {
	storage       *storage.SQLiteRepository
	horizonMonths int
	now           func() time.Time
}

func NewLedgerService(repo *storage.SQLiteRepository, horizonMonths int) *LedgerService {
	if horizonMonths < 1 {
		horizonMonths = recurrence.DefaultHorizonMonths
	}
	return &LedgerService{
		storage:       repo,
		horizonMonths: horizonMonths,
		now:           time.Now,
	}
}

// AddTransaction validates and stores a one-off transaction.
func (s *LedgerService) AddTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	return s.storage.CreateTransaction(ctx, t)
}

// UpdateTransaction rewrites an existing transaction. A generated
// occurrence keeps its series membership.
func (s *LedgerService) UpdateTransaction(ctx context.Context, id int64, date core.Date, amount core.Money, note string) error {
	t := core.Transaction{Date: date, Amount: amount, Note: note}
	if err := t.Validate(); err != nil {
		return err
	}
	return s.storage.UpdateTransaction(ctx, id, date, amount.Cents, note)
}

// DeleteTransaction removes exactly one row: a one-off transaction or a
// single occurrence of a series. The rule and its other occurrences are
// untouched, and expansion will not recreate the deleted date because the
// rule's watermark already passed it.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	return s.storage.DeleteTransaction(ctx, id)
}

// GetTransaction returns one transaction by id.
func (s *LedgerService) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return s.storage.GetTransaction(ctx, id)
}

// TransactionsOn lists the transactions of a single day.
func (s *LedgerService) TransactionsOn(ctx context.Context, date core.Date) ([]core.Transaction, error) {
	return s.storage.ListTransactionsByDate(ctx, date)
}

// TransactionsInRange lists the transactions between first and last,
// inclusive.
func (s *LedgerService) TransactionsInRange(ctx context.Context, first, last core.Date) ([]core.Transaction, error) {
	if last.Before(first) {
		return nil, core.ErrInvalidDate
	}
	return s.storage.ListTransactionsInRange(ctx, first, last)
}

// AddRule validates and stores a recurrence rule, folds a pre-existing
// manual transaction on the start date into the new series, and
// materializes occurrences up to the horizon. Returns the rule id and the
// number of occurrences created.
func (s *LedgerService) AddRule(ctx context.Context, rule core.RecurrenceRule) (int64, int, error) {
	if err := rule.Validate(); err != nil {
		return 0, 0, err
	}

	id, err := s.storage.CreateRule(ctx, rule)
	if err != nil {
		return 0, 0, err
	}
	rule.ID = id

	// The user may have typed the first entry by hand before deciding to
	// make it recurring; adopt it instead of generating a duplicate.
	txnID, found, err := s.storage.FindDetachedTransaction(ctx, rule.StartDate, rule.Amount.Cents, rule.Note)
	if err != nil {
		return id, 0, err
	}
	if found {
		if err := s.storage.AttachTransactionToRule(ctx, txnID, id); err != nil {
			return id, 0, err
		}
		slog.InfoContext(ctx, "Adopted manual transaction as first occurrence",
			"rule_id", id, "transaction_id", txnID)
	}

	created, err := s.expandRule(ctx, rule, recurrence.Horizon(s.now(), s.horizonMonths))
	if err != nil {
		return id, created, err
	}
	return id, created, nil
}

// Rules lists all recurrence rules.
func (s *LedgerService) Rules(ctx context.Context) ([]core.RecurrenceRule, error) {
	return s.storage.ListRules(ctx)
}

// DeleteSeries removes a rule and every occurrence it generated.
func (s *LedgerService) DeleteSeries(ctx context.Context, ruleID int64) error {
	return s.storage.DeleteRuleAndOccurrences(ctx, ruleID)
}

// EnsureExpanded materializes occurrences for every rule up to the
// horizon measured from now. Safe to call on every calendar render:
// watermarks and the unique occurrence index make it idempotent. Returns
// the number of occurrences created across all rules.
func (s *LedgerService) EnsureExpanded(ctx context.Context, now time.Time) (int, error) {
	rules, err := s.storage.ListRules(ctx)
	if err != nil {
		return 0, fmt.Errorf("list rules: %w", err)
	}

	horizon := recurrence.Horizon(now, s.horizonMonths)
	total := 0
	for _, rule := range rules {
		created, err := s.expandRule(ctx, rule, horizon)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to expand rule",
				"rule_id", rule.ID, "error", err)
			continue
		}
		total += created
	}

	if total > 0 {
		slog.InfoContext(ctx, "Recurrence expansion complete",
			"rules", len(rules),
			"occurrences_created", total,
			"horizon", horizon.ISO())
	}
	return total, nil
}

func (s *LedgerService) expandRule(ctx context.Context, rule core.RecurrenceRule, horizon core.Date) (int, error) {
	dates, err := recurrence.Occurrences(rule, rule.LastGenerated, horizon)
	if err != nil {
		return 0, err
	}
	if len(dates) == 0 {
		return 0, nil
	}

	created := 0
	for _, d := range dates {
		inserted, err := s.storage.InsertOccurrence(ctx, rule.ID, d, rule.Amount.Cents, rule.Note)
		if err != nil {
			return created, fmt.Errorf("materialize occurrence %s: %w", d.ISO(), err)
		}
		if inserted {
			created++
		}
	}

	last := dates[len(dates)-1]
	if err := s.storage.UpdateRuleLastGenerated(ctx, rule.ID, last); err != nil {
		return created, err
	}
	return created, nil
}

// MonthCalendar computes the month view: running daily balances in a
// Monday-aligned grid. Rules are expanded first so the view includes
// every future occurrence inside the horizon.
func (s *LedgerService) MonthCalendar(ctx context.Context, year, month int) (ledger.MonthCalendar, error) {
	if _, err := s.EnsureExpanded(ctx, s.now()); err != nil {
		return ledger.MonthCalendar{}, err
	}

	first := core.NewDate(year, month, 1)
	last := core.EndOfMonth(first)

	opening, err := s.storage.BalanceBefore(ctx, first)
	if err != nil {
		return ledger.MonthCalendar{}, err
	}
	totals, err := s.storage.DayTotals(ctx, first, last)
	if err != nil {
		return ledger.MonthCalendar{}, err
	}

	return ledger.BuildMonthCalendar(year, month, opening, totals), nil
}

// BalanceOn returns the ending balance on the given day: the sum of
// every transaction dated at or before it.
func (s *LedgerService) BalanceOn(ctx context.Context, date core.Date) (core.Money, error) {
	cents, err := s.storage.BalanceOnOrBefore(ctx, date)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

// Close releases the underlying storage handle.
func (s *LedgerService) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
