package core

import (
	"errors"
	"strings"
	"time"
)

const (
	UnitDay   IntervalUnit = "day"
	UnitWeek  IntervalUnit = "week"
	UnitMonth IntervalUnit = "month"
)

// ISODate is the canonical wire/storage format for dates.
const ISODate = "2006-01-02"

type (
	IntervalUnit string

	// Date is a calendar day, normalized to midnight UTC.
	Date struct {
		time.Time
	}

	// Money is a signed amount in cents. Positive means income,
	// negative means expense.
	Money struct {
		Cents int64
	}

	// Transaction is a single dated ledger entry. RuleID links a
	// generated occurrence back to its recurrence rule; nil means the
	// transaction was entered manually.
	Transaction struct {
		ID     int64
		Date   Date
		Amount Money
		Note   string
		RuleID *int64
	}

	// RecurrenceRule is the recipe for a recurring transaction:
	// starting at StartDate, repeat every EveryN Units.
	// LastGenerated is the watermark of the latest materialized
	// occurrence; expansion resumes strictly after it.
	RecurrenceRule struct {
		ID            int64
		StartDate     Date
		Amount        Money
		Note          string
		EveryN        int
		Unit          IntervalUnit
		LastGenerated Date
	}

	// DailyBalance is one day of the calendar view: the day's net sum
	// and the running ending balance. Derived on render, never stored.
	DailyBalance struct {
		Date        Date
		NetCents    int64
		EndingCents int64
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidInterval = errors.New("interval count must be at least 1")
	ErrInvalidUnit     = errors.New("invalid interval unit")
	ErrNoteTooLong     = errors.New("note too long (max 200 characters)")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a date in YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(ISODate, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ISO returns the date formatted as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format(ISODate)
}

// Day returns the day of the month.
func (d Date) Day() int { return d.Time.Day() }

// Month returns the month as 1-12.
func (d Date) Month() int { return int(d.Time.Month()) }

// Year returns the year.
func (d Date) Year() int { return d.Time.Year() }

// Before reports whether d falls on an earlier calendar day than other.
func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }

// After reports whether d falls on a later calendar day than other.
func (d Date) After(other Date) bool { return d.Time.After(other.Time) }

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents == 0 {
		return ErrInvalidAmount
	}
	return nil
}

func validateNote(note string) error {
	if len(note) > 200 {
		return ErrNoteTooLong
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	return validateNote(t.Note)
}

// IsRecurring reports whether the transaction was generated from a rule.
func (t Transaction) IsRecurring() bool {
	return t.RuleID != nil
}

func (u IntervalUnit) Validate() error {
	switch u {
	case UnitDay, UnitWeek, UnitMonth:
		return nil
	default:
		return ErrInvalidUnit
	}
}

func (r RecurrenceRule) Validate() error {
	if err := r.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if r.EveryN < 1 {
		return ErrInvalidInterval
	}
	if err := r.Unit.Validate(); err != nil {
		return err
	}
	return validateNote(r.Note)
}
