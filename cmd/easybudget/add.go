package main

import (
	"context"
	"fmt"

	"easybudget/internal/cli"
	"easybudget/internal/core"
	"easybudget/internal/services"
)

type addCmd struct {
	Date   string `arg:"" help:"Date of the transaction (YYYY-MM-DD)."`
	Amount string `arg:"" help:"Signed decimal amount: positive income, negative expense (e.g. -12.50)."`
	Note   string `arg:"" optional:"" help:"Free-text note."`

	Every int    `help:"Make it recurring: repeat every N units starting at the date." placeholder:"N"`
	Unit  string `help:"Recurrence unit: day, week or month." enum:"day,week,month," default:""`
}

func (c *addCmd) Run(g *globals) error {
	cfg, logger := initApp(g)

	date, err := core.ParseDate(c.Date)
	if err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", c.Date)
	}
	cents, err := core.ParseSignedDecimalToCents(c.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", c.Amount, err)
	}

	repo := cli.InitSQLite(logger, cfg.DBPath)
	svc := services.NewLedgerService(repo, cfg.HorizonMonths)
	defer svc.Close()

	ctx := context.Background()

	if c.Every > 0 {
		if c.Unit == "" {
			return fmt.Errorf("--unit is required with --every")
		}
		rule := core.RecurrenceRule{
			StartDate: date,
			Amount:    core.Money{Cents: cents},
			Note:      c.Note,
			EveryN:    c.Every,
			Unit:      core.IntervalUnit(c.Unit),
		}
		id, created, err := svc.AddRule(ctx, rule)
		if err != nil {
			return err
		}
		fmt.Printf("rule #%d saved, %d occurrences materialized\n", id, created)
		return nil
	}

	txn := core.Transaction{
		Date:   date,
		Amount: core.Money{Cents: cents},
		Note:   c.Note,
	}
	id, err := svc.AddTransaction(ctx, txn)
	if err != nil {
		return err
	}
	fmt.Printf("transaction #%d saved: %s %s\n", id, date.ISO(), txn.Amount.String())
	return nil
}
