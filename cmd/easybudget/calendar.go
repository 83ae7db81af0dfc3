package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"easybudget/internal/cli"
	"easybudget/internal/core"
	"easybudget/internal/ledger"
	"easybudget/internal/services"
)

type calendarCmd struct {
	Year  int `help:"Year to render (default: current)."`
	Month int `help:"Month to render, 1-12 (default: current)."`
}

func (c *calendarCmd) Run(g *globals) error {
	cfg, logger := initApp(g)

	now := time.Now()
	year, month := c.Year, c.Month
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("month %d out of range", month)
	}

	repo := cli.InitSQLite(logger, cfg.DBPath)
	svc := services.NewLedgerService(repo, cfg.HorizonMonths)
	defer svc.Close()

	cal, err := svc.MonthCalendar(context.Background(), year, month)
	if err != nil {
		return err
	}

	fmt.Print(renderCalendar(cal))
	return nil
}

// renderCalendar lays out the month as a Monday-first text grid: the day
// number and its ending balance per cell.
func renderCalendar(cal ledger.MonthCalendar) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %d (opening %s, closing %s)\n\n",
		time.Month(cal.Month).String(), cal.Year,
		core.Money{Cents: cal.OpeningCents}.String(),
		core.Money{Cents: cal.ClosingCents()}.String())

	const cellWidth = 12
	for _, name := range []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"} {
		fmt.Fprintf(&b, "%-*s", cellWidth, name)
	}
	b.WriteString("\n")

	for i, cell := range cal.Cells {
		if cell.Blank {
			fmt.Fprintf(&b, "%-*s", cellWidth, "")
		} else {
			day := fmt.Sprintf("%2d %s", cell.Balance.Date.Day(),
				core.Money{Cents: cell.Balance.EndingCents}.String())
			fmt.Fprintf(&b, "%-*s", cellWidth, day)
		}
		if (i+1)%7 == 0 {
			b.WriteString("\n")
		}
	}

	return b.String()
}
