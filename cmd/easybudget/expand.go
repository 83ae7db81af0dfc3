package main

import (
	"context"
	"time"

	"easybudget/internal/cli"
	"easybudget/internal/services"
)

type expandCmd struct {
	Every time.Duration `help:"Keep running and re-expand at this interval (e.g. 1h). Default is a single pass."`
}

func (c *expandCmd) Run(g *globals) error {
	cfg, logger := initApp(g)

	repo := cli.InitSQLite(logger, cfg.DBPath)
	svc := services.NewLedgerService(repo, cfg.HorizonMonths)

	if c.Every <= 0 {
		defer svc.Close()
		created, err := svc.EnsureExpanded(context.Background(), time.Now())
		if err != nil {
			return err
		}
		logger.Info("Expansion pass complete", "occurrences_created", created)
		return nil
	}

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func() {
		_ = svc.Close()
	})

	logger.Info("Expansion worker configured", "interval", c.Every, "db", cfg.DBPath)
	ticker := time.NewTicker(c.Every)
	defer ticker.Stop()

	// Immediate first pass so a freshly started worker is useful without
	// waiting a full interval.
	if created, err := svc.EnsureExpanded(ctx, time.Now()); err != nil {
		logger.Error("Expansion pass failed", "error", err)
	} else if created > 0 {
		logger.Info("Expansion pass complete", "occurrences_created", created)
	}

	go func() {
		for {
			select {
			case <-ticker.C:
				if created, err := svc.EnsureExpanded(ctx, time.Now()); err != nil {
					logger.Error("Expansion pass failed", "error", err)
				} else if created > 0 {
					logger.Info("Expansion pass complete", "occurrences_created", created)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	return nil
}
