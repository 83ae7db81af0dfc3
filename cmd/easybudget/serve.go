package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"easybudget/internal/cli"
	apphttp "easybudget/internal/http"
	"easybudget/internal/services"
)

type serveCmd struct {
	Port string `help:"Port to listen on (overrides config)."`
}

func (c *serveCmd) Run(g *globals) error {
	cfg, logger := initApp(g)
	if c.Port != "" {
		cfg.Port = c.Port
	}

	repo := cli.InitSQLite(logger, cfg.DBPath)
	svc := services.NewLedgerService(repo, cfg.HorizonMonths)
	defer svc.Close()

	srv := apphttp.NewServer(":"+cfg.Port, svc, cfg.CacheTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bring rules up to the horizon before accepting requests, so the
	// first calendar render is complete.
	if created, err := svc.EnsureExpanded(ctx, time.Now()); err != nil {
		logger.Warn("Initial expansion failed", "error", err)
	} else if created > 0 {
		logger.Info("Initial expansion complete", "occurrences_created", created)
	}

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("HTTP server starting", "addr", srv.Addr, "db", cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Announce the URL only once the server actually answers; the
	// listener comes up asynchronously in the group above.
	group.Go(func() error {
		probe := func() error {
			req, err := http.NewRequestWithContext(gctx, http.MethodGet, "http://127.0.0.1:"+cfg.Port+"/healthz", nil)
			if err != nil {
				return backoff.Permanent(err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("health check status %d", resp.StatusCode)
			}
			return nil
		}
		policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 10), gctx)
		if err := backoff.Retry(probe, policy); err != nil {
			if gctx.Err() != nil {
				return nil
			}
			logger.Warn("Readiness probe failed", "error", err)
			return nil
		}
		logger.Info("Ready", "url", "http://127.0.0.1:"+cfg.Port)
		return nil
	})

	return group.Wait()
}
