package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wealthsprint/internal/config"
	"wealthsprint/internal/game"
	"wealthsprint/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	st, err := store.Open(ctx, store.Options{
		Kind:        cfg.Store,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		logger.Error("store open failed", "store", cfg.Store, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	catalog, err := game.DefaultCatalog()
	if err != nil {
		logger.Error("catalog load failed", "err", err)
		os.Exit(1)
	}
	svc := game.NewService(st, catalog, logger, game.WithSharedStore())

	tick := func() {
		start := time.Now()
		n, err := svc.AdvanceAll(ctx, cfg.YearsPerTick)
		if err != nil {
			logger.Error("advance tick failed", "err", err)
			return
		}
		logger.Info("advance tick complete", "advanced", n, "years", cfg.YearsPerTick, "took", time.Since(start).String())
	}

	if cfg.RunOnce {
		tick()
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.TickEvery)
	defer ticker.Stop()

	logger.Info("worker started", "tick_every", cfg.TickEvery.String(), "years_per_tick", cfg.YearsPerTick)
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			tick()
		}
	}
}
