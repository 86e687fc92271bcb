package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wealthsprint/internal/api"
	"wealthsprint/internal/auth"
	"wealthsprint/internal/config"
	"wealthsprint/internal/game"
	"wealthsprint/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
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

	hub := api.NewHub(logger)
	go hub.Run(ctx)

	opts := []game.ServiceOption{game.WithEventSink(hub.Publish)}
	if cfg.Weighting == "uniform" {
		opts = append(opts, game.WithWeighting(game.UniformWeighting))
	}
	if cfg.Store != "memory" {
		opts = append(opts, game.WithSharedStore())
	}
	gameSvc := game.NewService(st, catalog, logger, opts...)

	var authClient api.Authenticator
	if cfg.AuthEnabled() {
		authClient = auth.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	} else {
		logger.Warn("auth disabled, player ids are taken from the path")
	}

	server := api.New(cfg, logger, authClient, gameSvc, hub)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("wealthsprint api listening", "addr", cfg.Addr, "store", cfg.Store, "weighting", cfg.Weighting)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
