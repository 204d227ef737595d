package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"coffeeshop/internal/config"
	"coffeeshop/internal/infra/db"
	"coffeeshop/internal/infra/drinkmem"
	httpinfra "coffeeshop/internal/infra/http"
	"coffeeshop/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	store, err := db.NewStore(cfg, logger)
	if err != nil {
		logger.Error("failed to init store", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	deps := httpinfra.ServerDeps{Logger: logger}
	var repo usecase.DrinkRepository
	if store.DB != nil {
		repo = db.NewDrinkRepository(store.DB)
		deps.Store = store
	} else {
		repo = drinkmem.New()
	}
	drinks := usecase.NewDrinkService(repo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The in-memory store starts empty, so it is always seeded.
	if cfg.DBReset || store.DB == nil {
		if err := drinks.ResetCatalog(ctx); err != nil {
			logger.Error("failed to reset catalog", "err", err)
			os.Exit(1)
		}
		logger.Info("drink catalog reset", "seed", len(usecase.SeedDrinks))
	}
	deps.Drinks = drinks

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deps.Registry = registry

	srv := httpinfra.NewServer(cfg, deps)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server exited", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
