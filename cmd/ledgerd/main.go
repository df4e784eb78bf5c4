package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/odyssey-erp/ledger-intake/internal/app"
	"github.com/odyssey-erp/ledger-intake/internal/extract"
	"github.com/odyssey-erp/ledger-intake/internal/ledger"
	"github.com/odyssey-erp/ledger-intake/internal/observability"
	"github.com/odyssey-erp/ledger-intake/internal/platform/db"
	"github.com/odyssey-erp/ledger-intake/internal/sheets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, stop); err != nil {
		slog.Default().Error("ledgerd exited", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, stop context.CancelFunc) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser, err := app.NewLogger(cfg)
	if err != nil {
		return fmt.Errorf("open logger: %w", err)
	}
	defer func() {
		_ = logCloser.Close()
	}()

	var store ledger.Store
	switch cfg.LedgerStore {
	case app.StoreMemory:
		logger.Warn("using in-memory ledger store; rows are lost on restart")
		store = ledger.NewMemoryStore()
	default:
		dbpool, err := db.New(ctx, cfg.DBParams().DSN())
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer dbpool.Close()
		store = ledger.NewPostgresStore(dbpool, cfg.LedgerTable)
	}

	sheetClient, err := sheets.NewClient(ctx, []byte(cfg.GoogleCreds))
	if err != nil {
		return fmt.Errorf("google sheets setup: %w", err)
	}

	gemini, err := extract.NewGemini(ctx, extract.GeminiConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
	if err != nil {
		return fmt.Errorf("gemini setup: %w", err)
	}

	metrics := observability.NewMetrics()
	extractor := extract.New(gemini, logger, metrics)
	ledgerService := ledger.NewService(store, extractor, sheetClient, metrics, logger, ledger.ServiceConfig{
		ExtractConcurrency: cfg.ExtractConcurrency,
	})
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		LedgerHandler: ledgerHandler,
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.LedgerStore))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	default:
		return nil
	}
}
