package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lendledger/config"
	"lendledger/core/events"
	"lendledger/core/state"
	"lendledger/native/lending"
	"lendledger/native/token"
	"lendledger/observability/logging"
	"lendledger/rpc"
	"lendledger/storage"
)

const eventBufferSize = 1024

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	env := strings.TrimSpace(os.Getenv("LENDLEDGER_ENV"))
	if env == "" {
		env = cfg.Environment
	}
	logger := logging.Setup("lendledgerd", env)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	manager := state.NewManager(db)
	if err := seedGenesis(manager, cfg, logger); err != nil {
		logger.Error("Failed to seed ledger state", slog.Any("error", err))
		os.Exit(1)
	}

	buffer := events.NewBuffer(eventBufferSize)
	engine := lending.NewEngine(lending.ModuleAddress())
	engine.SetState(manager)
	engine.SetTokens(
		token.NewLedger(manager, cfg.Ledger.CollateralSymbol),
		token.NewLedger(manager, cfg.Ledger.DebtSymbol),
	)
	engine.SetEmitter(events.MultiEmitter{events.NewLogEmitter(logger), buffer})

	server := rpc.NewServer(engine, buffer, logger)
	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ledger daemon listening", slog.String("address", cfg.ListenAddress))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", slog.Any("error", err))
	}
}

// seedGenesis writes the configured risk parameters and admin identity on first
// start. Existing records win so admin-governed updates survive restarts.
func seedGenesis(manager *state.Manager, cfg *config.Config, logger *slog.Logger) error {
	stored, err := manager.LendingParams()
	if err != nil {
		return err
	}
	if stored == nil {
		params, err := cfg.LedgerParams()
		if err != nil {
			return err
		}
		if err := manager.PutLendingParams(params); err != nil {
			return err
		}
		logger.Info("seeded risk parameters",
			slog.Uint64("collateralFactorBps", params.CollateralFactorBps),
			slog.Uint64("liquidationThresholdBps", params.LiquidationThresholdBps),
		)
	}

	admin, err := manager.LendingAdmin()
	if err != nil {
		return err
	}
	if admin.IsZero() {
		configured, err := cfg.AdminAddress()
		if err != nil {
			return err
		}
		if configured.IsZero() {
			logger.Warn("no admin address configured; admin operations disabled until one is set")
			return nil
		}
		if err := manager.PutLendingAdmin(configured); err != nil {
			return err
		}
		logger.Info("seeded admin identity", slog.String("admin", configured.String()))
	}
	return nil
}
