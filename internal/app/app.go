// Package app wires configuration, storage, provider clients and services
// into the shared core used by cmd/folio-server and cmd/folio.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/folio/internal/clients/coingecko"
	"github.com/bobmcallan/folio/internal/clients/fxrate"
	"github.com/bobmcallan/folio/internal/clients/yahoo"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/services/fx"
	"github.com/bobmcallan/folio/internal/services/ledger"
	"github.com/bobmcallan/folio/internal/services/price"
	"github.com/bobmcallan/folio/internal/services/snapshot"
	"github.com/bobmcallan/folio/internal/services/transaction"
	"github.com/bobmcallan/folio/internal/services/valuation"
	"github.com/bobmcallan/folio/internal/storage"
)

// App holds all initialized services and clients.
type App struct {
	Config             *common.Config
	Logger             *common.Logger
	Storage            interfaces.StorageManager
	Converter          interfaces.CurrencyConverter
	PriceResolver      interfaces.PriceResolver
	ValuationService   interfaces.ValuationService
	SnapshotService    interfaces.SnapshotService
	LedgerService      interfaces.LedgerService
	TransactionService interfaces.TransactionService
	StartupTime        time.Time

	schedulerCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath returns configPath, FOLIO_CONFIG, folio.toml next to the
// binary, or config/folio.toml, in that order.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("FOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "folio.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/folio.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration and initializes all services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)
	return NewAppWithConfig(ctx, config, logger)
}

// NewAppWithConfig initializes storage, provider clients and services from
// an already loaded configuration. Missing database ids are not an error
// here; each operation validates the settings it needs before any network
// call.
func NewAppWithConfig(ctx context.Context, config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	storageManager, err := storage.NewManager(ctx, logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a, err := newApp(config, logger, storageManager)
	if err != nil {
		storageManager.Close()
		return nil, err
	}
	a.StartupTime = startupStart

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")
	return a, nil
}

// newApp builds the provider clients and services over storage.
func newApp(config *common.Config, logger *common.Logger, storageManager interfaces.StorageManager) (*App, error) {
	cc := config.Clients

	yahooClient := yahoo.NewClient(
		yahoo.WithBaseURL(cc.Yahoo.BaseURL),
		yahoo.WithRateLimit(cc.Yahoo.RateLimit),
		yahoo.WithTimeout(cc.Yahoo.GetTimeout()),
		yahoo.WithLogger(logger),
	)
	coingeckoClient := coingecko.NewClient(
		coingecko.WithBaseURL(cc.CoinGecko.BaseURL),
		coingecko.WithAPIKey(cc.CoinGecko.APIKey),
		coingecko.WithRateLimit(cc.CoinGecko.RateLimit),
		coingecko.WithTimeout(cc.CoinGecko.GetTimeout()),
		coingecko.WithLogger(logger),
	)
	fxClient := fxrate.NewClient(
		fxrate.WithBaseURL(cc.FX.BaseURL),
		fxrate.WithAPIKey(cc.FX.APIKey),
		fxrate.WithRatePath(config.FX.RatePath),
		fxrate.WithRateLimit(cc.FX.RateLimit),
		fxrate.WithTimeout(cc.FX.GetTimeout()),
		fxrate.WithLogger(logger),
	)

	converter := fx.NewService(fxClient, fx.NewRateCache(config.FX.GetCacheTTL()), config.BaseCurrency, logger)
	resolver := price.NewService(yahooClient, coingeckoClient, config.BaseCurrency, logger)
	valuationService := valuation.NewService(storageManager.HoldingStore(), resolver, converter, config.Valuation.OnFXError, logger)
	snapshotService := snapshot.NewService(valuationService, storageManager.SnapshotStore(), config.Snapshot.ReplaceSameDay, logger)
	transactionService := transaction.NewService(storageManager.TransactionStore(), logger)

	ledgerService, err := ledger.NewService(storageManager.TransactionStore(), storageManager.AssetLogStore(), config.Ledger, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}

	return &App{
		Config:             config,
		Logger:             logger,
		Storage:            storageManager,
		Converter:          converter,
		PriceResolver:      resolver,
		ValuationService:   valuationService,
		SnapshotService:    snapshotService,
		LedgerService:      ledgerService,
		TransactionService: transactionService,
	}, nil
}

// Close releases all resources held by the App.
// Shutdown order: cancel scheduler, close storage.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Storage close failed")
		}
		a.Storage = nil
	}
}

// StartSnapshotScheduler launches the in-process snapshot recorder when
// snapshot.interval is set. It is a no-op otherwise.
func (a *App) StartSnapshotScheduler() {
	interval := a.Config.Snapshot.GetInterval()
	if interval <= 0 {
		return
	}
	if err := a.Config.ValidateValuation(); err != nil {
		a.Logger.Warn().Err(err).Msg("Snapshot scheduler not started")
		return
	}
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	a.schedulerCancel = schedulerCancel
	go startSnapshotScheduler(schedulerCtx, a.SnapshotService, a.Logger, interval, time.Now)
}
