// Package app wires configuration, storage, clients and services into a
// runnable Folio instance shared by all entry points.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/folio/internal/clients/eodhd"
	"github.com/bobmcallan/folio/internal/clients/gemini"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/services/backfill"
	"github.com/bobmcallan/folio/internal/services/pricing"
	"github.com/bobmcallan/folio/internal/storage/surrealdb"
)

// App holds all initialized services and clients.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Storage     interfaces.StorageManager
	Market      interfaces.MarketDataClient
	Resolver    interfaces.PriceResolver
	Synthetic   interfaces.SyntheticValuer
	Backfill    interfaces.BackfillService
	StartupTime time.Time

	geminiClient    *gemini.Client
	schedulerCancel context.CancelFunc
}

func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, clients and services. configPath may be empty,
// in which case FOLIO_CONFIG, the binary directory and config/folio.toml are
// tried in order.
func NewApp(configPath string) (*App, error) {
	common.LoadVersionFromFile()

	binDir := getBinaryDir()
	if configPath == "" {
		configPath = os.Getenv("FOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "folio.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/folio.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	if missing := config.ValidateRequired(); len(missing) > 0 {
		logger.Warn().
			Strs("missing", missing).
			Msg("Some settings are not configured - dependent features will be unavailable")
	}

	storageManager, err := surrealdb.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var market interfaces.MarketDataClient
	if config.Clients.MarketData.APIKey != "" {
		market = eodhd.NewClient(config.Clients.MarketData.APIKey,
			eodhd.WithBaseURL(config.Clients.MarketData.BaseURL),
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(config.Clients.MarketData.RateLimit),
			eodhd.WithTimeout(config.Clients.MarketData.GetTimeout()),
		)
	} else {
		logger.Warn().Msg("Market data API key not configured - resolution falls through to the oracle")
	}

	var geminiClient *gemini.Client
	var oracle, alternate interfaces.CompletionClient
	if config.Clients.Gemini.APIKey != "" {
		geminiClient, err = gemini.NewClient(context.Background(), config.Clients.Gemini.APIKey,
			gemini.WithModel(config.Clients.Gemini.Model),
			gemini.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		oracle = geminiClient
		if config.Clients.Gemini.AlternateModel != "" {
			alternate = geminiClient.WithBackendModel(config.Clients.Gemini.AlternateModel)
		}
	} else {
		logger.Warn().Msg("Gemini API key not configured - oracle price resolution unavailable")
	}

	windowDays := config.Pricing.NearestWindowDays
	resolver := pricing.NewResolver(storageManager.PriceStore(), market, oracle, alternate, windowDays, logger)
	synthetic := pricing.NewSyntheticModel(storageManager.PriceStore(), oracle, alternate, windowDays, config.Pricing.FactsheetDir, logger)
	backfillService := backfill.NewService(
		storageManager.PriceStore(),
		storageManager.TransactionStore(),
		market,
		synthetic,
		config.Pricing.SyntheticStepDays(),
		logger,
	)

	a := &App{
		Config:       config,
		Logger:       logger,
		Storage:      storageManager,
		Market:       market,
		Resolver:     resolver,
		Synthetic:    synthetic,
		Backfill:     backfillService,
		StartupTime:  time.Now(),
		geminiClient: geminiClient,
	}

	if interval := config.Pricing.GetRefreshInterval(); interval > 0 {
		schedCtx, cancel := context.WithCancel(context.Background())
		a.schedulerCancel = cancel
		go startRefreshScheduler(schedCtx, backfillService, storageManager.TransactionStore(), logger, interval)
		logger.Info().Dur("interval", interval).Msg("Price refresh scheduler started")
	}

	logger.Info().
		Str("environment", config.Environment).
		Str("version", common.GetVersion()).
		Msg("Folio application initialized")

	return a, nil
}

// Close stops the scheduler and releases clients and storage.
func (a *App) Close() error {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
	}
	if a.geminiClient != nil {
		a.geminiClient.Close()
	}
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}
