package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/propstream/propstream/internal/adapters/marketplace"
	"github.com/propstream/propstream/internal/adapters/website"
	"github.com/propstream/propstream/internal/common"
	"github.com/propstream/propstream/internal/models"
	"github.com/propstream/propstream/internal/scraper"
	"github.com/propstream/propstream/internal/server"
	"github.com/propstream/propstream/internal/services/scheduler"
	badgerstorage "github.com/propstream/propstream/internal/storage/badger"
)

var (
	configFile   = flag.String("config", "", "Configuration file path")
	configFileC  = flag.String("c", "", "Configuration file path (shorthand)")
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	runOnce      = flag.Bool("once", false, "Process one batch and exit")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("PropStream version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	configPath := *configFile
	if configPath == "" {
		configPath = *configFileC
	}
	if configPath == "" {
		// Auto-discover config file in the working directory
		if _, err := os.Stat("propstream.toml"); err == nil {
			configPath = "propstream.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *serverPort != 0 {
		config.Server.Port = *serverPort
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	db, err := badgerstorage.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer db.Close()

	sources := badgerstorage.NewSourceStorage(db, logger)
	queue := badgerstorage.NewQueueStorage(db, logger)
	runs := badgerstorage.NewRunLogStorage(db, logger)
	properties := badgerstorage.NewPropertyStorage(db, logger)

	registry := scraper.NewRegistry(logger)

	websiteAdapter, err := website.NewAdapter(&config.Scraper, &config.Proxy, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create website adapter")
	}
	registry.RegisterKind(models.SourceKindWebsite, websiteAdapter)
	registry.RegisterKind(models.SourceKindSocial, marketplace.NewAdapter(&config.Marketplace, logger))

	scraperSvc, err := scraper.NewService(&config.Scraper, sources, queue, runs, properties, registry, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create scraper service")
	}

	ctx := context.Background()
	if err := scraperSvc.RecoverInterrupted(ctx); err != nil {
		logger.Warn().Err(err).Msg("Startup recovery failed")
	}

	if *runOnce {
		outcomes, err := scraperSvc.ProcessBatch(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("Batch processing failed")
		}
		for _, o := range outcomes {
			fmt.Printf("%s  %-9s  found=%d added=%d  %s\n", o.ItemID, o.Status, o.Found, o.Added, o.Error)
		}
		fmt.Printf("Processed %d item(s)\n", len(outcomes))
		return
	}

	schedulerSvc := scheduler.NewService(config, sources, queue, scraperSvc, logger)
	if config.Scheduler.Enabled {
		if err := schedulerSvc.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	httpServer := server.New(&config.Server, scraperSvc, queue, runs, logger)
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("PropStream ready")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutting down...")

	if config.Scheduler.Enabled {
		schedulerSvc.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP server shutdown failed")
	}

	logger.Info().Msg("Shutdown complete")
}
