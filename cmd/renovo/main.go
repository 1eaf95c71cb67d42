package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/renovo/internal/app"
	"github.com/ternarybob/renovo/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Renovo version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Initialize logger
	// 3. Print banner

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("renovo.toml"); err == nil {
			configFiles = append(configFiles, "renovo.toml")
		} else if _, err := os.Stat("deployments/local/renovo.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/renovo.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger = common.InitLogger(config)

	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("environment", config.Environment).
		Str("badger_path", config.Storage.Badger.Path).
		Msg("Application configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start application")
		os.Exit(1)
	}

	logger.Info().
		Int("workers", config.Queue.Concurrency).
		Str("sweep_interval", config.Scheduler.SweepInterval).
		Msg("Refresh engine running - Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received, shutting down")
}
