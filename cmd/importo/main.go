package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/importo/internal/app"
	"github.com/ternarybob/importo/internal/common"
	"github.com/ternarybob/importo/internal/models"
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
	mode         = flag.String("mode", "daemon", "Run mode: daemon (repeat at poll interval) or oneshot (single cycle, exit code reflects outcome)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

// Oneshot exit codes, one per terminal cycle status.
const (
	exitOK          = 0
	exitConfig      = 1
	exitAuthFailed  = 2
	exitFetchFailed = 3
	exitParseFailed = 4
)

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		printVersion()
		os.Exit(0)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("importo.toml"); err == nil {
			configFiles = append(configFiles, "importo.toml")
		} else if _, err := os.Stat("deployments/local/importo.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/importo.toml")
		}
	}

	// Load configuration (defaults -> files -> env)
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(exitConfig)
	}
	if err := config.Validate(); err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Msg("Invalid configuration")
		os.Exit(exitConfig)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	sanitized := config.Sanitized()
	logger.Debug().
		Str("region", config.Amazon.Region).
		Str("email", config.Amazon.Email).
		Str("password", sanitized.Amazon.Password).
		Str("mfa_seed", sanitized.Amazon.MFASeed).
		Str("engine", config.Engine.Type).
		Str("poll_interval", config.Import.PollInterval.String()).
		Bool("clear_after_import", config.Import.ClearAfterImport).
		Msg("Resolved configuration (sanitized)")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(exitConfig)
	}
	switch *mode {
	case "oneshot":
		code := runOnce(application, logger)
		application.Stop()
		os.Exit(code)
	case "daemon":
		runDaemon(application, logger)
		application.Stop()
	default:
		application.Stop()
		logger.Fatal().Str("mode", *mode).Msg("Unknown run mode")
		os.Exit(exitConfig)
	}
}

// runOnce executes exactly one import cycle and maps its outcome to an exit
// code, for cron-style setups that bring their own scheduling.
func runOnce(application *app.App, logger arbor.ILogger) int {
	outcome, err := application.Orchestrator.RunCycle(context.Background())
	if err != nil {
		logger.Error().Err(err).Msg("Cycle did not run")
		return exitConfig
	}

	switch outcome.Status {
	case models.CycleSuccess:
		return exitOK
	case models.CycleAuthFailed:
		return exitAuthFailed
	case models.CycleFetchFailed:
		return exitFetchFailed
	default:
		return exitParseFailed
	}
}

// runDaemon starts the interval scheduler and blocks until interrupted.
func runDaemon(application *app.App, logger arbor.ILogger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
		os.Exit(exitConfig)
	}

	logger.Info().
		Str("interval", application.Config.Import.PollInterval.String()).
		Msg("Importo running - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received, shutting down")
	cancel()
}
