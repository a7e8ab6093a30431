package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/peto/internal/common"
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
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	attemptFlag  = flag.Int("attempt", 0, "Attempt number (overrides config)")
	batchFlag    = flag.Int("batch", 0, "Batch size (overrides config)")
	headfulFlag  = flag.Bool("headful", false, "Run Chrome with a visible window")
	serverPort   = flag.Int("port", 0, "Status server port (overrides config, enables the server)")
	healFlag     = flag.Bool("self-heal", false, "Run the self-heal step instead of a swarm pass")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	// Register custom flag for multiple config files
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	// Parse command-line flags
	flag.Parse()

	// Handle version flag
	if *showVersion || *showVersionV {
		printVersion()
		return
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	var err error

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("peto.toml"); err == nil {
			configFiles = append(configFiles, "peto.toml")
		}
	}

	// 1. Load configuration (default -> file1 -> file2 -> ... -> env -> CLI)
	// Later config files override earlier ones
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		// Use temporary logger for startup errors
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}

	// 2. Apply command-line flag overrides (highest priority)
	common.ApplyFlagOverrides(config, *attemptFlag, *batchFlag, *serverPort, *headfulFlag)

	// 3. Initialize logger with final configuration
	logger = common.InitLogger(config)

	// 4. Print banner
	common.PrintBanner(common.LoadVersionFromFile())

	// Crash files land beside the swarm logs
	common.InstallCrashHandler(config.Swarm.LogsDir)
	defer common.RecoverWithCrashFile()

	logger.Debug().
		Strs("config_files", configFiles).
		Int("attempt", config.Swarm.Attempt).
		Int("batch_size", config.Swarm.BatchSize).
		Bool("headful", config.Browser.Headful).
		Str("log_level", config.Logging.Level).
		Msg("Resolved configuration")

	if *healFlag {
		runHeal()
		return
	}

	runSwarm()
}
