package cmd

import (
	"fmt"
	"os"

	"inventory/config"
	"inventory/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	dbPath       string // Bound to --dbpath flag
	logLevelFlag string

	// appConfig is loaded once per invocation in PersistentPreRunE.
	appConfig *config.Configuration
)

var rootCmd = &cobra.Command{
	Use:   "inventory",
	Short: "Home inventory server",
	Long: `inventory keeps track of things you own: items with categories, tags,
images and datasheets, stored in nested locations.

It serves a JSON API (and optionally the web client) backed by a single
SQLite file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if dbPath != "" {
			cfg.Database.Path = dbPath
		}
		if logLevelFlag != "" {
			cfg.Logging.Level = logLevelFlag
		}
		if err := logger.Init(cfg.Logging.Path, cfg.Logging.Level, cfg.Logging.Format); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		appConfig = cfg
		logger.Debug("Configuration loaded, database at %s, log level %s", cfg.Database.Path, logger.Level())
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or $XDG_CONFIG_HOME/inventory/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "dbpath", "", "path to SQLite database file (overrides config/default)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: DEBUG, INFO, WARN, ERROR (overrides config/default)")
}
