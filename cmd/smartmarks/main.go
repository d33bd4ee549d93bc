// Command smartmarks serves the bookmarks app and runs operator tasks
// against its database.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/smartmarks/internal/config"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

// configFile is set by --config, falling back to SMARTMARKS_CONFIG.
var configFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "smartmarks:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "smartmarks",
	Short: "Private bookmarks with live updates",
	Long: `smartmarks serves a signed-in bookmark list that stays in sync across
tabs and devices. Configuration comes from SMARTMARKS_* environment
variables and an optional YAML file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: $SMARTMARKS_CONFIG)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(retitleCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the configuration and builds the logger.
func loadConfig() (*config.Config, logger.Logger, error) {
	file := configFile
	if file == "" {
		file = os.Getenv(config.EnvPrefix + "_CONFIG")
	}
	cfg, err := config.Load(file)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cfg.LogLevel, cfg.PrettyLog), nil
}
