package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pable/tiebreaker/internal/config"
	"github.com/pable/tiebreaker/internal/logger"
	"github.com/pable/tiebreaker/internal/storage"
)

var (
	configPath string

	// v collects defaults, config file, environment and bound flags.
	v   = config.New()
	cfg *config.Config
	log *logrus.Entry

	cError = color.New(color.FgRed, color.Bold)
	cWarn  = color.New(color.FgYellow)
)

var rootCmd = &cobra.Command{
	Use:   "tiebreaker",
	Short: "ATP recent-form feature tool",
	Long: `Import ATP match, player and ranking CSVs and compute point-in-time
recent-form features for pairwise match prediction.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cError.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default: ./tiebreaker.yaml or ~/.tiebreaker/tiebreaker.yaml)")
	pf.String("db", v.GetString("db"), "path to SQLite database")
	pf.String("data-root", v.GetString("data_root"), "root directory of the ATP CSV data")
	pf.String("log-level", v.GetString("log_level"), "log level (debug, info, warn, error)")
	pf.String("log-format", v.GetString("log_format"), "log format (text or json)")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(formCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(dropCmd)
}

// flagKeys maps flag names to the config keys they override. A flag only
// takes effect on the command that defines it.
var flagKeys = map[string]string{
	"db":          "db",
	"data-root":   "data_root",
	"log-level":   "log_level",
	"log-format":  "log_format",
	"lookback":    "lookback_matches",
	"min-matches": "min_matches",
	"workers":     "workers",
}

func loadConfig(cmd *cobra.Command, args []string) error {
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	c, err := config.Load(v, configPath)
	if err != nil {
		return err
	}
	cfg = c
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log = logger.WithCommand(cmd.Name())
	return nil
}

// openDB opens the configured store, creating its directory if needed.
func openDB() (*storage.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DB), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := storage.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}
