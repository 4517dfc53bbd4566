// Package cli wires the command tree. Commands stay thin: they load the
// configuration, open the store, and hand off to the service layer.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tracklog/internal/config"
	"tracklog/internal/logging"
	"tracklog/internal/store"
)

var (
	flagLogLevel  string
	flagLogFormat string
	flagDBPath    string
)

var rootCmd = &cobra.Command{
	Use:   "tracklog",
	Short: "Import, reconcile, and report on fitness activity data",
	Long: `tracklog ingests activity files (FIT, TCX, GMN, TXT), syncs provider
records from Strava, Fitbit, and Garmin Connect, reconciles them against the
imported summaries, and produces split and aggregate reports.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree. Errors print once at the top level.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "database path (overrides config)")
}

// env is everything an open command needs.
type env struct {
	cfg *config.Config
	db  *store.DB
	log zerolog.Logger
}

func (e *env) close() {
	if e.db != nil {
		e.db.Close()
	}
}

// setup loads the configuration and opens the database. Flags win over the
// config file.
func setup() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Log.Format = flagLogFormat
	}
	if flagDBPath != "" {
		cfg.DBPath = flagDBPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.DBPath, err)
	}
	return &env{cfg: cfg, db: db, log: log}, nil
}
