// Command keytouch runs the keyboard gesture recognizer and its tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ayusman/keytouch/internal/config"
	"github.com/ayusman/keytouch/internal/logging"
	"github.com/ayusman/keytouch/internal/store"
)

var version = "0.1.0"

// Persistent flags
var (
	configPath string
	dbPath     string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "keytouch",
		Short: "Keyboard gesture recognition engine",
		Long: `keytouch recognizes taps, longpresses, flicks, multi-taps and
modifier holds from raw pointer input.

Examples:
  keytouch serve --tray             # Run the recognizer with the web UI and tray
  keytouch replay swipe.json        # Replay a recording file headlessly
  keytouch stats swipe.json         # Show path statistics for a recording
  keytouch record import swipe.json # Save a recording in the database`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath(), "config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides store.path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides log.level)")

	rootCmd.AddCommand(
		serveCmd(),
		replayCmd(),
		statsCmd(),
		recordCmd(),
		wordsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg)
	return cfg, nil
}

func applyOverrides(cfg *config.Config) {
	if dbPath != "" {
		cfg.Store.Path = dbPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
}

// newLogger builds the process logger from the [log] section.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	lc := logging.DefaultConfig()

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	lc.Level = level
	lc.Format = format
	if cfg.Log.Output != "" {
		lc.Output = cfg.Log.Output
	}

	logger, err := logging.New(lc)
	if err != nil {
		return nil, err
	}
	logging.SetDefault(logger)
	return logger, nil
}

// openStore opens the SQLite database, creating its directory.
func openStore(cfg *config.Config) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}
