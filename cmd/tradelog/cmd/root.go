package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelog/config"
	"github.com/rustyeddy/tradelog/internal/logger"
	"github.com/rustyeddy/tradelog/journal"
	"github.com/rustyeddy/tradelog/ledger"
)

var rootCmd = &cobra.Command{
	Use:   "tradelog",
	Short: "A trade ledger and journal for stock executions",
	Long: `Tradelog keeps a deduplicated ledger of stock executions.

It provides tools for:
  - Importing broker CSV exports and syncing fills from Alpaca
  - FIFO lot matching with fee-aware realized P&L
  - Exit deadlines and overdue position tracking
  - Monthly, yearly and calendar P&L analytics
  - Live loss monitoring of open positions
  - Trade journaling with notes, tags and ratings`,
	SilenceUsage: true,
}

var (
	cfgFile    string
	dbPath     string
	logLevel   string
	timezone   string
	jsonOutput bool
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "path to SQLite ledger (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&timezone, "tz", "", "ledger timezone, IANA name (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

// loadConfig layers defaults, the config file, the environment and flags.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		loaded, err := config.LoadFromFile(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	if dbPath != "" {
		cfg.Ledger.DBPath = dbPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if timezone != "" {
		cfg.Ledger.Timezone = timezone
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	ledger *ledger.Ledger
}

func (a *app) Close() error { return a.ledger.Close() }

// openApp loads config and opens the SQLite ledger. Callers must Close it.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.NewWithWriter(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty}, cmd.ErrOrStderr())

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	repo, err := journal.NewSQLite(cfg.Ledger.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return &app{cfg: cfg, log: log, ledger: ledger.New(repo, loc, log)}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
