package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smerrill/worktrace/internal/core/config"
	"github.com/smerrill/worktrace/internal/core/db"
)

var (
	dbPath      string
	configPath  string
	versionInfo string
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(version, commit, date string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "worktrace",
	Short: "Continuous work activity recorder",
	Long: `worktrace - record what you work on, attribute it to clients, sync it for billing

Captures work activity on an adaptive cadence, attributes each moment to a
client via configurable detection rules, and delivers aggregated sessions
to a billing endpoint in the background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to the live dashboard if no subcommand specified
		return tuiCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath(), "Database path")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.Path(), "Config file path")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func openDB() (*db.DB, error) {
	database, err := db.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}
