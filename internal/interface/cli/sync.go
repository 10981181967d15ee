package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	syncer "github.com/smerrill/worktrace/internal/core/sync"
	"github.com/smerrill/worktrace/internal/logging"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync cycle now",
	Long: `Deliver pending sessions and queued items to the billing endpoint
immediately, then apply retention. The background recorder does this on a
schedule; this command is for catching up after downtime.`,
	RunE: runSyncNow,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSyncNow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Sync.APIURL == "" {
		return fmt.Errorf("no sync endpoint configured: set sync.api_url in %s", configPath)
	}

	database, err := openDB()
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	log := logging.New(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	outbox := syncer.NewOutbox(database,
		syncer.NewBillingClient(cfg.Sync.APIURL, cfg.Sync.APIKey),
		syncer.Config{
			BatchSize:     cfg.Sync.BatchSize,
			RetentionDays: cfg.Sync.RetentionDays,
			Source:        cfg.SourceID,
			Template:      cfg.Classify.DescriptionTemplate,
		}, log)

	outbox.RunOnce(cmd.Context())

	status := outbox.Status()
	fmt.Printf("Synced:  %d\n", status.SyncedCount)
	fmt.Printf("Errors:  %d\n", status.ErrorCount)
	fmt.Printf("Backlog: %s item(s) still pending\n", humanize.Comma(int64(status.PendingDepth)))
	return nil
}
