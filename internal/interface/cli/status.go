package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recorder status",
	Long:  `Display recording activity, sync backlog, and storage info at a glance.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := openDB()
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	stats, err := database.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	depth, err := database.QueueDepth()
	if err != nil {
		return fmt.Errorf("failed to read queue depth: %w", err)
	}

	fmt.Println("worktrace status")
	fmt.Println("================")
	fmt.Println()

	last, err := database.LastEventTime()
	if err != nil {
		return fmt.Errorf("failed to read last event: %w", err)
	}
	if last.IsZero() {
		fmt.Println("Last capture:    never")
	} else {
		fmt.Printf("Last capture:    %s\n", humanize.Time(last))
	}
	fmt.Printf("Events today:    %d\n", stats.TodayEvents)
	fmt.Printf("Unsynced:        %d\n", stats.UnsyncedEvents)
	fmt.Printf("Queue backlog:   %d\n", depth)
	fmt.Println()

	if cfg.Sync.APIURL != "" {
		fmt.Printf("Sync endpoint:   %s (every %s)\n", cfg.Sync.APIURL, cfg.Sync.Interval.Duration)
	} else {
		fmt.Println("Sync endpoint:   not configured")
	}
	fmt.Printf("Clients:         %d configured\n", len(cfg.Clients))

	if info, err := os.Stat(dbPath); err == nil {
		fmt.Printf("Database:        %s (%s)\n", dbPath, humanize.Bytes(uint64(info.Size())))
	}
	return nil
}
