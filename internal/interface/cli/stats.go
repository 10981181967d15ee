package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	Long: `Display statistics about recorded activity.

Shows total and unsynced event counts plus today's per-client breakdown.`,
	RunE: runStatsCmd,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStatsCmd(cmd *cobra.Command, args []string) error {
	database, err := openDB()
	if err != nil {
		return err
	}
	defer func() {
		_ = database.Close()
	}()

	stats, err := database.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	fmt.Println("Recording Statistics")
	fmt.Println("====================")
	fmt.Println()
	fmt.Printf("Total Events:      %d\n", stats.TotalEvents)
	fmt.Printf("Unsynced Events:   %d\n", stats.UnsyncedEvents)
	fmt.Printf("Events Today:      %d\n", stats.TodayEvents)

	if len(stats.TodayByClient) > 0 {
		fmt.Println()
		fmt.Println("Today by Client")
		fmt.Println("---------------")

		codes := make([]string, 0, len(stats.TodayByClient))
		for code := range stats.TodayByClient {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			fmt.Printf("  %-12s %d\n", code, stats.TodayByClient[code])
		}
	}
	return nil
}
