package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smerrill/worktrace/internal/core/attribution"
	"github.com/smerrill/worktrace/internal/core/models"
)

var (
	testTitle    string
	testProcess  string
	testURL      string
	testHostname string
	testIP       string
)

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Inspect client detection rules",
}

var clientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured clients and their rules",
	RunE:  runClientsList,
}

var clientsTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Dry-run attribution against supplied signals",
	Long: `Evaluate the configured rules against hand-supplied signals, without
recording anything. Useful when writing new rules:

  worktrace clients test --title "Acme Dashboard - Firefox"
  worktrace clients test --ip 10.1.2.3 --hostname build.acme.internal`,
	RunE: runClientsTest,
}

func init() {
	clientsTestCmd.Flags().StringVar(&testTitle, "title", "", "Window title")
	clientsTestCmd.Flags().StringVar(&testProcess, "process", "", "Process name")
	clientsTestCmd.Flags().StringVar(&testURL, "url", "", "URL")
	clientsTestCmd.Flags().StringVar(&testHostname, "hostname", "", "Hostname")
	clientsTestCmd.Flags().StringVar(&testIP, "ip", "", "Source IP address")
	clientsCmd.AddCommand(clientsListCmd)
	clientsCmd.AddCommand(clientsTestCmd)
	rootCmd.AddCommand(clientsCmd)
}

func runClientsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if len(cfg.Clients) == 0 {
		fmt.Println("No clients configured.")
		fmt.Printf("Add [[clients]] blocks to %s\n", configPath)
		return nil
	}

	for _, c := range cfg.Clients {
		fmt.Printf("%s (%s)\n", c.Name, c.Code)
		for _, r := range c.Rules {
			fmt.Printf("  %-14s %s\n", r.Type, r.Pattern)
		}
	}
	return nil
}

func runClientsTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sig := models.CaptureSignal{
		WindowTitle: testTitle,
		ProcessName: testProcess,
		URL:         testURL,
		Hostname:    testHostname,
		SourceIP:    testIP,
	}

	engine := attribution.NewEngine(cfg.AttributionClients())
	matches := engine.DetectAll(sig)
	if len(matches) == 0 {
		fmt.Println("No client matched.")
		return nil
	}

	for i, m := range matches {
		marker := " "
		if i == 0 {
			marker = "*"
		}
		fmt.Printf("%s %s (%s)  confidence=%.2f  rule=%s %q  matched=%q\n",
			marker, m.ClientName, m.ClientCode, m.Confidence, m.RuleType, m.Pattern, m.MatchedValue)
	}
	return nil
}
