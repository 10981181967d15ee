package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smerrill/worktrace/cmd/worktrace/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Start MCP server exposing recorded activity",
	Long: `Start an MCP (Model Context Protocol) server over stdio so assistants
can query recording statistics, daily sessions, and test attribution rules.

Configure in the client's MCP config:
  {
    "mcpServers": {
      "worktrace": {
        "command": "worktrace",
        "args": ["serve-mcp"]
      }
    }
  }
`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	if err := mcp.StartServer(dbPath, configPath); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
