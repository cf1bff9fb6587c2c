package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	cimcp "github.com/rh-ecosystem-edge/ci-matrix/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the cimatrix MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the cimatrix MCP server on stdio",
	Long: `Start the cimatrix MCP server on stdio transport.

The server exposes the test history and build listings as MCP tools that
AI assistants can call: list_platforms, get_platform_history, get_alerts,
diff_snapshots, list_job_builds.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if History == nil || AlertEngine == nil {
			return fmt.Errorf("history store not initialized")
		}

		srv := cimcp.NewServer(History, AlertEngine, Blobs, CollectorCfg, appVersion)
		if err := srv.Run(commandContext(cmd)); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}
		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
