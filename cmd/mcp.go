package cmd

import (
	"github.com/huangsam/simchange/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the simchange MCP server",
	Long: `Launch an MCP server on stdio so AI agents can run detections and sweeps
through the detect_changes and sweep_changes tools.

Flags and config act as defaults that each tool call can override.`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager)
	},
}
