package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forest6511/hygienectl/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpServerCmd)
}

// mcpServerCmd starts the MCP server for AI assistant integration
var mcpServerCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Start the MCP server for AI assistant integration",
	Long: `Start the MCP server that gives AI assistants read-only access to vault
hygiene data.

The server implements the Model Context Protocol (MCP) over stdio transport.
Agents receive scores, advice and per-item metadata. Stored passwords are
never returned, and usernames are masked.

Available tools:
  - vault_list:        List items with strength, reuse and age (no passwords)
  - password_analyze:  Analyze a candidate password or a stored item by id
  - hygiene_score:     Health score, radar axes and gamification level
  - hygiene_tips:      Prioritized advice
  - hygiene_report:    Summary report with the items to fix first
  - hygiene_timeline:  Health history and its trend

Authentication:
  Set HYGIENECTL_PASSWORD environment variable before starting the server.
  The password is read once and immediately cleared from the environment.

Example MCP configuration:
  {
    "mcpServers": {
      "hygienectl": {
        "type": "stdio",
        "command": "/path/to/hygienectl",
        "args": ["mcp-server"],
        "env": {
          "HYGIENECTL_PASSWORD": "your-master-password"
        }
      }
    }
  }`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCPServer(cmd.Context())
	},
}

func runMCPServer(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if err := openVault(ctx); err != nil {
		return err
	}

	server, err := mcp.NewServer(ctx, &mcp.ServerOptions{
		Vault:   v,
		Logger:  logger,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
			server.Close()
		case <-ctx.Done():
		}
	}()

	if err := server.Run(ctx); err != nil {
		// Don't report context canceled as an error
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
