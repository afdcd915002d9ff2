package cmd

import (
	"context"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mstanton/overseer/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio, alongside the
review consumer.

This lets coding agents submit artifacts for review and inspect their
own standing natively. Configure in the agent runner with:

  {
    "mcpServers": {
      "overseer": { "command": "overseer", "args": ["mcp"] }
    }
  }

Available tools: overseer_submit_review, overseer_list_reviews,
overseer_get_review, overseer_agent_performance, overseer_project_health,
overseer_list_escalations, overseer_dashboard`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun() error {
	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
	defer stop()

	log := newLogger()
	pipe, s, err := buildPipeline(ctx, log)
	if err != nil {
		return err
	}

	go pipe.Run(ctx)

	return mcp.NewServer(s, pipe, newBuilder()).ServeStdio(ctx)
}
