package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mstanton/overseer/internal/models"
	"github.com/mstanton/overseer/internal/output"
)

var (
	submitAgent   string
	submitProject string
)

var submitCmd = &cobra.Command{
	Use:   "submit <file>...",
	Short: "Review one or more artifacts immediately",
	Long: `Review artifacts synchronously, without the watcher or the queue.

Each file is classified, reviewed, auto-fixed where possible, and the
final status is printed. Results are persisted the same way the watch
pipeline persists them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitRun(cmd.Context(), args)
	},
}

func init() {
	submitCmd.Flags().StringVar(&submitAgent, "agent", "", "Override agent attribution")
	submitCmd.Flags().StringVar(&submitProject, "project", "", "Override project name")
	rootCmd.AddCommand(submitCmd)
}

func submitRun(ctx context.Context, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := newLogger()
	pipe, _, err := buildPipeline(ctx, log)
	if err != nil {
		return err
	}

	builder := newBuilder()
	for _, path := range paths {
		item, err := builder.Build(path)
		if err != nil {
			ui.Error("%s: %v", path, err)
			continue
		}
		if submitAgent != "" {
			item.Agent = submitAgent
		}
		if submitProject != "" {
			item.Project = submitProject
		}

		if dryRun {
			ui.DryRunMsg("Would review %s (%s, agent %s)", path, item.WorkType, item.Agent)
			continue
		}

		status := pipe.Submit(ctx, item)
		printResult(item, status)
	}
	return nil
}

func printResult(item *models.WorkItem, status models.WorkStatus) {
	fmt.Fprintf(ui.Out, "%s  %s  score %s  %s\n",
		output.StatusColor(string(status)),
		item.FilePath,
		output.ScoreColor(item.Metrics.OverallScore),
		item.Agent)

	if len(item.Issues) == 0 || status == models.WorkStatusApproved {
		return
	}
	for _, iss := range item.Issues {
		line := fmt.Sprintf("  [%s] %s", iss.Severity, iss.Description)
		if iss.Severity == models.SeverityCritical {
			line = output.Red(line)
		}
		fmt.Fprintln(ui.Out, line)
	}
	switch status {
	case models.WorkStatusNeedsRevision:
		ui.Warning("revision %d requested for %s", item.RevisionCount, item.FilePath)
	case models.WorkStatusEscalated:
		ui.Error("escalated to human review after %d attempts", item.RevisionCount)
	}
}
