package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mstanton/overseer/internal/output"
	"github.com/mstanton/overseer/internal/store"
)

var (
	statusAgent   string
	statusProject string
	statusLimit   int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the review history dashboard",
	Long: `Show aggregate counters from the persisted review history plus the
most recent review results. Filter with --agent and --project.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusRun(cmd.Context())
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusAgent, "agent", "", "Filter by agent")
	statusCmd.Flags().StringVar(&statusProject, "project", "", "Filter by project")
	statusCmd.Flags().IntVar(&statusLimit, "limit", 15, "Number of recent reviews to show")
	rootCmd.AddCommand(statusCmd)
}

func statusRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := getStore()
	if err != nil {
		return err
	}

	snap, err := s.HealthSnapshot(ctx)
	if err != nil {
		return err
	}

	if snap.TotalReviews == 0 {
		ui.Info("No reviews recorded yet. Use 'overseer submit <file>' or 'overseer watch'.")
		return nil
	}

	fmt.Fprintf(ui.Out, "Reviews: %d total   %s approved   %s needing revision   %s escalated   %d errors\n",
		snap.TotalReviews,
		output.Green(fmt.Sprintf("%d", snap.Approved)),
		output.Yellow(fmt.Sprintf("%d", snap.NeedsRevision)),
		output.Red(fmt.Sprintf("%d", snap.Escalated)),
		snap.Errors)
	fmt.Fprintf(ui.Out, "Mean score: %s   Open escalations: %d\n\n",
		output.ScoreColor(snap.MeanScore), snap.OpenEscalations)

	recs, err := s.ListReviewResults(ctx, store.ReviewFilter{
		Agent:   statusAgent,
		Project: statusProject,
		Limit:   statusLimit,
	})
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		ui.Info("No reviews match the filter.")
		return nil
	}

	table := ui.Table([]string{"File", "Type", "Agent", "Project", "Status", "Score", "Rev", "When"})
	for _, rec := range recs {
		table.Append([]string{
			filepath.Base(rec.FilePath),
			string(rec.WorkType),
			rec.Agent,
			output.Cyan(rec.Project),
			output.StatusColor(string(rec.Status)),
			output.ScoreColor(rec.Metrics.OverallScore),
			fmt.Sprintf("%d", rec.RevisionCount),
			timeAgo(rec.CreatedAt),
		})
	}
	return table.Render()
}

// timeAgo formats a timestamp as a short relative duration.
func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "n/a"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
