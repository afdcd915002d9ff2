package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mstanton/overseer/internal/notify"
	"github.com/mstanton/overseer/internal/output"
	"github.com/mstanton/overseer/internal/store"
	"github.com/mstanton/overseer/internal/tracker"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Show agent performance records",
	Long: `Show per-agent performance derived from the persisted review history:
review counts, mean quality score, revision rate, and underperformance
flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return agentListRun(cmd.Context())
	},
}

var agentShowCmd = &cobra.Command{
	Use:   "show <agent>",
	Short: "Show one agent's record and recent reviews",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return agentShowRun(cmd.Context(), args[0])
	},
}

func init() {
	agentCmd.AddCommand(agentShowCmd)
	rootCmd.AddCommand(agentCmd)
}

// historyTracker rebuilds the aggregates from the persisted history.
func historyTracker(ctx context.Context, s store.Store) (*tracker.Tracker, error) {
	tr := tracker.New()
	if err := restoreTracker(ctx, s, tr); err != nil {
		return nil, err
	}
	return tr, nil
}

func agentListRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	tr, err := historyTracker(ctx, s)
	if err != nil {
		return err
	}

	agents := tr.Agents()
	if len(agents) == 0 {
		ui.Info("No agents reviewed yet.")
		return nil
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].Agent < agents[j].Agent })

	flagged := make(map[string]bool)
	for _, perf := range tr.Underperformers() {
		flagged[perf.Agent] = true
	}

	table := ui.Table([]string{"Agent", "Reviews", "Passed", "Failed", "Mean", "Rev Rate", "Flag"})
	for _, perf := range agents {
		flag := "-"
		if flagged[perf.Agent] {
			flag = output.Red("underperforming")
		}
		table.Append([]string{
			output.Cyan(perf.Agent),
			fmt.Sprintf("%d", perf.TotalReviews),
			fmt.Sprintf("%d", perf.Passed),
			fmt.Sprintf("%d", perf.Failed),
			output.ScoreColor(perf.MeanScore),
			fmt.Sprintf("%.0f%%", perf.RevisionRate*100),
			flag,
		})
	}
	return table.Render()
}

func agentShowRun(ctx context.Context, name string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	tr, err := historyTracker(ctx, s)
	if err != nil {
		return err
	}

	perf, ok := tr.AgentPerformance(name)
	if !ok {
		return fmt.Errorf("no reviews recorded for agent %q", name)
	}

	fmt.Fprintf(ui.Out, "Agent:          %s\n", output.Cyan(perf.Agent))
	fmt.Fprintf(ui.Out, "Total reviews:  %d (%d passed, %d failed)\n",
		perf.TotalReviews, perf.Passed, perf.Failed)
	fmt.Fprintf(ui.Out, "Mean score:     %s\n", output.ScoreColor(perf.MeanScore))
	fmt.Fprintf(ui.Out, "Revision rate:  %.0f%%\n", perf.RevisionRate*100)

	flagged := false
	for _, u := range tr.Underperformers() {
		if u.Agent == name {
			flagged = true
			break
		}
	}
	if flagged {
		fmt.Fprintln(ui.Out)
		ui.Warning("agent is flagged as underperforming")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, notify.ImprovementPlan(perf))
	}

	recs, err := s.ListReviewResults(ctx, store.ReviewFilter{Agent: name, Limit: 10})
	if err != nil || len(recs) == 0 {
		return err
	}
	fmt.Fprintln(ui.Out)
	table := ui.Table([]string{"File", "Status", "Score", "When"})
	for _, rec := range recs {
		table.Append([]string{
			rec.FilePath,
			output.StatusColor(string(rec.Status)),
			output.ScoreColor(rec.Metrics.OverallScore),
			timeAgo(rec.CreatedAt),
		})
	}
	return table.Render()
}
