package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mstanton/overseer/internal/report"
)

var (
	reportStdout bool
	reportJSON   bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate the daily quality report",
	Long: `Build the daily quality report from the persisted review history and
write the JSON record plus the executive summary to reports.dir.

Use --stdout to print the executive summary instead of writing files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportRun(cmd.Context())
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportStdout, "stdout", false, "Print the executive summary instead of writing files")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Print the report as JSON (implies --stdout)")
	rootCmd.AddCommand(reportCmd)
}

func reportRun(ctx context.Context) error {
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

	gen := &report.Generator{
		Tracker: tr,
		Store:   s,
		Dir:     viper.GetString("reports.dir"),
		Log:     newLogger(),
	}

	if reportStdout || reportJSON || dryRun {
		r, err := gen.Build(ctx)
		if err != nil {
			return err
		}
		if reportJSON {
			enc := json.NewEncoder(ui.Out)
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		}
		fmt.Fprint(ui.Out, report.ExecutiveSummary(r))
		return nil
	}

	r, err := gen.Generate(ctx)
	if err != nil {
		return err
	}
	ui.Success("daily report for %s written to %s", r.Date, viper.GetString("reports.dir"))
	return nil
}
