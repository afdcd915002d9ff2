package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/mstanton/overseer/internal/advice"
	"github.com/mstanton/overseer/internal/autofix"
	"github.com/mstanton/overseer/internal/intake"
	"github.com/mstanton/overseer/internal/models"
	"github.com/mstanton/overseer/internal/notify"
	"github.com/mstanton/overseer/internal/pipeline"
	"github.com/mstanton/overseer/internal/report"
	"github.com/mstanton/overseer/internal/review"
	"github.com/mstanton/overseer/internal/store"
	"github.com/mstanton/overseer/internal/tracker"
)

// newLogger builds the shared slog logger, honoring --verbose.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newAdviceClient creates an LLM advice client from config/env, or returns
// nil if no API key is configured.
func newAdviceClient() *advice.Client {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil
	}
	return advice.NewClient(apiKey, viper.GetString("anthropic.model"))
}

// pipelineConfig reads the orchestrator knobs from viper.
func pipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.AutoFix = viper.GetBool("review.auto_fix")
	cfg.MinScore = viper.GetFloat64("review.min_score")
	cfg.MaxRevisions = viper.GetInt("review.max_revisions")
	cfg.QueueSize = viper.GetInt("review.queue_size")
	cfg.MaxConcurrent = viper.GetInt("review.max_concurrent")
	cfg.PerformanceSweepInterval = viper.GetDuration("sweep.performance")
	cfg.HealthSweepInterval = viper.GetDuration("sweep.health")
	cfg.ReportInterval = viper.GetDuration("sweep.report")
	return cfg
}

// buildPipeline wires the full review pipeline from config: store, reviewer
// set, auto-fix engine, tracker seeded from persisted history, file-based
// notices and escalations, and the optional LLM plan drafter.
func buildPipeline(ctx context.Context, log *slog.Logger) (*pipeline.Pipeline, store.Store, error) {
	s, err := getStore()
	if err != nil {
		return nil, nil, err
	}

	tr := tracker.New()
	if err := restoreTracker(ctx, s, tr); err != nil {
		log.Warn("could not restore aggregates from history", "error", err)
	}

	notifier := notify.WithRetry(
		notify.FileNotifier{Dir: viper.GetString("notify.dir")},
		viper.GetInt("notify.max_attempts"),
		viper.GetDuration("notify.retry_delay"),
		log,
	)
	escalator := notify.WithEscalateRetry(
		notify.FileEscalator{Dir: viper.GetString("escalations.dir")},
		viper.GetInt("notify.max_attempts"),
		viper.GetDuration("notify.retry_delay"),
		log,
	)

	pipe, err := pipeline.New(pipelineConfig(),
		review.NewSet(review.PathHeuristic{}), autofix.NewEngine(log),
		tr, s, notifier, escalator, log)
	if err != nil {
		return nil, nil, err
	}

	gen := &report.Generator{
		Tracker: tr,
		Store:   s,
		Active:  pipe.ActiveItems,
		Dir:     viper.GetString("reports.dir"),
		Log:     log,
	}
	pipe.ReportFunc = func(ctx context.Context) {
		if _, err := gen.Generate(ctx); err != nil {
			log.Error("daily report failed", "error", err)
		}
	}

	if client := newAdviceClient(); client != nil {
		pipe.PlanFunc = func(ctx context.Context, perf models.AgentPerformance) string {
			plan, err := client.ImprovementPlan(ctx, perf, recentIssueTypes(ctx, s, perf.Agent))
			if err != nil {
				log.Warn("LLM improvement plan failed, using template", "agent", perf.Agent, "error", err)
				return notify.ImprovementPlan(perf)
			}
			return plan
		}
		pipe.BriefFunc = func(ctx context.Context, rec models.Escalation) string {
			brief, err := client.EscalationBrief(ctx, rec)
			if err != nil {
				log.Warn("LLM escalation brief failed, using template", "id", rec.WorkItemID, "error", err)
				return rec.Report
			}
			return brief
		}
	}

	return pipe, s, nil
}

// restoreTracker replays persisted terminal outcomes so aggregates survive
// restarts. Error records are skipped: they never entered the aggregates.
func restoreTracker(ctx context.Context, s store.Store, tr *tracker.Tracker) error {
	recs, err := s.ListReviewResults(ctx, store.ReviewFilter{})
	if err != nil {
		return err
	}
	for _, rec := range recs {
		switch rec.Status {
		case models.WorkStatusApproved:
			tr.RecordOutcome(rec.Agent, rec.Metrics.OverallScore, true)
		case models.WorkStatusNeedsRevision, models.WorkStatusEscalated:
			tr.RecordOutcome(rec.Agent, rec.Metrics.OverallScore, false)
		}
	}
	return nil
}

// recentIssueTypes collects distinct issue types from the agent's latest
// failed reviews, as context for the LLM plan.
func recentIssueTypes(ctx context.Context, s store.Store, agent string) []string {
	recs, err := s.ListReviewResults(ctx, store.ReviewFilter{Agent: agent, Limit: 10})
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, rec := range recs {
		for _, iss := range rec.Issues {
			if !seen[iss.IssueType] {
				seen[iss.IssueType] = true
				out = append(out, iss.IssueType)
			}
		}
	}
	return out
}

// newBuilder creates the work item builder shared by submit, watch, serve,
// and mcp.
func newBuilder() *intake.Builder {
	b := intake.NewBuilder()
	b.MaxRevisions = viper.GetInt("review.max_revisions")
	return b
}

// watcherOptions reads the debounce window from config.
func watcherOptions() intake.WatcherOptions {
	opts := intake.DefaultWatcherOptions()
	if d := viper.GetDuration("watch.debounce"); d > 0 {
		opts.DebounceWindow = d
	}
	return opts
}
