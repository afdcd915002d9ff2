package pipeline

import (
	"context"
	"time"

	"github.com/mstanton/overseer/internal/notify"
)

// Run drains the ingestion queue until ctx is canceled. Items are processed
// strictly one at a time; the sweep timers run on their own goroutines so a
// slow sweep never blocks ingestion.
func (p *Pipeline) Run(ctx context.Context) {
	p.startSweeps(ctx)
	p.log.Info("review consumer started", "queue_size", p.cfg.QueueSize)

	for {
		if ctx.Err() != nil {
			p.log.Info("review consumer stopped")
			return
		}
		item, ok := p.queue.Dequeue(ctx, p.cfg.DequeueTimeout)
		if !ok {
			continue
		}
		p.log.Info("reviewing", "file", item.FilePath, "agent", item.Agent,
			"work_type", string(item.WorkType))
		p.Submit(ctx, item)
	}
}

func (p *Pipeline) startSweeps(ctx context.Context) {
	if p.cfg.PerformanceSweepInterval > 0 {
		go p.runEvery(ctx, p.cfg.PerformanceSweepInterval, p.performanceSweep)
	}
	if p.cfg.HealthSweepInterval > 0 {
		go p.runEvery(ctx, p.cfg.HealthSweepInterval, func(context.Context) {
			p.tracker.UpdateProjectHealth(p.ActiveItems())
		})
	}
	if p.cfg.ReportInterval > 0 && p.ReportFunc != nil {
		go p.runEvery(ctx, p.cfg.ReportInterval, p.ReportFunc)
	}
}

func (p *Pipeline) runEvery(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// performanceSweep sends one improvement plan per underperforming agent per
// sweep. Delivery failures are logged and do not repeat within the sweep.
func (p *Pipeline) performanceSweep(ctx context.Context) {
	for _, perf := range p.tracker.Underperformers() {
		p.log.Warn("underperforming agent", "agent", perf.Agent,
			"mean_score", perf.MeanScore, "revision_rate", perf.RevisionRate,
			"total_reviews", perf.TotalReviews)
		plan := notify.ImprovementPlan(perf)
		if p.PlanFunc != nil {
			plan = p.PlanFunc(ctx, perf)
		}
		if err := p.notifier.Notify(perf.Agent, plan); err != nil {
			p.log.Error("improvement plan delivery failed", "agent", perf.Agent, "error", err)
		}
	}
}
