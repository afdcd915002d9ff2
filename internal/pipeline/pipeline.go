// Package pipeline orchestrates the review lifecycle: dequeue, review,
// optional auto-fix and re-review, then the approve / revise / escalate
// decision.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mstanton/overseer/internal/autofix"
	"github.com/mstanton/overseer/internal/models"
	"github.com/mstanton/overseer/internal/notify"
	"github.com/mstanton/overseer/internal/review"
	"github.com/mstanton/overseer/internal/scoring"
	"github.com/mstanton/overseer/internal/store"
	"github.com/mstanton/overseer/internal/tracker"
)

// Config holds the orchestrator knobs.
type Config struct {
	// AutoFix enables the fix-then-re-review path for needs_improvement
	// items.
	AutoFix bool
	// MinScore is the passing threshold quoted in revision instructions.
	MinScore float64
	// MaxRevisions caps revision attempts before escalation for items that
	// do not carry their own limit.
	MaxRevisions int
	// QueueSize bounds the ingestion queue.
	QueueSize int
	// MaxConcurrent is accepted for config compatibility but the pipeline
	// runs exactly one consumer: the running-mean updates in the tracker
	// and the serial fix/re-review cycle assume one item in flight.
	MaxConcurrent int
	// DequeueTimeout bounds each queue poll so the consumer can observe
	// shutdown.
	DequeueTimeout time.Duration

	// Sweep schedules. Zero disables the sweep.
	PerformanceSweepInterval time.Duration
	HealthSweepInterval      time.Duration
	ReportInterval           time.Duration
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		AutoFix:                  true,
		MinScore:                 0.7,
		MaxRevisions:             models.DefaultMaxRevisions,
		QueueSize:                DefaultQueueSize,
		MaxConcurrent:            1,
		DequeueTimeout:           time.Second,
		PerformanceSweepInterval: 5 * time.Minute,
		HealthSweepInterval:      time.Minute,
		ReportInterval:           24 * time.Hour,
	}
}

// Pipeline owns the ingestion queue, the active item set, and every
// collaborator the review lifecycle touches.
type Pipeline struct {
	cfg       Config
	reviewers *review.Set
	fixer     *autofix.Engine
	tracker   *tracker.Tracker
	store     store.Store
	notifier  notify.Notifier
	escalator notify.Escalator
	log       *slog.Logger
	queue     *Queue

	// ReportFunc, when set, runs on the report sweep schedule.
	ReportFunc func(ctx context.Context)

	// PlanFunc, when set, drafts the improvement plan for an
	// underperforming agent. The default is the static template.
	PlanFunc func(ctx context.Context, perf models.AgentPerformance) string

	// BriefFunc, when set, rewrites the escalation report before it is
	// persisted and delivered. The default is the static template.
	BriefFunc func(ctx context.Context, rec models.Escalation) string

	mu     sync.Mutex
	active map[string]*models.WorkItem
}

// New builds a pipeline and eagerly validates the transformer registry
// against the reviewers' auto-fixable issue types. A gap is a configuration
// error and fails startup.
func New(cfg Config, reviewers *review.Set, fixer *autofix.Engine, tr *tracker.Tracker, st store.Store, notifier notify.Notifier, escalator notify.Escalator, log *slog.Logger) (*Pipeline, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxRevisions <= 0 {
		cfg.MaxRevisions = models.DefaultMaxRevisions
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = DefaultConfig().MinScore
	}
	if cfg.DequeueTimeout <= 0 {
		cfg.DequeueTimeout = time.Second
	}
	if cfg.MaxConcurrent > 1 {
		log.Warn("max_concurrent > 1 is not supported, running a single consumer",
			"requested", cfg.MaxConcurrent)
	}

	if cfg.AutoFix {
		if err := fixer.Validate(review.AutoFixableIssueTypes()); err != nil {
			return nil, err
		}
	}

	return &Pipeline{
		cfg:       cfg,
		reviewers: reviewers,
		fixer:     fixer,
		tracker:   tr,
		store:     st,
		notifier:  notifier,
		escalator: escalator,
		log:       log,
		queue:     NewQueue(cfg.QueueSize),
		active:    make(map[string]*models.WorkItem),
	}, nil
}

// Tracker exposes the aggregator for reporting and the API layer.
func (p *Pipeline) Tracker() *tracker.Tracker { return p.tracker }

// QueueLen returns the current ingestion backlog.
func (p *Pipeline) QueueLen() int { return p.queue.Len() }

// Enqueue adds a work item to the ingestion queue.
func (p *Pipeline) Enqueue(item *models.WorkItem) error {
	if err := p.queue.Enqueue(item); err != nil {
		p.log.Warn("dropping work item", "file", item.FilePath, "error", err)
		return err
	}
	return nil
}

// Submit reviews one work item to completion and returns its final status.
// A resubmitted artifact (same path, prior pass ended needs_revision)
// continues the earlier item's revision count.
func (p *Pipeline) Submit(ctx context.Context, item *models.WorkItem) models.WorkStatus {
	p.adoptPriorRevision(item)
	p.trackActive(item)

	status, err := p.process(ctx, item)
	if err != nil {
		// Reviewer failure: the item ends in error, aggregates untouched.
		p.log.Error("review failed", "file", item.FilePath, "id", item.ID, "error", err)
		item.Status = models.WorkStatusError
		p.persist(ctx, item)
		p.dropActive(item.ID)
		return item.Status
	}

	item.Status = status
	p.persist(ctx, item)

	switch status {
	case models.WorkStatusApproved, models.WorkStatusEscalated, models.WorkStatusError:
		p.dropActive(item.ID)
	}
	return status
}

// process runs the review state machine and returns the final status.
// Notification delivery problems are logged, never returned: they must not
// change review state.
func (p *Pipeline) process(ctx context.Context, item *models.WorkItem) (models.WorkStatus, error) {
	std, err := p.reviewOnce(item)
	if err != nil {
		return models.WorkStatusError, err
	}

	if std.Passing() {
		p.approve(item)
		return models.WorkStatusApproved, nil
	}

	// Auto-fix applies only to an originally-needs_improvement item. An
	// unacceptable first pass goes straight to revision handling.
	if std == models.StandardNeedsImprovement && p.cfg.AutoFix {
		fixed := p.fixer.FixAll(item)
		if fixed > 0 {
			p.tracker.RecordAutoFixes(fixed)
			p.persistContent(item)

			recheck, err := p.reviewOnce(item)
			if err != nil {
				return models.WorkStatusError, err
			}
			p.log.Info("re-review after auto-fix",
				"file", item.FilePath, "fixed", fixed,
				"score", item.Metrics.OverallScore, "standard", string(recheck))
			if recheck.Passing() {
				p.approve(item)
				return models.WorkStatusApproved, nil
			}
		}
	}

	return p.handleRevision(ctx, item), nil
}

// reviewOnce runs the matching reviewer and scores the item.
func (p *Pipeline) reviewOnce(item *models.WorkItem) (models.QualityStandard, error) {
	reviewer := p.reviewers.ForType(item.WorkType)
	if reviewer == nil {
		return "", fmt.Errorf("no reviewer for work type %q", item.WorkType)
	}
	issues, metrics, err := reviewer.Review(item)
	if err != nil {
		return "", fmt.Errorf("reviewer %s: %w", item.WorkType, err)
	}
	item.Issues = issues
	item.Metrics = metrics
	item.Metrics.OverallScore = scoring.Overall(metrics)
	return scoring.Classify(item.Metrics, item.Issues), nil
}

func (p *Pipeline) approve(item *models.WorkItem) {
	p.tracker.RecordOutcome(item.Agent, item.Metrics.OverallScore, true)
	p.log.Info("approved", "file", item.FilePath, "agent", item.Agent,
		"score", item.Metrics.OverallScore)
}

// handleRevision increments the attempt counter and either requests another
// revision or escalates. An escalated item gets exactly one escalation
// report and no revision notice.
func (p *Pipeline) handleRevision(ctx context.Context, item *models.WorkItem) models.WorkStatus {
	item.RevisionCount++
	p.tracker.RecordOutcome(item.Agent, item.Metrics.OverallScore, false)

	maxRev := item.MaxRevisions
	if maxRev <= 0 {
		maxRev = p.cfg.MaxRevisions
	}

	if item.RevisionCount >= maxRev {
		p.escalate(ctx, item)
		return models.WorkStatusEscalated
	}

	instructions := notify.RevisionInstructions(item, p.cfg.MinScore)
	if _, err := notify.WriteRevisionNotice(item, instructions); err != nil {
		p.log.Error("failed to write revision notice", "file", item.FilePath, "error", err)
	}
	if err := p.notifier.Notify(item.Agent, instructions); err != nil {
		p.log.Error("revision notice delivery failed", "agent", item.Agent, "error", err)
	}
	p.log.Warn("revision required", "file", item.FilePath,
		"attempt", item.RevisionCount, "max", maxRev)
	return models.WorkStatusNeedsRevision
}

func (p *Pipeline) escalate(ctx context.Context, item *models.WorkItem) {
	rec := models.Escalation{
		WorkItemID: item.ID,
		FilePath:   item.FilePath,
		Agent:      item.Agent,
		Project:    item.Project,
		Attempts:   item.RevisionCount,
		Score:      item.Metrics.OverallScore,
		Issues:     item.Issues,
		Report:     notify.EscalationReport(item),
		CreatedAt:  time.Now().UTC(),
	}

	if p.BriefFunc != nil {
		if brief := p.BriefFunc(ctx, rec); brief != "" {
			rec.Report = brief
		}
	}

	if p.store != nil {
		if err := p.store.PutEscalation(ctx, &rec); err != nil {
			p.log.Error("failed to store escalation", "id", item.ID, "error", err)
		}
	}
	if p.escalator != nil {
		if err := p.escalator.Escalate(rec); err != nil {
			p.log.Error("escalation delivery failed", "id", item.ID, "error", err)
		}
	}
	p.log.Error("escalated after max revisions", "file", item.FilePath,
		"agent", item.Agent, "attempts", item.RevisionCount)
}

// persistContent writes auto-fixed content back to the artifact so the
// agent's next edit starts from the fixed version.
func (p *Pipeline) persistContent(item *models.WorkItem) {
	if err := os.WriteFile(item.FilePath, []byte(item.Content), 0o644); err != nil {
		p.log.Error("failed to persist fixed content", "file", item.FilePath, "error", err)
	}
}

func (p *Pipeline) persist(ctx context.Context, item *models.WorkItem) {
	if p.store == nil {
		return
	}
	if _, err := p.store.PutReviewResult(ctx, item); err != nil {
		p.log.Error("failed to store review result", "id", item.ID, "error", err)
	}
}

// adoptPriorRevision carries the revision counter across resubmissions of
// the same artifact while its earlier pass awaits revision.
func (p *Pipeline) adoptPriorRevision(item *models.WorkItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, prior := range p.active {
		if prior.FilePath == item.FilePath && prior.Status == models.WorkStatusNeedsRevision {
			item.ID = prior.ID
			item.RevisionCount = prior.RevisionCount
			if item.MaxRevisions <= 0 {
				item.MaxRevisions = prior.MaxRevisions
			}
			delete(p.active, id)
			return
		}
	}
}

func (p *Pipeline) trackActive(item *models.WorkItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active[item.ID] = item
}

func (p *Pipeline) dropActive(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, id)
}

// ActiveItems returns the items not yet in a final state: in flight or
// awaiting a revision.
func (p *Pipeline) ActiveItems() []*models.WorkItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*models.WorkItem, 0, len(p.active))
	for _, item := range p.active {
		out = append(out, item)
	}
	return out
}
