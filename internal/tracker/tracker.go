// Package tracker maintains running per-agent performance records and
// per-project health, derived from completed reviews.
//
// The tracker is the single writer for both record types. All mutation goes
// through a mutex: the incremental-mean update is neither commutative nor
// idempotent, so concurrent consumers must never race on a record.
package tracker

import (
	"sync"
	"time"

	"github.com/mstanton/overseer/internal/models"
)

// Thresholds for flagging an agent as underperforming.
const (
	minSampleSize   = 5
	minMeanScore    = 0.6
	maxRevisionRate = 0.5
)

// Dashboard is a point-in-time snapshot of pipeline-wide counters.
type Dashboard struct {
	TotalReviews  int
	PassedReviews int
	FailedReviews int
	AutoFixes     int
	AgentScores   map[string]float64
	ProjectHealth map[string]models.ProjectHealth
}

// Tracker aggregates review outcomes.
type Tracker struct {
	mu       sync.Mutex
	agents   map[string]*models.AgentPerformance
	projects map[string]models.ProjectHealth

	totalReviews  int
	passedReviews int
	failedReviews int
	autoFixes     int
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{
		agents:   make(map[string]*models.AgentPerformance),
		projects: make(map[string]models.ProjectHealth),
	}
}

// RecordOutcome updates the agent's record for one terminal review outcome.
// Approved counts as a pass; needs_revision and escalated count as fails.
// The mean is updated incrementally: new = old + (score-old)/total.
func (t *Tracker) RecordOutcome(agent string, score float64, passed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.agents[agent]
	if !ok {
		rec = &models.AgentPerformance{Agent: agent}
		t.agents[agent] = rec
	}

	rec.TotalReviews++
	if passed {
		rec.Passed++
		t.passedReviews++
	} else {
		rec.Failed++
		t.failedReviews++
	}
	t.totalReviews++

	rec.MeanScore += (score - rec.MeanScore) / float64(rec.TotalReviews)
	rec.RevisionRate = float64(rec.Failed) / float64(rec.TotalReviews)
}

// RecordAutoFixes adds to the pipeline-wide auto-fix counter.
func (t *Tracker) RecordAutoFixes(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.autoFixes += n
}

// AgentPerformance returns a copy of the agent's record, or false if the
// agent has never been reviewed.
func (t *Tracker) AgentPerformance(agent string) (models.AgentPerformance, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.agents[agent]
	if !ok {
		return models.AgentPerformance{}, false
	}
	return *rec, true
}

// Agents returns copies of every agent record.
func (t *Tracker) Agents() []models.AgentPerformance {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.AgentPerformance, 0, len(t.agents))
	for _, rec := range t.agents {
		out = append(out, *rec)
	}
	return out
}

// Underperformers returns agents with enough samples whose record breaches
// the mean-score or revision-rate thresholds.
func (t *Tracker) Underperformers() []models.AgentPerformance {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []models.AgentPerformance
	for _, rec := range t.agents {
		if rec.TotalReviews < minSampleSize {
			continue
		}
		if rec.MeanScore < minMeanScore || rec.RevisionRate > maxRevisionRate {
			out = append(out, *rec)
		}
	}
	return out
}

// UpdateProjectHealth recomputes the health bucket for every project with
// items currently in flight. Projects absent from the active set keep their
// last computed health.
func (t *Tracker) UpdateProjectHealth(active []*models.WorkItem) {
	scores := make(map[string][]float64)
	for _, item := range active {
		scores[item.Project] = append(scores[item.Project], item.Metrics.OverallScore)
	}

	now := time.Now().UTC()
	t.mu.Lock()
	defer t.mu.Unlock()
	for project, ss := range scores {
		sum := 0.0
		for _, s := range ss {
			sum += s
		}
		mean := sum / float64(len(ss))
		t.projects[project] = models.ProjectHealth{
			Project:     project,
			MeanScore:   mean,
			Status:      models.HealthStatusFor(mean),
			ItemCount:   len(ss),
			LastUpdated: now,
		}
	}
}

// ProjectHealth returns the last computed health for a project.
func (t *Tracker) ProjectHealth(project string) (models.ProjectHealth, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.projects[project]
	return h, ok
}

// Snapshot returns the current dashboard counters with copied maps.
func (t *Tracker) Snapshot() Dashboard {
	t.mu.Lock()
	defer t.mu.Unlock()

	scores := make(map[string]float64, len(t.agents))
	for name, rec := range t.agents {
		scores[name] = rec.MeanScore
	}
	health := make(map[string]models.ProjectHealth, len(t.projects))
	for name, h := range t.projects {
		health[name] = h
	}

	return Dashboard{
		TotalReviews:  t.totalReviews,
		PassedReviews: t.passedReviews,
		FailedReviews: t.failedReviews,
		AutoFixes:     t.autoFixes,
		AgentScores:   scores,
		ProjectHealth: health,
	}
}
