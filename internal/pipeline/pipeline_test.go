package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstanton/overseer/internal/autofix"
	"github.com/mstanton/overseer/internal/models"
	"github.com/mstanton/overseer/internal/review"
	"github.com/mstanton/overseer/internal/store"
	"github.com/mstanton/overseer/internal/tracker"
)

type scriptedReviewer struct {
	fn func(item *models.WorkItem) ([]models.QualityIssue, models.QualityMetrics, error)
}

func (r *scriptedReviewer) Review(item *models.WorkItem) ([]models.QualityIssue, models.QualityMetrics, error) {
	return r.fn(item)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (n *fakeNotifier) Notify(agent, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, agent+": "+message)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fakeEscalator struct {
	mu   sync.Mutex
	recs []models.Escalation
}

func (e *fakeEscalator) Escalate(rec models.Escalation) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recs = append(e.recs, rec)
	return nil
}

func (e *fakeEscalator) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.recs)
}

func metricsWithOverall(scores [6]float64) models.QualityMetrics {
	m := models.QualityMetrics{
		CodeQuality:    scores[0],
		TestCoverage:   scores[1],
		Documentation:  scores[2],
		Security:       scores[3],
		Performance:    scores[4],
		ArchCompliance: scores[5],
	}
	m.Recalculate()
	return m
}

func uniformMetrics(score float64) models.QualityMetrics {
	return metricsWithOverall([6]float64{score, score, score, score, score, score})
}

// testPipeline wires a pipeline around a scripted code reviewer.
type testPipeline struct {
	p   *Pipeline
	n   *fakeNotifier
	e   *fakeEscalator
	tr  *tracker.Tracker
	st  store.Store
	dir string
}

func newTestPipeline(t *testing.T, cfg Config, fn func(item *models.WorkItem) ([]models.QualityIssue, models.QualityMetrics, error)) *testPipeline {
	t.Helper()

	reviewers := review.NewSet(review.PathHeuristic{})
	reviewers.Register(models.WorkTypeCode, &scriptedReviewer{fn: fn})

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	n := &fakeNotifier{}
	e := &fakeEscalator{}
	tr := tracker.New()

	p, err := New(cfg, reviewers, autofix.NewEngine(nil), tr, st, n, e, nil)
	require.NoError(t, err)

	return &testPipeline{p: p, n: n, e: e, tr: tr, st: st, dir: t.TempDir()}
}

func (tp *testPipeline) newItem(t *testing.T, content string) *models.WorkItem {
	t.Helper()
	path := filepath.Join(tp.dir, "handler.go")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return &models.WorkItem{
		ID:           "01ITEM" + time.Now().Format("150405.000000000"),
		WorkType:     models.WorkTypeCode,
		FilePath:     path,
		Agent:        "dev-backend",
		Project:      "billing",
		Content:      content,
		Status:       models.WorkStatusPending,
		MaxRevisions: 3,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestSubmit_GoodScoreApproved(t *testing.T) {
	// Sub-scores [1,1,1,1,1,0]: overall 0.833, classification good.
	tp := newTestPipeline(t, DefaultConfig(), func(*models.WorkItem) ([]models.QualityIssue, models.QualityMetrics, error) {
		return nil, metricsWithOverall([6]float64{1, 1, 1, 1, 1, 0}), nil
	})

	item := tp.newItem(t, "package x\n")
	status := tp.p.Submit(context.Background(), item)

	assert.Equal(t, models.WorkStatusApproved, status)
	assert.Zero(t, item.RevisionCount)
	assert.InDelta(t, 5.0/6.0, item.Metrics.OverallScore, 1e-9)

	perf, ok := tp.tr.AgentPerformance("dev-backend")
	require.True(t, ok)
	assert.Equal(t, 1, perf.Passed)
	assert.Empty(t, tp.p.ActiveItems(), "approved item leaves the active set")
}

func TestSubmit_CriticalIssueUnacceptable(t *testing.T) {
	// A perfect score with a critical issue is still unacceptable and goes
	// straight to revision handling, never through auto-fix.
	tp := newTestPipeline(t, DefaultConfig(), func(*models.WorkItem) ([]models.QualityIssue, models.QualityMetrics, error) {
		return []models.QualityIssue{{
			IssueType:   "hardcoded_password",
			Severity:    models.SeverityCritical,
			Description: "Security issue detected: hardcoded_password",
			AutoFixable: true,
		}}, uniformMetrics(1.0), nil
	})

	item := tp.newItem(t, "password = \"hunter2\"\n")
	status := tp.p.Submit(context.Background(), item)

	assert.Equal(t, models.WorkStatusNeedsRevision, status)
	assert.Equal(t, 1, item.RevisionCount)
	assert.Equal(t, 1, tp.n.count(), "revision notice delivered")
	assert.Zero(t, tp.e.count())
}

func TestSubmit_AutoFixThenApproved(t *testing.T) {
	// First pass 0.65 with one fixable issue; the re-review of fixed
	// content scores 0.82. Final status approved, revision count stays 0.
	tp := newTestPipeline(t, DefaultConfig(), func(item *models.WorkItem) ([]models.QualityIssue, models.QualityMetrics, error) {
		if strings.Contains(item.Content, "// log.Printf") {
			return nil, uniformMetrics(0.82), nil
		}
		return []models.QualityIssue{{
			IssueType:   review.IssueMissingLogging,
			Severity:    models.SeverityMedium,
			Description: "Code lacks logging",
			AutoFixable: true,
		}}, uniformMetrics(0.65), nil
	})

	item := tp.newItem(t, "package x\n")
	status := tp.p.Submit(context.Background(), item)

	assert.Equal(t, models.WorkStatusApproved, status)
	assert.Zero(t, item.RevisionCount)
	assert.Zero(t, tp.n.count(), "no revision notice for an auto-fixed item")

	// Fixed content is persisted back to the artifact.
	data, err := os.ReadFile(item.FilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "// log.Printf")

	snap := tp.tr.Snapshot()
	assert.Equal(t, 1, snap.AutoFixes)
}

func TestSubmit_AutoFixDisabledGoesToRevision(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoFix = false
	tp := newTestPipeline(t, cfg, func(*models.WorkItem) ([]models.QualityIssue, models.QualityMetrics, error) {
		return []models.QualityIssue{{
			IssueType:   review.IssueMissingLogging,
			Severity:    models.SeverityMedium,
			Description: "Code lacks logging",
			AutoFixable: true,
		}}, uniformMetrics(0.65), nil
	})

	item := tp.newItem(t, "package x\n")
	status := tp.p.Submit(context.Background(), item)

	assert.Equal(t, models.WorkStatusNeedsRevision, status)
	assert.Equal(t, 1, item.RevisionCount)
}

func TestSubmit_EscalatesAtMaxRevisions(t *testing.T) {
	tp := newTestPipeline(t, DefaultConfig(), func(*models.WorkItem) ([]models.QualityIssue, models.QualityMetrics, error) {
		return []models.QualityIssue{{
			IssueType:   "high_complexity",
			Severity:    models.SeverityHigh,
			Description: "Code complexity too high",
		}}, uniformMetrics(0.5), nil
	})

	ctx := context.Background()

	// Three submissions of the same artifact, each failing review.
	var last models.WorkStatus
	for i := 0; i < 3; i++ {
		item := tp.newItem(t, "package x\n")
		last = tp.p.Submit(ctx, item)
	}

	assert.Equal(t, models.WorkStatusEscalated, last)
	assert.Equal(t, 1, tp.e.count(), "exactly one escalation report")
	assert.Equal(t, 2, tp.n.count(), "no revision notice on the escalating submission")

	// Escalation carries the accumulated attempt count.
	assert.Equal(t, 3, tp.e.recs[0].Attempts)

	// The escalated item leaves the active set.
	assert.Empty(t, tp.p.ActiveItems())

	// Escalation is persisted.
	escs, err := tp.st.ListEscalations(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, escs, 1)
}

func TestSubmit_BriefFuncRewritesEscalationReport(t *testing.T) {
	tp := newTestPipeline(t, DefaultConfig(), func(*models.WorkItem) ([]models.QualityIssue, models.QualityMetrics, error) {
		return nil, uniformMetrics(0.5), nil
	})
	tp.p.BriefFunc = func(ctx context.Context, rec models.Escalation) string {
		return "OPERATOR BRIEF for " + rec.Agent
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		item := tp.newItem(t, "package x\n")
		tp.p.Submit(ctx, item)
	}

	require.Equal(t, 1, tp.e.count())
	assert.Equal(t, "OPERATOR BRIEF for dev-backend", tp.e.recs[0].Report)

	// The rewritten report is what gets persisted.
	escs, err := tp.st.ListEscalations(ctx, 0)
	require.NoError(t, err)
	require.Len(t, escs, 1)
	assert.Equal(t, "OPERATOR BRIEF for dev-backend", escs[0].Report)
}

func TestSubmit_ResubmissionKeepsRevisionCount(t *testing.T) {
	tp := newTestPipeline(t, DefaultConfig(), func(*models.WorkItem) ([]models.QualityIssue, models.QualityMetrics, error) {
		return nil, uniformMetrics(0.5), nil
	})

	ctx := context.Background()
	first := tp.newItem(t, "package x\n")
	tp.p.Submit(ctx, first)
	assert.Equal(t, 1, first.RevisionCount)

	second := tp.newItem(t, "package x\n// revised\n")
	tp.p.Submit(ctx, second)
	assert.Equal(t, 2, second.RevisionCount, "resubmission continues the counter")
	assert.Equal(t, first.ID, second.ID, "resubmission adopts the prior item id")
}

func TestSubmit_ReviewerErrorMarksError(t *testing.T) {
	tp := newTestPipeline(t, DefaultConfig(), func(*models.WorkItem) ([]models.QualityIssue, models.QualityMetrics, error) {
		return nil, models.QualityMetrics{}, errors.New("rule engine exploded")
	})

	item := tp.newItem(t, "package x\n")
	status := tp.p.Submit(context.Background(), item)

	assert.Equal(t, models.WorkStatusError, status)
	assert.Empty(t, tp.p.ActiveItems())

	// Aggregates are untouched by reviewer failures.
	snap := tp.tr.Snapshot()
	assert.Zero(t, snap.TotalReviews)

	// The error outcome is still visible in the persisted history.
	recs, err := tp.st.ListReviewResults(context.Background(), store.ReviewFilter{Status: models.WorkStatusError})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestSubmit_NotifierFailureDoesNotChangeState(t *testing.T) {
	tp := newTestPipeline(t, DefaultConfig(), func(*models.WorkItem) ([]models.QualityIssue, models.QualityMetrics, error) {
		return nil, uniformMetrics(0.5), nil
	})
	tp.n.err = errors.New("channel down")

	item := tp.newItem(t, "package x\n")
	status := tp.p.Submit(context.Background(), item)

	assert.Equal(t, models.WorkStatusNeedsRevision, status)
	assert.Equal(t, 1, item.RevisionCount)
}

func TestSubmit_RevisionNoticeWrittenBesideArtifact(t *testing.T) {
	tp := newTestPipeline(t, DefaultConfig(), func(*models.WorkItem) ([]models.QualityIssue, models.QualityMetrics, error) {
		return nil, uniformMetrics(0.5), nil
	})

	item := tp.newItem(t, "package x\n")
	tp.p.Submit(context.Background(), item)

	notice := filepath.Join(filepath.Dir(item.FilePath), ".revision-"+item.ID+".md")
	data, err := os.ReadFile(notice)
	require.NoError(t, err)
	assert.Contains(t, string(data), "REVISION REQUIRED")
}

func TestRun_DrainsQueue(t *testing.T) {
	tp := newTestPipeline(t, DefaultConfig(), func(*models.WorkItem) ([]models.QualityIssue, models.QualityMetrics, error) {
		return nil, uniformMetrics(0.95), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tp.p.Run(ctx)

	item := tp.newItem(t, "package x\n")
	require.NoError(t, tp.p.Enqueue(item))

	assert.Eventually(t, func() bool {
		perf, ok := tp.tr.AgentPerformance("dev-backend")
		return ok && perf.Passed == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestQueue_FullRejects(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.Enqueue(&models.WorkItem{ID: "a"}))
	assert.ErrorIs(t, q.Enqueue(&models.WorkItem{ID: "b"}), ErrQueueFull)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_DequeueTimeout(t *testing.T) {
	q := NewQueue(1)
	start := time.Now()
	_, ok := q.Dequeue(context.Background(), 20*time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestPerformanceSweep_SendsImprovementPlan(t *testing.T) {
	tp := newTestPipeline(t, DefaultConfig(), func(*models.WorkItem) ([]models.QualityIssue, models.QualityMetrics, error) {
		return nil, uniformMetrics(0.5), nil
	})

	for i := 0; i < 5; i++ {
		tp.tr.RecordOutcome("struggling", 0.5, false)
	}

	tp.p.performanceSweep(context.Background())
	require.Equal(t, 1, tp.n.count())
	assert.Contains(t, tp.n.sent[0], "struggling: PERFORMANCE IMPROVEMENT PLAN")
}
