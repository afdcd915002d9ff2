package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstanton/overseer/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func testWorkItem(status models.WorkStatus) *models.WorkItem {
	item := &models.WorkItem{
		ID:            newULID(),
		WorkType:      models.WorkTypeCode,
		FilePath:      "/work/projects/billing/handler.go",
		Agent:         "dev-backend",
		Project:       "billing",
		Status:        status,
		RevisionCount: 1,
		MaxRevisions:  3,
		CreatedAt:     time.Now().UTC(),
		Issues: []models.QualityIssue{
			{
				IssueType:   "missing_error_handling",
				Severity:    models.SeverityHigh,
				Description: "Code lacks proper error handling",
				AutoFixable: true,
				Agent:       "dev-backend",
			},
			{
				IssueType:   "hardcoded_password",
				Severity:    models.SeverityCritical,
				Description: "Security issue detected: hardcoded_password",
			},
		},
	}
	item.Metrics = models.QualityMetrics{
		CodeQuality:    0.7,
		TestCoverage:   0.9,
		Documentation:  0.8,
		Security:       0.8,
		Performance:    1.0,
		ArchCompliance: 1.0,
	}
	item.Metrics.Recalculate()
	return item
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Running migrate again should be a no-op
	err := s.Migrate(ctx)
	assert.NoError(t, err)
}

func TestPutReviewResult_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := testWorkItem(models.WorkStatusNeedsRevision)
	rec, err := s.PutReviewResult(ctx, item)
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)

	got, err := s.GetReviewResult(ctx, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, item.ID, got.WorkItemID)
	assert.Equal(t, models.WorkTypeCode, got.WorkType)
	assert.Equal(t, "dev-backend", got.Agent)
	assert.Equal(t, "billing", got.Project)
	assert.Equal(t, models.WorkStatusNeedsRevision, got.Status)
	assert.Equal(t, 1, got.RevisionCount)
	assert.InDelta(t, item.Metrics.OverallScore, got.Metrics.OverallScore, 1e-9)
	assert.InDelta(t, 0.7, got.Metrics.CodeQuality, 1e-9)

	require.Len(t, got.Issues, 2)
	assert.Equal(t, "missing_error_handling", got.Issues[0].IssueType)
	assert.True(t, got.Issues[0].AutoFixable)
	assert.Equal(t, models.SeverityCritical, got.Issues[1].Severity)
}

func TestGetReviewResult_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetReviewResult(context.Background(), "nope")
	assert.Error(t, err)
}

func TestListReviewResults_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	approved := testWorkItem(models.WorkStatusApproved)
	approved.Agent = "dev-frontend"
	approved.Project = "storefront"
	_, err := s.PutReviewResult(ctx, approved)
	require.NoError(t, err)

	failed := testWorkItem(models.WorkStatusNeedsRevision)
	_, err = s.PutReviewResult(ctx, failed)
	require.NoError(t, err)

	byAgent, err := s.ListReviewResults(ctx, ReviewFilter{Agent: "dev-frontend"})
	require.NoError(t, err)
	require.Len(t, byAgent, 1)
	assert.Equal(t, "storefront", byAgent[0].Project)

	byStatus, err := s.ListReviewResults(ctx, ReviewFilter{Status: models.WorkStatusNeedsRevision})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "dev-backend", byStatus[0].Agent)

	all, err := s.ListReviewResults(ctx, ReviewFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	limited, err := s.ListReviewResults(ctx, ReviewFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestListReviewResults_IssuesAttached(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.PutReviewResult(ctx, testWorkItem(models.WorkStatusNeedsRevision))
	require.NoError(t, err)

	recs, err := s.ListReviewResults(ctx, ReviewFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Len(t, recs[0].Issues, 2)
}

func TestPutEscalation_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &models.Escalation{
		WorkItemID: "01WORK",
		FilePath:   "/work/projects/billing/handler.go",
		Agent:      "dev-backend",
		Project:    "billing",
		Attempts:   3,
		Score:      0.55,
		Report:     "ESCALATION REQUIRED",
	}
	require.NoError(t, s.PutEscalation(ctx, rec))
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := s.ListEscalations(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "01WORK", got[0].WorkItemID)
	assert.Equal(t, 3, got[0].Attempts)
	assert.InDelta(t, 0.55, got[0].Score, 1e-9)
}

func TestHealthSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, status := range []models.WorkStatus{
		models.WorkStatusApproved,
		models.WorkStatusApproved,
		models.WorkStatusNeedsRevision,
		models.WorkStatusEscalated,
	} {
		item := testWorkItem(status)
		item.ID = fmt.Sprintf("item-%d", i)
		_, err := s.PutReviewResult(ctx, item)
		require.NoError(t, err)
	}
	require.NoError(t, s.PutEscalation(ctx, &models.Escalation{WorkItemID: "item-3"}))

	snap, err := s.HealthSnapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, snap.TotalReviews)
	assert.Equal(t, 2, snap.Approved)
	assert.Equal(t, 1, snap.NeedsRevision)
	assert.Equal(t, 1, snap.Escalated)
	assert.Equal(t, 0, snap.Errors)
	assert.Equal(t, 1, snap.OpenEscalations)
	assert.InDelta(t, testWorkItem(models.WorkStatusApproved).Metrics.OverallScore, snap.MeanScore, 1e-9)
}

func TestHealthSnapshot_Empty(t *testing.T) {
	s := newTestStore(t)
	snap, err := s.HealthSnapshot(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snap.TotalReviews)
	assert.Zero(t, snap.MeanScore)
}
