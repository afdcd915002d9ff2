package notify

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstanton/overseer/internal/models"
)

func testItem(t *testing.T) *models.WorkItem {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "handler.go")
	require.NoError(t, os.WriteFile(path, []byte("package x\n"), 0o644))

	item := &models.WorkItem{
		ID:            "01TESTULID0000000000000000",
		WorkType:      models.WorkTypeCode,
		FilePath:      path,
		Agent:         "dev-backend",
		Project:       "billing",
		RevisionCount: 1,
		MaxRevisions:  3,
		Issues: []models.QualityIssue{
			{
				IssueType:    "missing_error_handling",
				Severity:     models.SeverityHigh,
				Description:  "Code lacks proper error handling",
				SuggestedFix: "Add error propagation",
				FilePath:     path,
			},
		},
		Requirements: []string{"handle API errors gracefully"},
	}
	item.Metrics.OverallScore = 0.62
	return item
}

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	n := WithRetry(NotifierFunc(func(agent, message string) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}), 3, 0, nil)

	assert.NoError(t, n.Notify("dev-backend", "hello"))
	assert.Equal(t, 3, calls)
}

func TestWithRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	n := WithRetry(NotifierFunc(func(agent, message string) error {
		calls++
		return errors.New("down")
	}), 2, 0, nil)

	err := n.Notify("dev-backend", "hello")
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, err.Error(), "2 attempts")
}

func TestWithEscalateRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	e := WithEscalateRetry(EscalatorFunc(func(rec models.Escalation) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}), 3, 0, nil)

	assert.NoError(t, e.Escalate(models.Escalation{WorkItemID: "01X"}))
	assert.Equal(t, 3, calls)
}

func TestWithEscalateRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	e := WithEscalateRetry(EscalatorFunc(func(rec models.Escalation) error {
		calls++
		return errors.New("down")
	}), 2, 0, nil)

	err := e.Escalate(models.Escalation{WorkItemID: "01X"})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, err.Error(), "2 attempts")
}

func TestFileNotifier_WritesNotice(t *testing.T) {
	dir := t.TempDir()
	n := FileNotifier{Dir: dir}
	require.NoError(t, n.Notify("dev/backend", "revise please"))

	// Path separators in the agent name must not escape the notice dir.
	entries, err := os.ReadDir(filepath.Join(dir, "dev_backend"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, "dev_backend", entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "revise please", string(data))
}

func TestWriteRevisionNotice_BesideArtifact(t *testing.T) {
	item := testItem(t)
	path, err := WriteRevisionNotice(item, "instructions")
	require.NoError(t, err)

	assert.Equal(t, filepath.Dir(item.FilePath), filepath.Dir(path))
	assert.Equal(t, ".revision-"+item.ID+".md", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "instructions", string(data))
}

func TestFileEscalator_WritesJSON(t *testing.T) {
	dir := t.TempDir()
	e := FileEscalator{Dir: dir}

	item := testItem(t)
	rec := models.Escalation{
		WorkItemID: item.ID,
		FilePath:   item.FilePath,
		Agent:      item.Agent,
		Project:    item.Project,
		Attempts:   3,
		Score:      0.55,
		Issues:     item.Issues,
		Report:     EscalationReport(item),
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, e.Escalate(rec))

	data, err := os.ReadFile(filepath.Join(dir, "escalation-"+item.ID+".json"))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, item.ID, got["work_item_id"])
	assert.Equal(t, "dev-backend", got["agent"])
	assert.Equal(t, float64(3), got["revision_attempts"])
	issues, ok := got["issues"].([]any)
	require.True(t, ok)
	assert.Len(t, issues, 1)
}

func TestRevisionInstructions_Content(t *testing.T) {
	item := testItem(t)
	msg := RevisionInstructions(item, 0.7)

	assert.Contains(t, msg, "REVISION REQUIRED: "+item.FilePath)
	assert.Contains(t, msg, "Overall score: 0.62")
	assert.Contains(t, msg, "HIGH: Code lacks proper error handling")
	assert.Contains(t, msg, "Fix: Add error propagation")
	assert.Contains(t, msg, "handle API errors gracefully")
	assert.Contains(t, msg, "at least 0.70")
	assert.Contains(t, msg, "revision attempt 1 of 3")
}

func TestEscalationReport_Content(t *testing.T) {
	item := testItem(t)
	item.RevisionCount = 3
	msg := EscalationReport(item)

	assert.Contains(t, msg, "ESCALATION REQUIRED")
	assert.Contains(t, msg, "Agent: dev-backend")
	assert.Contains(t, msg, "Revision attempts: 3")
	assert.Contains(t, msg, "Persistent issues:")
}

func TestImprovementPlan_Content(t *testing.T) {
	msg := ImprovementPlan(models.AgentPerformance{
		Agent:        "dev-backend",
		TotalReviews: 6,
		MeanScore:    0.55,
		RevisionRate: 0.67,
	})
	assert.Contains(t, msg, "PERFORMANCE IMPROVEMENT PLAN")
	assert.Contains(t, msg, "Quality score: 0.55")
	assert.Contains(t, msg, "Revision rate: 0.67")
	assert.Contains(t, msg, "Total reviews: 6")
}
