package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mstanton/overseer/internal/models"
)

func metricsAll(v float64) models.QualityMetrics {
	m := models.QualityMetrics{
		CodeQuality:    v,
		TestCoverage:   v,
		Documentation:  v,
		Security:       v,
		Performance:    v,
		ArchCompliance: v,
	}
	m.Recalculate()
	return m
}

func TestOverall_MeanOfSix(t *testing.T) {
	m := models.QualityMetrics{
		CodeQuality:    1,
		TestCoverage:   1,
		Documentation:  1,
		Security:       1,
		Performance:    1,
		ArchCompliance: 0,
	}
	assert.InDelta(t, 5.0/6.0, Overall(m), 1e-9)
}

func TestOverall_Clamped(t *testing.T) {
	assert.Equal(t, 0.0, Overall(metricsAll(-0.5)))
	assert.Equal(t, 1.0, Overall(models.QualityMetrics{
		CodeQuality: 2, TestCoverage: 2, Documentation: 2,
		Security: 2, Performance: 2, ArchCompliance: 2,
	}))
}

func TestOverall_ExactBoundaries(t *testing.T) {
	// Six equal sub-scores must yield exactly that value, not a float
	// artifact just below it (0.8*6/6 in float64 is 0.799999...).
	for _, v := range []float64{0.9, 0.8, 0.7, 0.6} {
		m := metricsAll(v)
		assert.Equal(t, v, Overall(m), "Overall at %.1f", v)
		assert.Equal(t, v, m.OverallScore, "Recalculate at %.1f", v)
	}
}

func TestClassify_Ladder(t *testing.T) {
	tests := []struct {
		score float64
		want  models.QualityStandard
	}{
		{0.95, models.StandardExcellent},
		{0.90, models.StandardExcellent},
		{0.85, models.StandardGood},
		{0.80, models.StandardGood},
		{0.75, models.StandardAcceptable},
		{0.70, models.StandardAcceptable},
		{0.65, models.StandardNeedsImprovement},
		{0.60, models.StandardNeedsImprovement},
		{0.59, models.StandardUnacceptable},
		{0.0, models.StandardUnacceptable},
	}
	for _, tt := range tests {
		got := Classify(metricsAll(tt.score), nil)
		assert.Equal(t, tt.want, got, "score %.2f", tt.score)
	}
}

func TestClassify_CriticalOverride(t *testing.T) {
	// Perfect sub-scores, one critical issue: still unacceptable.
	issues := []models.QualityIssue{
		{IssueType: "hardcoded_password", Severity: models.SeverityCritical},
	}
	got := Classify(metricsAll(1.0), issues)
	assert.Equal(t, models.StandardUnacceptable, got)
}

func TestClassify_NonCriticalIssuesDoNotOverride(t *testing.T) {
	issues := []models.QualityIssue{
		{IssueType: "missing_logging", Severity: models.SeverityHigh},
		{IssueType: "missing_doc_comment", Severity: models.SeverityMedium},
	}
	got := Classify(metricsAll(0.85), issues)
	assert.Equal(t, models.StandardGood, got)
}

func TestClassify_GoodScenario(t *testing.T) {
	// Sub-scores [1,1,1,1,1,0] => overall 0.833 => good.
	m := models.QualityMetrics{
		CodeQuality: 1, TestCoverage: 1, Documentation: 1,
		Security: 1, Performance: 1, ArchCompliance: 0,
	}
	m.Recalculate()
	assert.Equal(t, models.StandardGood, Classify(m, nil))
}

func TestStandardPassing(t *testing.T) {
	assert.True(t, models.StandardExcellent.Passing())
	assert.True(t, models.StandardGood.Passing())
	assert.True(t, models.StandardAcceptable.Passing())
	assert.False(t, models.StandardNeedsImprovement.Passing())
	assert.False(t, models.StandardUnacceptable.Passing())
}
