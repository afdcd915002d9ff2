package models

import "math"

// QualityMetrics holds the six independent sub-scores of a review, each in
// [0,1], plus the derived overall score. OverallScore is never set directly;
// call Recalculate after changing any sub-score.
type QualityMetrics struct {
	CodeQuality    float64
	TestCoverage   float64
	Documentation  float64
	Security       float64
	Performance    float64
	ArchCompliance float64
	OverallScore   float64
}

// Recalculate recomputes OverallScore as the arithmetic mean of the six
// sub-scores. The mean is rounded to nine decimal places so that exact
// inputs land exactly on the classification boundaries (six scores of 0.8
// must mean 0.8, not 0.799999...).
func (m *QualityMetrics) Recalculate() {
	sum := m.CodeQuality + m.TestCoverage + m.Documentation +
		m.Security + m.Performance + m.ArchCompliance
	m.OverallScore = math.Round(sum/6*1e9) / 1e9
}

// QualityStandard is the five-level discrete classification of a review.
type QualityStandard string

const (
	StandardExcellent        QualityStandard = "excellent"
	StandardGood             QualityStandard = "good"
	StandardAcceptable       QualityStandard = "acceptable"
	StandardNeedsImprovement QualityStandard = "needs_improvement"
	StandardUnacceptable     QualityStandard = "unacceptable"
)

// Passing reports whether the standard results in approval.
func (q QualityStandard) Passing() bool {
	switch q {
	case StandardExcellent, StandardGood, StandardAcceptable:
		return true
	}
	return false
}
