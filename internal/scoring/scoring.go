// Package scoring combines review sub-scores into an overall score and maps
// scores plus detected issues onto a discrete quality standard.
package scoring

import (
	"math"

	"github.com/mstanton/overseer/internal/models"
)

// Overall returns the mean of the six sub-scores, clamped to [0,1]. The mean
// is rounded to nine decimal places so exact sub-scores land exactly on the
// classification boundaries.
func Overall(m models.QualityMetrics) float64 {
	sum := m.CodeQuality + m.TestCoverage + m.Documentation +
		m.Security + m.Performance + m.ArchCompliance
	score := math.Round(sum/6*1e9) / 1e9
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Classify maps metrics and issues to a quality standard. Any critical issue
// forces unacceptable regardless of score; otherwise the score ladder is
// >=0.9 excellent, >=0.8 good, >=0.7 acceptable, >=0.6 needs_improvement.
// Downstream policy depends on these exact boundaries.
func Classify(m models.QualityMetrics, issues []models.QualityIssue) models.QualityStandard {
	for _, iss := range issues {
		if iss.Severity == models.SeverityCritical {
			return models.StandardUnacceptable
		}
	}

	switch score := m.OverallScore; {
	case score >= 0.9:
		return models.StandardExcellent
	case score >= 0.8:
		return models.StandardGood
	case score >= 0.7:
		return models.StandardAcceptable
	case score >= 0.6:
		return models.StandardNeedsImprovement
	default:
		return models.StandardUnacceptable
	}
}
