package review

import (
	"fmt"
	"time"

	"github.com/mstanton/overseer/internal/models"
)

// archReviewer checks architecture artifacts against structural heuristics.
type archReviewer struct {
	cov CoverageEstimator
}

func (r *archReviewer) Review(item *models.WorkItem) ([]models.QualityIssue, models.QualityMetrics, error) {
	now := time.Now().UTC()
	var issues []models.QualityIssue

	for _, pattern := range requiredArchPatterns {
		if !followsPattern(item.Content, pattern) {
			issues = append(issues, models.QualityIssue{
				IssueType:    IssueMissingPattern,
				Severity:     models.SeverityMedium,
				Description:  fmt.Sprintf("Artifact does not follow %s", pattern),
				FilePath:     item.FilePath,
				SuggestedFix: fmt.Sprintf("Restructure to follow %s", pattern),
				Agent:        item.Agent,
				DetectedAt:   now,
			})
		}
	}

	return issues, scoreMetrics(item, r.cov), nil
}
