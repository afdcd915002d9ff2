package review

import (
	"fmt"
	"time"

	"github.com/mstanton/overseer/internal/models"
)

// minCoverage is the coverage floor for test artifacts.
const minCoverage = 0.9

// testReviewer checks test artifacts for required test categories and
// estimated coverage.
type testReviewer struct {
	cov CoverageEstimator
}

func (r *testReviewer) Review(item *models.WorkItem) ([]models.QualityIssue, models.QualityMetrics, error) {
	now := time.Now().UTC()
	var issues []models.QualityIssue

	for _, testType := range requiredTestTypes {
		if !hasTestType(item.Content, testType) {
			issues = append(issues, models.QualityIssue{
				IssueType:    IssueMissingTestType,
				Severity:     models.SeverityHigh,
				Description:  fmt.Sprintf("Missing %s tests", testType),
				FilePath:     item.FilePath,
				SuggestedFix: fmt.Sprintf("Add %s tests", testType),
				AutoFixable:  true,
				Agent:        item.Agent,
				DetectedAt:   now,
			})
		}
	}

	if coverage := r.cov.Estimate(item.FilePath); coverage < minCoverage {
		issues = append(issues, models.QualityIssue{
			IssueType:    IssueLowTestCoverage,
			Severity:     models.SeverityHigh,
			Description:  fmt.Sprintf("Test coverage (%.2f) below minimum (%.2f)", coverage, minCoverage),
			FilePath:     item.FilePath,
			SuggestedFix: "Add test cases to improve coverage",
			Agent:        item.Agent,
			DetectedAt:   now,
		})
	}

	return issues, scoreMetrics(item, r.cov), nil
}
