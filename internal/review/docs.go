package review

import (
	"fmt"
	"time"

	"github.com/mstanton/overseer/internal/models"
)

// docReviewer checks documentation artifacts for required sections and
// readability.
type docReviewer struct {
	cov CoverageEstimator
}

func (r *docReviewer) Review(item *models.WorkItem) ([]models.QualityIssue, models.QualityMetrics, error) {
	now := time.Now().UTC()
	var issues []models.QualityIssue

	for _, section := range requiredDocSections {
		if !hasSection(item.Content, section) {
			issues = append(issues, models.QualityIssue{
				IssueType:    IssueMissingSection,
				Severity:     models.SeverityMedium,
				Description:  fmt.Sprintf("Documentation missing required section: %s", section),
				FilePath:     item.FilePath,
				SuggestedFix: fmt.Sprintf("Add a %s section", section),
				AutoFixable:  true,
				Agent:        item.Agent,
				DetectedAt:   now,
			})
		}
	}

	if score := readability(item.Content); score > maxReadability {
		issues = append(issues, models.QualityIssue{
			IssueType:    IssuePoorReadability,
			Severity:     models.SeverityMedium,
			Description:  fmt.Sprintf("Documentation readability score (%.1f) exceeds maximum (%.1f)", score, maxReadability),
			FilePath:     item.FilePath,
			SuggestedFix: "Simplify language and shorten sentences",
			Agent:        item.Agent,
			DetectedAt:   now,
		})
	}

	return issues, scoreMetrics(item, r.cov), nil
}
