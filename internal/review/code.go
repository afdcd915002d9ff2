package review

import (
	"fmt"
	"time"

	"github.com/mstanton/overseer/internal/models"
)

// codeReviewer checks source artifacts for structural quality markers and
// security anti-patterns.
type codeReviewer struct {
	cov CoverageEstimator
}

func (r *codeReviewer) Review(item *models.WorkItem) ([]models.QualityIssue, models.QualityMetrics, error) {
	content := item.Content
	now := time.Now().UTC()
	var issues []models.QualityIssue

	if !hasErrorHandling(content) {
		issues = append(issues, models.QualityIssue{
			IssueType:    IssueMissingErrorHandling,
			Severity:     models.SeverityHigh,
			Description:  "Code lacks proper error handling",
			FilePath:     item.FilePath,
			SuggestedFix: "Handle errors explicitly instead of discarding them",
			AutoFixable:  true,
			Agent:        item.Agent,
			DetectedAt:   now,
		})
	}

	if !hasLogging(content) {
		issues = append(issues, models.QualityIssue{
			IssueType:    IssueMissingLogging,
			Severity:     models.SeverityMedium,
			Description:  "Code lacks logging",
			FilePath:     item.FilePath,
			SuggestedFix: "Add log statements for debugging and monitoring",
			AutoFixable:  true,
			Agent:        item.Agent,
			DetectedAt:   now,
		})
	}

	if !hasDocumentation(content) {
		issues = append(issues, models.QualityIssue{
			IssueType:    IssueMissingDocComment,
			Severity:     models.SeverityMedium,
			Description:  "Code lacks documentation",
			FilePath:     item.FilePath,
			SuggestedFix: "Add doc comments",
			AutoFixable:  true,
			Agent:        item.Agent,
			DetectedAt:   now,
		})
	}

	if c := complexity(content); c > maxComplexity {
		issues = append(issues, models.QualityIssue{
			IssueType:    IssueHighComplexity,
			Severity:     models.SeverityHigh,
			Description:  fmt.Sprintf("Code complexity (%d) exceeds maximum (%d)", c, maxComplexity),
			FilePath:     item.FilePath,
			SuggestedFix: "Refactor to reduce branching",
			Agent:        item.Agent,
			DetectedAt:   now,
		})
	}

	issues = append(issues, securityIssues(item, now)...)

	return issues, scoreMetrics(item, r.cov), nil
}

// securityIssues scans for anti-pattern signatures. Matches are always
// critical and never auto-fixable.
func securityIssues(item *models.WorkItem, now time.Time) []models.QualityIssue {
	var issues []models.QualityIssue
	for _, sp := range securityPatterns {
		if sp.re.MatchString(item.Content) {
			issues = append(issues, models.QualityIssue{
				IssueType:    sp.issueType,
				Severity:     models.SeverityCritical,
				Description:  sp.description,
				FilePath:     item.FilePath,
				SuggestedFix: "Remove or properly secure this usage",
				Agent:        item.Agent,
				DetectedAt:   now,
			})
		}
	}
	return issues
}
