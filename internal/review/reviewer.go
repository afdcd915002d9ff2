// Package review contains the pluggable per-work-type reviewers.
//
// Each reviewer inspects a work item's content and requirements and returns
// detected issues plus sub-scores in [0,1]. Reviewers are deterministic and
// pure with respect to their input content; the one allowed exception is
// coverage estimation, which consults a CoverageEstimator. The pattern sets
// themselves are an implementation detail and deliberately replaceable.
package review

import (
	"github.com/mstanton/overseer/internal/models"
)

// Issue type keys emitted by the built-in reviewers. These are stable
// strings: the auto-fix engine keys its transformer registry on them.
const (
	IssueMissingErrorHandling = "missing_error_handling"
	IssueMissingLogging       = "missing_logging"
	IssueMissingDocComment    = "missing_doc_comment"
	IssueHighComplexity       = "high_complexity"
	IssueMissingSection       = "missing_section"
	IssuePoorReadability      = "poor_readability"
	IssueMissingTestType      = "missing_test_type"
	IssueLowTestCoverage      = "low_test_coverage"
	IssueMissingPattern       = "missing_pattern"
)

// AutoFixableIssueTypes returns every issue type the built-in reviewers can
// flag as auto-fixable. The auto-fix engine is validated against this list
// at startup; an uncovered type is a configuration error.
func AutoFixableIssueTypes() []string {
	return []string{
		IssueMissingErrorHandling,
		IssueMissingLogging,
		IssueMissingDocComment,
		IssueMissingSection,
		IssueMissingTestType,
	}
}

// Reviewer scores a single work item.
type Reviewer interface {
	Review(item *models.WorkItem) ([]models.QualityIssue, models.QualityMetrics, error)
}

// Set selects a reviewer by work type. Exactly one reviewer runs per review
// pass; there is no chaining.
type Set struct {
	byType map[models.WorkType]Reviewer
}

// NewSet builds the default reviewer set. Work types without a dedicated
// reviewer (design, deployment, security, performance) fall back to the code
// reviewer, matching how such artifacts are classified upstream.
func NewSet(cov CoverageEstimator) *Set {
	code := &codeReviewer{cov: cov}
	return &Set{byType: map[models.WorkType]Reviewer{
		models.WorkTypeCode:          code,
		models.WorkTypeDocumentation: &docReviewer{cov: cov},
		models.WorkTypeTests:         &testReviewer{cov: cov},
		models.WorkTypeArchitecture:  &archReviewer{cov: cov},
		models.WorkTypeDesign:        code,
		models.WorkTypeDeployment:    code,
		models.WorkTypeSecurity:      code,
		models.WorkTypePerformance:   code,
	}}
}

// ForType returns the reviewer for the given work type, or nil if none is
// registered.
func (s *Set) ForType(t models.WorkType) Reviewer {
	return s.byType[t]
}

// Register replaces the reviewer for a work type. Used to plug in custom
// rule sets.
func (s *Set) Register(t models.WorkType, r Reviewer) {
	s.byType[t] = r
}
