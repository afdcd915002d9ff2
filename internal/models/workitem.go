package models

import "time"

// WorkType represents the kind of artifact under review.
type WorkType string

const (
	WorkTypeCode          WorkType = "code"
	WorkTypeDocumentation WorkType = "documentation"
	WorkTypeTests         WorkType = "tests"
	WorkTypeArchitecture  WorkType = "architecture"
	WorkTypeDesign        WorkType = "design"
	WorkTypeDeployment    WorkType = "deployment"
	WorkTypeSecurity      WorkType = "security"
	WorkTypePerformance   WorkType = "performance"
)

// WorkStatus represents the review state of a work item.
type WorkStatus string

const (
	WorkStatusPending       WorkStatus = "pending"
	WorkStatusApproved      WorkStatus = "approved"
	WorkStatusNeedsRevision WorkStatus = "needs_revision"
	WorkStatusEscalated     WorkStatus = "escalated"
	WorkStatusError         WorkStatus = "error"
)

// Terminal reports whether the status is an end state for a review pass.
// Items in needs_revision may be resubmitted, but the pass itself is done.
func (s WorkStatus) Terminal() bool {
	return s != WorkStatusPending
}

// DefaultMaxRevisions is the number of revision attempts before escalation.
const DefaultMaxRevisions = 3

// WorkItem is one reviewable unit: a snapshot of an artifact produced by an
// agent, plus everything the pipeline learns about it.
type WorkItem struct {
	ID            string
	WorkType      WorkType
	FilePath      string
	Agent         string
	Project       string
	Content       string
	Requirements  []string
	Metrics       QualityMetrics
	Issues        []QualityIssue
	Status        WorkStatus
	RevisionCount int
	MaxRevisions  int
	CreatedAt     time.Time
}

// CriticalIssues returns the issues with critical severity.
func (w *WorkItem) CriticalIssues() []QualityIssue {
	var out []QualityIssue
	for _, iss := range w.Issues {
		if iss.Severity == SeverityCritical {
			out = append(out, iss)
		}
	}
	return out
}
