package models

import "time"

// ReviewRecord is the persisted outcome of one review pass, as written to
// the durable store and read back by reporting.
type ReviewRecord struct {
	ID            string
	WorkItemID    string
	WorkType      WorkType
	FilePath      string
	Agent         string
	Project       string
	Status        WorkStatus
	RevisionCount int
	Metrics       QualityMetrics
	Issues        []QualityIssue
	CreatedAt     time.Time
}

// HealthSnapshot aggregates the persisted review history for reporting.
type HealthSnapshot struct {
	TotalReviews    int
	Approved        int
	NeedsRevision   int
	Escalated       int
	Errors          int
	MeanScore       float64
	OpenEscalations int
	GeneratedAt     time.Time
}
