package models

import "time"

// AgentPerformance is the running record for one agent. Created on the
// agent's first review, updated on every terminal outcome, never deleted.
type AgentPerformance struct {
	Agent        string
	TotalReviews int
	Passed       int
	Failed       int
	MeanScore    float64
	RevisionRate float64
}

// HealthStatus is the bucketed health of a project.
type HealthStatus string

const (
	HealthExcellent HealthStatus = "excellent"
	HealthGood      HealthStatus = "good"
	HealthFair      HealthStatus = "fair"
	HealthPoor      HealthStatus = "poor"
)

// HealthStatusFor maps a mean score to a health bucket.
func HealthStatusFor(score float64) HealthStatus {
	switch {
	case score > 0.9:
		return HealthExcellent
	case score > 0.8:
		return HealthGood
	case score > 0.7:
		return HealthFair
	default:
		return HealthPoor
	}
}

// ProjectHealth is the periodically recomputed health of one project,
// derived from the items currently in flight for it.
type ProjectHealth struct {
	Project     string
	MeanScore   float64
	Status      HealthStatus
	ItemCount   int
	LastUpdated time.Time
}
