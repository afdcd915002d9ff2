package models

import "time"

// Escalation is the operator-facing handoff record produced when a work item
// exhausts its revision attempts.
type Escalation struct {
	ID         string
	WorkItemID string
	FilePath   string
	Agent      string
	Project    string
	Attempts   int
	Score      float64
	Issues     []QualityIssue
	Report     string
	CreatedAt  time.Time
}
