package models

import "time"

// Severity represents how serious a quality issue is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// QualityIssue is one defect detected during review.
//
// IssueType is a stable string key. When AutoFixable is true the auto-fix
// engine must have a transformer registered under that key; a missing
// transformer is a configuration error caught at startup, not at runtime.
type QualityIssue struct {
	IssueType    string
	Severity     Severity
	Description  string
	FilePath     string
	Line         int
	SuggestedFix string
	AutoFixable  bool
	Agent        string
	DetectedAt   time.Time
}
