package store

import (
	"context"

	"github.com/mstanton/overseer/internal/models"
)

// ReviewFilter specifies filters for listing review records.
type ReviewFilter struct {
	Agent   string
	Project string
	Status  models.WorkStatus
	Since   string // RFC3339; empty means no lower bound
	Limit   int
}

// Store defines the persistence interface for overseer.
type Store interface {
	// Review results
	PutReviewResult(ctx context.Context, item *models.WorkItem) (*models.ReviewRecord, error)
	GetReviewResult(ctx context.Context, id string) (*models.ReviewRecord, error)
	ListReviewResults(ctx context.Context, filter ReviewFilter) ([]*models.ReviewRecord, error)

	// Escalations
	PutEscalation(ctx context.Context, rec *models.Escalation) error
	ListEscalations(ctx context.Context, limit int) ([]*models.Escalation, error)

	// Reporting
	HealthSnapshot(ctx context.Context) (*models.HealthSnapshot, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
