// Package intake turns file change events into queued work items. It owns
// the watch/classify/attribute path in front of the review pipeline.
package intake

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mstanton/overseer/internal/git"
	"github.com/mstanton/overseer/internal/models"
)

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Builder assembles a WorkItem from a changed file path: content snapshot,
// work type, agent attribution, project, and requirements.
type Builder struct {
	Reqs         RequirementsProvider
	Git          git.Client
	MaxRevisions int
}

// NewBuilder returns a builder with project-file requirements and git-based
// agent attribution.
func NewBuilder() *Builder {
	return &Builder{
		Reqs:         ProjectRequirements{},
		Git:          git.NewClient(),
		MaxRevisions: models.DefaultMaxRevisions,
	}
}

// Build snapshots the file and returns a pending work item ready to enqueue.
func (b *Builder) Build(path string) (*models.WorkItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	maxRev := b.MaxRevisions
	if maxRev <= 0 {
		maxRev = models.DefaultMaxRevisions
	}

	item := &models.WorkItem{
		ID:           newULID(),
		WorkType:     ClassifyWorkType(path),
		FilePath:     path,
		Agent:        b.resolveAgent(path),
		Project:      ProjectName(path),
		Content:      string(data),
		Status:       models.WorkStatusPending,
		MaxRevisions: maxRev,
		CreatedAt:    time.Now().UTC(),
	}
	if b.Reqs != nil {
		item.Requirements = b.Reqs.Requirements(path)
	}
	return item, nil
}

// FromContent builds a work item from content supplied directly, for callers
// that already hold the artifact (the REST API). The path is still used for
// classification, attribution, and project resolution.
func (b *Builder) FromContent(path, content string) (*models.WorkItem, error) {
	if path == "" {
		return nil, fmt.Errorf("artifact path is required")
	}

	maxRev := b.MaxRevisions
	if maxRev <= 0 {
		maxRev = models.DefaultMaxRevisions
	}

	item := &models.WorkItem{
		ID:           newULID(),
		WorkType:     ClassifyWorkType(path),
		FilePath:     path,
		Agent:        b.resolveAgent(path),
		Project:      ProjectName(path),
		Content:      content,
		Status:       models.WorkStatusPending,
		MaxRevisions: maxRev,
		CreatedAt:    time.Now().UTC(),
	}
	if b.Reqs != nil {
		item.Requirements = b.Reqs.Requirements(path)
	}
	return item, nil
}

func (b *Builder) resolveAgent(path string) string {
	if b.Git != nil {
		if author, err := b.Git.LastAuthor(path); err == nil && author != "" {
			return author
		}
	}
	return "unknown_agent"
}
