package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/mstanton/overseer/internal/models"
)

// ErrQueueFull is returned when the ingestion queue is at capacity.
var ErrQueueFull = errors.New("ingestion queue full")

// DefaultQueueSize bounds the ingestion queue when no size is configured.
const DefaultQueueSize = 256

// Queue is the bounded ingestion queue between the watcher and the review
// consumer.
type Queue struct {
	ch chan *models.WorkItem
}

// NewQueue returns a queue holding at most size items.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan *models.WorkItem, size)}
}

// Enqueue adds an item without blocking. A full queue rejects the item; the
// producer decides whether to drop or retry.
func (q *Queue) Enqueue(item *models.WorkItem) error {
	select {
	case q.ch <- item:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue waits up to timeout for an item. The second return is false when
// the timeout elapsed or the context was canceled; callers loop on it.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*models.WorkItem, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, false
	case item := <-q.ch:
		return item, true
	case <-timer.C:
		return nil, false
	}
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	return len(q.ch)
}
