// Package notify delivers revision instructions, improvement plans, and
// escalation reports to the parties outside the pipeline.
//
// Delivery is best-effort: a failed notification is retried a bounded number
// of times and then dropped with a log line. It never changes the outcome of
// the review that produced it.
package notify

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mstanton/overseer/internal/models"
)

// Notifier delivers a message to the agent responsible for a work item.
type Notifier interface {
	Notify(agent, message string) error
}

// Escalator hands an exhausted work item to an operator. The audience is
// distinct from per-agent notification.
type Escalator interface {
	Escalate(rec models.Escalation) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(agent, message string) error

func (f NotifierFunc) Notify(agent, message string) error { return f(agent, message) }

// EscalatorFunc adapts a function to the Escalator interface.
type EscalatorFunc func(rec models.Escalation) error

func (f EscalatorFunc) Escalate(rec models.Escalation) error { return f(rec) }

// LogNotifier writes notifications to the structured log. It is the default
// channel when no delivery directory is configured.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) Notify(agent, message string) error {
	log := n.Log
	if log == nil {
		log = slog.Default()
	}
	log.Warn("agent notification", "agent", agent, "message", message)
	return nil
}

// DefaultMaxAttempts bounds delivery retries when no limit is configured.
const DefaultMaxAttempts = 3

// Retrier wraps a Notifier with bounded retries and a fixed delay between
// attempts.
type Retrier struct {
	Next        Notifier
	MaxAttempts int
	Delay       time.Duration
	Log         *slog.Logger
}

// WithRetry wraps next so that delivery is attempted up to maxAttempts times.
func WithRetry(next Notifier, maxAttempts int, delay time.Duration, log *slog.Logger) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if log == nil {
		log = slog.Default()
	}
	return &Retrier{Next: next, MaxAttempts: maxAttempts, Delay: delay, Log: log}
}

func (r *Retrier) Notify(agent, message string) error {
	var err error
	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		if err = r.Next.Notify(agent, message); err == nil {
			return nil
		}
		r.Log.Warn("notification delivery failed",
			"agent", agent, "attempt", attempt, "max_attempts", r.MaxAttempts, "error", err)
		if attempt < r.MaxAttempts && r.Delay > 0 {
			time.Sleep(r.Delay)
		}
	}
	return fmt.Errorf("notify %s: giving up after %d attempts: %w", agent, r.MaxAttempts, err)
}

// EscalateRetrier wraps an Escalator with the same bounded-retry policy as
// Retrier. Escalation delivery is best-effort too: the record is already
// persisted before delivery is attempted.
type EscalateRetrier struct {
	Next        Escalator
	MaxAttempts int
	Delay       time.Duration
	Log         *slog.Logger
}

// WithEscalateRetry wraps next so delivery is attempted up to maxAttempts
// times.
func WithEscalateRetry(next Escalator, maxAttempts int, delay time.Duration, log *slog.Logger) *EscalateRetrier {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if log == nil {
		log = slog.Default()
	}
	return &EscalateRetrier{Next: next, MaxAttempts: maxAttempts, Delay: delay, Log: log}
}

func (r *EscalateRetrier) Escalate(rec models.Escalation) error {
	var err error
	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		if err = r.Next.Escalate(rec); err == nil {
			return nil
		}
		r.Log.Warn("escalation delivery failed",
			"id", rec.WorkItemID, "attempt", attempt, "max_attempts", r.MaxAttempts, "error", err)
		if attempt < r.MaxAttempts && r.Delay > 0 {
			time.Sleep(r.Delay)
		}
	}
	return fmt.Errorf("escalate %s: giving up after %d attempts: %w", rec.WorkItemID, r.MaxAttempts, err)
}
