package interfaces

import (
	"context"
	"encoding/json"
	"time"

	"github.com/storymill/storymill/internal/models"
)

// EnqueueOptions carries per-enqueue overrides. Priority comes from the static
// kind table; Delay postpones eligibility.
type EnqueueOptions struct {
	Delay time.Duration
}

// QueueCounts is the per-kind queue snapshot exposed to callers.
type QueueCounts struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// CompletedHandler receives a job's result after its final attempt succeeded.
type CompletedHandler func(jobID string, result interface{})

// FailedHandler receives a job's last error after attempts are exhausted.
type FailedHandler func(jobID string, reason string)

// ProgressHandler receives worker progress checkpoints (0-100).
type ProgressHandler func(jobID string, value int)

// Queue is one named, independently configured queue for a single job kind.
type Queue interface {
	// Kind returns the job kind this queue serves.
	Kind() models.JobKind

	// Enqueue adds a job keyed by its id. Resubmitting an id already present
	// is a no-op. The message becomes eligible after opts.Delay.
	Enqueue(ctx context.Context, jobID string, payload json.RawMessage, opts EnqueueOptions) error

	// Receive pulls the next eligible message, marking it active. Returns
	// models.ErrNoMessage when nothing is eligible.
	Receive(ctx context.Context) (*models.QueueMessage, error)

	// Complete records a successful attempt and fires completed handlers.
	Complete(jobID string, result interface{})

	// Fail records a failed attempt. While attempts remain the message is
	// redelivered with exponential backoff; once exhausted, failed handlers
	// fire with the final reason.
	Fail(jobID string, reason string)

	// Progress fires progress handlers for an in-flight job.
	Progress(jobID string, value int)

	// Remove deletes a not-yet-started job from the queue. Returns true if a
	// pending message was removed.
	Remove(ctx context.Context, jobID string) (bool, error)

	// Counts returns the queue's lifecycle counters.
	Counts(ctx context.Context) (QueueCounts, error)

	// OnCompleted, OnFailed and OnProgress register lifecycle handlers. The
	// event bridge owns all three subscriptions in production.
	OnCompleted(handler CompletedHandler)
	OnFailed(handler FailedHandler)
	OnProgress(handler ProgressHandler)
}

// QueueRegistry holds one queue per kind. Constructed once at startup and
// passed by injection; never re-initialized.
type QueueRegistry interface {
	Queue(kind models.JobKind) (Queue, bool)
	Kinds() []models.JobKind
}
