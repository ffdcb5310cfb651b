package interfaces

import (
	"context"

	"github.com/storymill/storymill/internal/models"
)

// JobService is the orchestration facade: submission, status, cancellation
// and queue introspection. Both the HTTP surface and the cascade trigger
// submit through it so every job follows the same ledger-then-enqueue path.
type JobService interface {
	// Submit validates the input, writes a pending ledger record and enqueues
	// the job. Returns the new job id.
	Submit(ctx context.Context, kind models.JobKind, input interface{}) (string, error)

	// SubmitWithID is Submit with a caller-chosen job id, for idempotent
	// resubmission.
	SubmitWithID(ctx context.Context, jobID string, kind models.JobKind, input interface{}) error

	// Status returns the ledger record for a job.
	Status(ctx context.Context, jobID string) (*models.JobRecord, error)

	// Cancel removes a pending job from its queue and marks the ledger record
	// failed with the fixed cancellation message. Cancelling a job that
	// already started only marks the ledger; the attempt runs to completion
	// and its late signals are dropped by terminal stickiness.
	Cancel(ctx context.Context, jobID string) error

	// ListByProject returns every ledger record for a project.
	ListByProject(ctx context.Context, projectID string) ([]*models.JobRecord, error)

	// QueueCounts returns the per-kind queue snapshots.
	QueueCounts(ctx context.Context) (map[models.JobKind]QueueCounts, error)
}
