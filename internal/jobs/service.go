// -----------------------------------------------------------------------
// Job service - the orchestration facade. Every job, user-submitted or
// cascaded, enters through Submit: validate, record pending, enqueue.
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
	"github.com/ternarybob/arbor"
)

// Service implements the JobService interface over the ledger and the queue
// registry.
type Service struct {
	ledger   interfaces.LedgerStorage
	registry interfaces.QueueRegistry
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewService creates the job service.
func NewService(ledger interfaces.LedgerStorage, registry interfaces.QueueRegistry, logger arbor.ILogger) *Service {
	return &Service{
		ledger:   ledger,
		registry: registry,
		validate: validator.New(),
		logger:   logger,
	}
}

// Submit validates the input, writes a pending ledger record and enqueues the
// job under a fresh id.
func (s *Service) Submit(ctx context.Context, kind models.JobKind, input interface{}) (string, error) {
	jobID := models.NewJobID()
	if err := s.SubmitWithID(ctx, jobID, kind, input); err != nil {
		return "", err
	}
	return jobID, nil
}

// SubmitWithID is Submit with a caller-chosen id. Submitting an id that is
// already queued leaves a single queue entry; the ledger record is refreshed
// unless it is already terminal.
func (s *Service) SubmitWithID(ctx context.Context, jobID string, kind models.JobKind, input interface{}) error {
	if jobID == "" {
		return fmt.Errorf("job id is required")
	}
	if !models.ValidKind(kind) {
		return fmt.Errorf("unknown job kind: %s", kind)
	}
	if input == nil {
		return fmt.Errorf("job input is required")
	}

	if err := s.validate.Struct(input); err != nil {
		return fmt.Errorf("invalid %s input: %w", kind, err)
	}

	projectID := models.InputProjectID(input)
	if projectID == "" {
		return fmt.Errorf("%s input carries no project id", kind)
	}

	queue, ok := s.registry.Queue(kind)
	if !ok {
		return fmt.Errorf("no queue registered for kind %s", kind)
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to encode job payload: %w", err)
	}

	record := models.NewJobRecord(jobID, projectID, kind, models.ToMap(input))
	if err := s.ledger.Put(ctx, record); err != nil {
		return fmt.Errorf("failed to record submitted job: %w", err)
	}

	if err := queue.Enqueue(ctx, jobID, payload, interfaces.EnqueueOptions{}); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	s.logger.Info().
		Str("job_id", jobID).
		Str("kind", string(kind)).
		Str("project_id", projectID).
		Msg("Job submitted")
	return nil
}

// Status returns the ledger record for a job.
func (s *Service) Status(ctx context.Context, jobID string) (*models.JobRecord, error) {
	return s.ledger.Get(ctx, jobID)
}

// Cancel removes a pending job from its queue and fails its ledger record
// with the fixed cancellation message. A job already handed to a worker runs
// its attempt to the end; the terminal record swallows the late signals.
func (s *Service) Cancel(ctx context.Context, jobID string) error {
	record, err := s.ledger.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if record.Status.IsTerminal() {
		return fmt.Errorf("job %s is already %s", jobID, record.Status)
	}

	if queue, ok := s.registry.Queue(record.Kind); ok {
		removed, err := queue.Remove(ctx, jobID)
		if err != nil {
			return fmt.Errorf("failed to remove job from queue: %w", err)
		}
		if !removed {
			s.logger.Info().
				Str("job_id", jobID).
				Msg("Cancelling job already in flight, attempt will run out")
		}
	}

	record.Status = models.JobStatusFailed
	record.ErrorMessage = models.CancelledMessage
	if err := s.ledger.Put(ctx, record); err != nil {
		return fmt.Errorf("failed to record cancellation: %w", err)
	}

	s.logger.Info().Str("job_id", jobID).Msg("Job cancelled")
	return nil
}

// ListByProject returns every ledger record for a project.
func (s *Service) ListByProject(ctx context.Context, projectID string) ([]*models.JobRecord, error) {
	if projectID == "" {
		return nil, errors.New("project id is required")
	}
	return s.ledger.ListByProject(ctx, projectID)
}

// QueueCounts returns the per-kind queue snapshots.
func (s *Service) QueueCounts(ctx context.Context) (map[models.JobKind]interfaces.QueueCounts, error) {
	counts := make(map[models.JobKind]interfaces.QueueCounts, len(s.registry.Kinds()))
	for _, kind := range s.registry.Kinds() {
		queue, ok := s.registry.Queue(kind)
		if !ok {
			continue
		}
		c, err := queue.Counts(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read counts for %s: %w", kind, err)
		}
		counts[kind] = c
	}
	return counts, nil
}

var _ interfaces.JobService = (*Service)(nil)
