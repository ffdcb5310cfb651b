package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// LedgerStorage implements the LedgerStorage interface for Badger. It is the
// single source of truth clients poll for job status, independent of the
// queue's internal bookkeeping.
type LedgerStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewLedgerStorage creates a new LedgerStorage instance
func NewLedgerStorage(db *BadgerDB, logger arbor.ILogger) interfaces.LedgerStorage {
	return &LedgerStorage{
		db:     db,
		logger: logger,
	}
}

// Put writes or overwrites a job record. Terminal records are sticky: once a
// job is completed or failed, any later write is detected and dropped so a
// late processing update (or a completion signal for a cancelled job) never
// resurrects the record.
func (s *LedgerStorage) Put(ctx context.Context, record *models.JobRecord) error {
	if record == nil || record.ID == "" {
		return fmt.Errorf("job record requires an id")
	}

	var existing models.JobRecord
	err := s.db.Store().Get(record.ID, &existing)
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to read existing job record: %w", err)
	}
	if err == nil && existing.Status.IsTerminal() {
		s.logger.Debug().
			Str("job_id", record.ID).
			Str("existing_status", string(existing.Status)).
			Str("dropped_status", string(record.Status)).
			Msg("Dropping write against terminal ledger record")
		return nil
	}

	record.UpdatedAt = time.Now()
	if record.CreatedAt.IsZero() {
		if err == nil {
			record.CreatedAt = existing.CreatedAt
		} else {
			record.CreatedAt = record.UpdatedAt
		}
	}

	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to save job record: %w", err)
	}
	return nil
}

// Get returns the current record or interfaces.ErrJobNotFound.
func (s *LedgerStorage) Get(ctx context.Context, jobID string) (*models.JobRecord, error) {
	var record models.JobRecord
	err := s.db.Store().Get(jobID, &record)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job record: %w", err)
	}
	return &record, nil
}

// UpdateProgress advances a non-terminal record to processing with the given
// progress. Regressive updates and updates against terminal records are
// dropped silently; progress is monotone while the job is live.
func (s *LedgerStorage) UpdateProgress(ctx context.Context, jobID string, progress int) error {
	var record models.JobRecord
	err := s.db.Store().Get(jobID, &record)
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get job record: %w", err)
	}

	if record.Status.IsTerminal() {
		s.logger.Debug().
			Str("job_id", jobID).
			Int("progress", progress).
			Msg("Dropping late progress write against terminal ledger record")
		return nil
	}
	if progress < record.Progress {
		return nil
	}
	if progress > 100 {
		progress = 100
	}

	record.Status = models.JobStatusProcessing
	record.Progress = progress
	record.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(jobID, &record); err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// ListByProject returns every ledger record submitted for a project. The
// ProjectID badgerhold index is the explicit per-project job index the status
// stream scans each tick.
func (s *LedgerStorage) ListByProject(ctx context.Context, projectID string) ([]*models.JobRecord, error) {
	var records []models.JobRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("ProjectID").Eq(projectID).Index("ProjectID")); err != nil {
		return nil, fmt.Errorf("failed to list jobs for project: %w", err)
	}

	result := make([]*models.JobRecord, 0, len(records))
	for i := range records {
		result = append(result, &records[i])
	}
	return result, nil
}

// ListByStatus returns records in the given status.
func (s *LedgerStorage) ListByStatus(ctx context.Context, status models.JobStatus) ([]*models.JobRecord, error) {
	var records []models.JobRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("Status").Eq(status).Index("Status")); err != nil {
		return nil, fmt.Errorf("failed to list jobs by status: %w", err)
	}

	result := make([]*models.JobRecord, 0, len(records))
	for i := range records {
		result = append(result, &records[i])
	}
	return result, nil
}
