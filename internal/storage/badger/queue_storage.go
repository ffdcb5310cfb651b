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

// QueueStorage implements the QueueStorage interface for Badger. Queued
// messages survive a restart; the Kind index keeps the per-kind queues
// independent inside the shared store.
type QueueStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewQueueStorage creates a new QueueStorage instance
func NewQueueStorage(db *BadgerDB, logger arbor.ILogger) interfaces.QueueStorage {
	return &QueueStorage{
		db:     db,
		logger: logger,
	}
}

// Insert persists a message keyed by job id. A duplicate id is a no-op so
// resubmission with the same id never double-queues.
func (s *QueueStorage) Insert(ctx context.Context, msg *models.QueueMessage) (bool, error) {
	if msg.JobID == "" {
		return false, fmt.Errorf("queue message requires a job id")
	}

	err := s.db.Store().Insert(msg.JobID, msg)
	if err == badgerhold.ErrKeyExists {
		s.logger.Debug().
			Str("job_id", msg.JobID).
			Str("kind", string(msg.Kind)).
			Msg("Duplicate enqueue ignored")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert queue message: %w", err)
	}
	return true, nil
}

// NextReady returns the eligible message with the lowest priority value for
// the kind, FIFO within a priority. Delayed messages stay invisible until
// their ReadyAt passes.
func (s *QueueStorage) NextReady(ctx context.Context, kind models.JobKind) (*models.QueueMessage, error) {
	var messages []models.QueueMessage
	if err := s.db.Store().Find(&messages, badgerhold.Where("Kind").Eq(kind).Index("Kind")); err != nil {
		return nil, fmt.Errorf("failed to scan queue: %w", err)
	}

	now := time.Now()
	var best *models.QueueMessage
	for i := range messages {
		msg := &messages[i]
		if msg.ReadyAt.After(now) {
			continue
		}
		if best == nil ||
			msg.Priority < best.Priority ||
			(msg.Priority == best.Priority && msg.Enqueued.Before(best.Enqueued)) {
			best = msg
		}
	}

	if best == nil {
		return nil, models.ErrNoMessage
	}
	return best, nil
}

// Get returns the queued message for a job id, or models.ErrNoMessage.
func (s *QueueStorage) Get(ctx context.Context, jobID string) (*models.QueueMessage, error) {
	var msg models.QueueMessage
	err := s.db.Store().Get(jobID, &msg)
	if err == badgerhold.ErrNotFound {
		return nil, models.ErrNoMessage
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue message: %w", err)
	}
	return &msg, nil
}

// Update rewrites a message in place (attempt count, ready time after backoff).
func (s *QueueStorage) Update(ctx context.Context, msg *models.QueueMessage) error {
	if err := s.db.Store().Upsert(msg.JobID, msg); err != nil {
		return fmt.Errorf("failed to update queue message: %w", err)
	}
	return nil
}

// Delete removes a message. Deleting an absent id is not an error.
func (s *QueueStorage) Delete(ctx context.Context, jobID string) error {
	err := s.db.Store().Delete(jobID, &models.QueueMessage{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete queue message: %w", err)
	}
	return nil
}

// Waiting counts queued messages for the kind.
func (s *QueueStorage) Waiting(ctx context.Context, kind models.JobKind) (int, error) {
	count, err := s.db.Store().Count(&models.QueueMessage{}, badgerhold.Where("Kind").Eq(kind).Index("Kind"))
	if err != nil {
		return 0, fmt.Errorf("failed to count queue messages: %w", err)
	}
	return int(count), nil
}
