// -----------------------------------------------------------------------
// Queue - single-kind job queue with de-duplication, priority dispatch
// and exponential-backoff retry
// -----------------------------------------------------------------------

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
	"github.com/ternarybob/arbor"
)

// Queue serves exactly one job kind. Messages are persisted until received;
// an in-flight message lives in the active set so a failed attempt can be
// redelivered with backoff without losing its payload.
type Queue struct {
	kind    models.JobKind
	storage interfaces.QueueStorage
	retry   models.RetryPolicy
	logger  arbor.ILogger

	mu        sync.Mutex
	active    map[string]*models.QueueMessage
	completed int
	failed    int

	handlerMu         sync.RWMutex
	completedHandlers []interfaces.CompletedHandler
	failedHandlers    []interfaces.FailedHandler
	progressHandlers  []interfaces.ProgressHandler
}

// NewQueue creates a queue for the given kind.
func NewQueue(kind models.JobKind, storage interfaces.QueueStorage, retry models.RetryPolicy, logger arbor.ILogger) *Queue {
	return &Queue{
		kind:    kind,
		storage: storage,
		retry:   retry,
		logger:  logger,
		active:  make(map[string]*models.QueueMessage),
	}
}

// Kind returns the job kind this queue serves.
func (q *Queue) Kind() models.JobKind {
	return q.kind
}

// Enqueue adds a job keyed by its id. Resubmitting an id that is already
// queued is a no-op, so a double-submitted job yields a single queue entry.
func (q *Queue) Enqueue(ctx context.Context, jobID string, payload json.RawMessage, opts interfaces.EnqueueOptions) error {
	now := time.Now()
	msg := &models.QueueMessage{
		JobID:    jobID,
		Kind:     q.kind,
		Payload:  payload,
		Priority: models.KindPriority(q.kind),
		Attempt:  0,
		ReadyAt:  now.Add(opts.Delay),
		Enqueued: now,
	}

	inserted, err := q.storage.Insert(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	if inserted {
		q.logger.Debug().
			Str("job_id", jobID).
			Str("kind", string(q.kind)).
			Int("priority", msg.Priority).
			Msg("Job enqueued")
	}
	return nil
}

// Receive pulls the next eligible message and moves it to the active set.
// Returns models.ErrNoMessage when nothing is eligible. The mutex makes the
// pop atomic across concurrent workers of the same kind.
func (q *Queue) Receive(ctx context.Context) (*models.QueueMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	msg, err := q.storage.NextReady(ctx, q.kind)
	if err != nil {
		return nil, err
	}

	if err := q.storage.Delete(ctx, msg.JobID); err != nil {
		return nil, fmt.Errorf("failed to claim queue message: %w", err)
	}

	msg.Attempt++
	q.active[msg.JobID] = msg

	q.logger.Debug().
		Str("job_id", msg.JobID).
		Str("kind", string(q.kind)).
		Int("attempt", msg.Attempt).
		Msg("Job dispatched to worker")

	return msg, nil
}

// Complete records a successful attempt and fires completed handlers.
func (q *Queue) Complete(jobID string, result interface{}) {
	q.mu.Lock()
	delete(q.active, jobID)
	q.completed++
	q.mu.Unlock()

	q.logger.Info().
		Str("job_id", jobID).
		Str("kind", string(q.kind)).
		Msg("Job completed")

	for _, handler := range q.completedSnapshot() {
		handler(jobID, result)
	}
}

// Fail records a failed attempt. While attempts remain the message is
// requeued with exponential backoff; once exhausted, failed handlers fire
// with the final reason.
func (q *Queue) Fail(jobID string, reason string) {
	q.mu.Lock()
	msg, ok := q.active[jobID]
	if ok {
		delete(q.active, jobID)
	}
	q.mu.Unlock()

	if !ok {
		q.logger.Warn().
			Str("job_id", jobID).
			Str("kind", string(q.kind)).
			Msg("Fail signal for job not in active set, dropping")
		return
	}

	if !q.retry.Exhausted(msg.Attempt) {
		backoff := q.retry.BackoffFor(msg.Attempt)
		msg.ReadyAt = time.Now().Add(backoff)
		if err := q.storage.Update(context.Background(), msg); err != nil {
			q.logger.Error().Err(err).
				Str("job_id", jobID).
				Msg("Failed to requeue job for retry")
		} else {
			q.logger.Warn().
				Str("job_id", jobID).
				Str("kind", string(q.kind)).
				Int("attempt", msg.Attempt).
				Str("backoff", backoff.String()).
				Str("reason", reason).
				Msg("Job attempt failed, retrying")
			return
		}
	}

	q.mu.Lock()
	q.failed++
	q.mu.Unlock()

	q.logger.Error().
		Str("job_id", jobID).
		Str("kind", string(q.kind)).
		Int("attempts", msg.Attempt).
		Str("reason", reason).
		Msg("Job failed after final attempt")

	for _, handler := range q.failedSnapshot() {
		handler(jobID, reason)
	}
}

// Progress fires progress handlers for an in-flight job.
func (q *Queue) Progress(jobID string, value int) {
	for _, handler := range q.progressSnapshot() {
		handler(jobID, value)
	}
}

// Remove deletes a not-yet-started job from the queue. A job already handed
// to a worker is not removable.
func (q *Queue) Remove(ctx context.Context, jobID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, inFlight := q.active[jobID]; inFlight {
		return false, nil
	}

	_, err := q.storage.Get(ctx, jobID)
	if err == models.ErrNoMessage {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := q.storage.Delete(ctx, jobID); err != nil {
		return false, err
	}

	q.logger.Info().
		Str("job_id", jobID).
		Str("kind", string(q.kind)).
		Msg("Pending job removed from queue")
	return true, nil
}

// Counts returns the queue's lifecycle counters.
func (q *Queue) Counts(ctx context.Context) (interfaces.QueueCounts, error) {
	waiting, err := q.storage.Waiting(ctx, q.kind)
	if err != nil {
		return interfaces.QueueCounts{}, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return interfaces.QueueCounts{
		Waiting:   waiting,
		Active:    len(q.active),
		Completed: q.completed,
		Failed:    q.failed,
	}, nil
}

// OnCompleted registers a completion handler.
func (q *Queue) OnCompleted(handler interfaces.CompletedHandler) {
	q.handlerMu.Lock()
	defer q.handlerMu.Unlock()
	q.completedHandlers = append(q.completedHandlers, handler)
}

// OnFailed registers a terminal-failure handler.
func (q *Queue) OnFailed(handler interfaces.FailedHandler) {
	q.handlerMu.Lock()
	defer q.handlerMu.Unlock()
	q.failedHandlers = append(q.failedHandlers, handler)
}

// OnProgress registers a progress handler.
func (q *Queue) OnProgress(handler interfaces.ProgressHandler) {
	q.handlerMu.Lock()
	defer q.handlerMu.Unlock()
	q.progressHandlers = append(q.progressHandlers, handler)
}

func (q *Queue) completedSnapshot() []interfaces.CompletedHandler {
	q.handlerMu.RLock()
	defer q.handlerMu.RUnlock()
	return append([]interfaces.CompletedHandler(nil), q.completedHandlers...)
}

func (q *Queue) failedSnapshot() []interfaces.FailedHandler {
	q.handlerMu.RLock()
	defer q.handlerMu.RUnlock()
	return append([]interfaces.FailedHandler(nil), q.failedHandlers...)
}

func (q *Queue) progressSnapshot() []interfaces.ProgressHandler {
	q.handlerMu.RLock()
	defer q.handlerMu.RUnlock()
	return append([]interfaces.ProgressHandler(nil), q.progressHandlers...)
}

var _ interfaces.Queue = (*Queue)(nil)
