package models

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrNoMessage is returned when a queue has no eligible message.
var ErrNoMessage = errors.New("no messages in queue")

// QueueMessage is the structure persisted per queued job. The JobID is the
// de-duplication key: enqueueing the same id twice is a no-op.
type QueueMessage struct {
	JobID    string          `json:"job_id" badgerhold:"key"`
	Kind     JobKind         `json:"kind" badgerhold:"index"`
	Payload  json.RawMessage `json:"payload"`
	Priority int             `json:"priority"`
	Attempt  int             `json:"attempt"`  // delivery attempts so far
	ReadyAt  time.Time       `json:"ready_at"` // eligible for dispatch at/after this instant
	Enqueued time.Time       `json:"enqueued"`
}

// RetryPolicy governs redelivery after a failed attempt. Uniform across all
// queues: up to MaxAttempts deliveries, exponential backoff doubling from
// BaseDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy is the documented queue-wide policy.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   2 * time.Second,
}

// BackoffFor returns the delay before redelivering a message that has already
// been attempted `attempt` times (attempt >= 1).
func (p RetryPolicy) BackoffFor(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// Exhausted reports whether a message that failed on the given attempt number
// has no deliveries left.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}
