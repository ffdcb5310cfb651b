// -----------------------------------------------------------------------
// Event bridge - the single consumer of queue lifecycle signals. It owns
// every terminal ledger write; workers only emit progress checkpoints.
// -----------------------------------------------------------------------

package status

import (
	"context"
	"errors"

	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
	"github.com/ternarybob/arbor"
)

// Bridge subscribes to every queue's completed, failed and progress handlers,
// records the outcome on the ledger, then republishes the signal on the event
// bus for downstream consumers (cascade, project streams).
type Bridge struct {
	ledger interfaces.LedgerStorage
	events interfaces.EventService
	logger arbor.ILogger
}

// NewBridge creates the event bridge.
func NewBridge(ledger interfaces.LedgerStorage, events interfaces.EventService, logger arbor.ILogger) *Bridge {
	return &Bridge{
		ledger: ledger,
		events: events,
		logger: logger,
	}
}

// Attach registers the bridge on every queue in the registry. Called once at
// startup; the bridge is the only component that subscribes to queues.
func (b *Bridge) Attach(registry interfaces.QueueRegistry) {
	for _, kind := range registry.Kinds() {
		queue, ok := registry.Queue(kind)
		if !ok {
			continue
		}
		queue.OnCompleted(b.handleCompleted)
		queue.OnFailed(b.handleFailed)
		queue.OnProgress(b.handleProgress)
	}
	b.logger.Info().Int("queues", len(registry.Kinds())).Msg("Event bridge attached to queues")
}

func (b *Bridge) handleCompleted(jobID string, result interface{}) {
	ctx := context.Background()

	record, err := b.ledger.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			b.logger.Warn().Str("job_id", jobID).Msg("Completion signal for unknown job, dropping")
		} else {
			b.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to read ledger record on completion")
		}
		return
	}

	output := NormalizeOutput(result)

	record.Status = models.JobStatusCompleted
	record.Progress = 100
	record.OutputData = output
	record.ErrorMessage = ""

	// A cancelled job's record is already terminal; Put drops the write and
	// the late completion signal disappears here.
	if err := b.ledger.Put(ctx, record); err != nil {
		b.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to record job completion")
		return
	}

	current, err := b.ledger.Get(ctx, jobID)
	if err != nil || current.Status != models.JobStatusCompleted {
		return
	}

	if err := b.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventJobCompleted,
		Payload: map[string]interface{}{
			"job_id":     jobID,
			"kind":       string(record.Kind),
			"project_id": record.ProjectID,
			"input":      record.InputData,
			"output":     output,
		},
	}); err != nil {
		b.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to publish completion event")
	}
}

func (b *Bridge) handleFailed(jobID string, reason string) {
	ctx := context.Background()

	record, err := b.ledger.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, interfaces.ErrJobNotFound) {
			b.logger.Warn().Str("job_id", jobID).Msg("Failure signal for unknown job, dropping")
		} else {
			b.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to read ledger record on failure")
		}
		return
	}

	record.Status = models.JobStatusFailed
	record.ErrorMessage = reason

	if err := b.ledger.Put(ctx, record); err != nil {
		b.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to record job failure")
		return
	}

	if err := b.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventJobFailed,
		Payload: map[string]interface{}{
			"job_id":     jobID,
			"kind":       string(record.Kind),
			"project_id": record.ProjectID,
			"error":      reason,
		},
	}); err != nil {
		b.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to publish failure event")
	}
}

func (b *Bridge) handleProgress(jobID string, value int) {
	ctx := context.Background()

	if err := b.ledger.UpdateProgress(ctx, jobID, value); err != nil {
		if !errors.Is(err, interfaces.ErrJobNotFound) {
			b.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to record job progress")
		}
		return
	}

	if err := b.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventJobProgress,
		Payload: map[string]interface{}{
			"job_id":   jobID,
			"progress": value,
		},
	}); err != nil {
		b.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to publish progress event")
	}
}

// NormalizeOutput converts a worker's return value into the ledger's output
// map: strings wrap as {"result": s}, maps pass through, anything else wraps
// as {"raw_return": v}. A nil result stays nil.
func NormalizeOutput(result interface{}) map[string]interface{} {
	switch v := result.(type) {
	case nil:
		return nil
	case string:
		return map[string]interface{}{"result": v}
	case map[string]interface{}:
		return v
	default:
		return map[string]interface{}{"raw_return": v}
	}
}
