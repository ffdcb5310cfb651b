// -----------------------------------------------------------------------
// Scheduler - cron-driven maintenance. The stale sweep fails processing
// jobs whose worker disappeared (crash, restart) so they do not sit in
// processing forever.
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
	"github.com/ternarybob/arbor"
)

// Service runs scheduled maintenance jobs.
type Service struct {
	ledger         interfaces.LedgerStorage
	events         interfaces.EventService
	logger         arbor.ILogger
	cron           *cron.Cron
	schedule       string
	staleThreshold time.Duration
}

// NewService creates the scheduler.
func NewService(ledger interfaces.LedgerStorage, events interfaces.EventService, schedule string, staleThreshold time.Duration, logger arbor.ILogger) *Service {
	return &Service{
		ledger:         ledger,
		events:         events,
		logger:         logger,
		cron:           cron.New(),
		schedule:       schedule,
		staleThreshold: staleThreshold,
	}
}

// Start registers the sweep and starts the cron loop.
func (s *Service) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.sweepStaleJobs); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info().
		Str("schedule", s.schedule).
		Dur("stale_threshold", s.staleThreshold).
		Msg("Maintenance scheduler started")
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Maintenance scheduler stopped")
}

// sweepStaleJobs fails processing records that have not been touched within
// the stale threshold. A live worker refreshes UpdatedAt on every progress
// checkpoint, so only orphaned jobs cross it.
func (s *Service) sweepStaleJobs() {
	ctx := context.Background()
	cutoff := time.Now().Add(-s.staleThreshold)

	records, err := s.ledger.ListByStatus(ctx, models.JobStatusProcessing)
	if err != nil {
		s.logger.Error().Err(err).Msg("Stale sweep failed to list processing jobs")
		return
	}

	swept := 0
	for _, record := range records {
		if record.UpdatedAt.After(cutoff) {
			continue
		}

		record.Status = models.JobStatusFailed
		record.ErrorMessage = "Job stalled in processing"
		if err := s.ledger.Put(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("job_id", record.ID).Msg("Failed to fail stalled job")
			continue
		}
		swept++

		if err := s.events.Publish(ctx, interfaces.Event{
			Type: interfaces.EventJobFailed,
			Payload: map[string]interface{}{
				"job_id":     record.ID,
				"kind":       string(record.Kind),
				"project_id": record.ProjectID,
				"error":      record.ErrorMessage,
			},
		}); err != nil {
			s.logger.Error().Err(err).Str("job_id", record.ID).Msg("Failed to publish stalled job event")
		}
	}

	if swept > 0 {
		s.logger.Warn().Int("swept", swept).Msg("Stale sweep failed orphaned processing jobs")
	}
}
