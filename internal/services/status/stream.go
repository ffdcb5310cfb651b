// -----------------------------------------------------------------------
// Project status stream - polls the per-project job index and derives
// client-facing progress events from ledger transitions
// -----------------------------------------------------------------------

package status

import (
	"context"
	"sync"
	"time"

	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

// StreamManager runs one polling stream per watched project. Streams are
// reference-counted: the first watcher starts the poll loop, the last one
// stops it.
type StreamManager struct {
	ledger           interfaces.LedgerStorage
	events           interfaces.EventService
	logger           arbor.ILogger
	pollInterval     time.Duration
	progressInterval time.Duration

	mu      sync.Mutex
	streams map[string]*projectStream
}

type projectStream struct {
	cancel   context.CancelFunc
	watchers int
}

// NewStreamManager creates the stream manager.
func NewStreamManager(ledger interfaces.LedgerStorage, events interfaces.EventService, pollInterval, progressInterval time.Duration, logger arbor.ILogger) *StreamManager {
	return &StreamManager{
		ledger:           ledger,
		events:           events,
		logger:           logger,
		pollInterval:     pollInterval,
		progressInterval: progressInterval,
		streams:          make(map[string]*projectStream),
	}
}

// Watch starts (or joins) the stream for a project.
func (m *StreamManager) Watch(projectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stream, ok := m.streams[projectID]; ok {
		stream.watchers++
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.streams[projectID] = &projectStream{cancel: cancel, watchers: 1}
	go m.run(ctx, projectID)

	m.logger.Info().Str("project_id", projectID).Msg("Project status stream started")
}

// Unwatch leaves the stream; the poll loop stops with the last watcher.
func (m *StreamManager) Unwatch(projectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stream, ok := m.streams[projectID]
	if !ok {
		return
	}
	stream.watchers--
	if stream.watchers <= 0 {
		stream.cancel()
		delete(m.streams, projectID)
		m.logger.Info().Str("project_id", projectID).Msg("Project status stream stopped")
	}
}

// Close stops every stream.
func (m *StreamManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for projectID, stream := range m.streams {
		stream.cancel()
		delete(m.streams, projectID)
	}
}

// run is the poll loop for one project. It diffs ledger records against the
// statuses it last saw and publishes an event per transition. batch_progress
// is rate-limited so a burst of completions does not flood clients.
func (m *StreamManager) run(ctx context.Context, projectID string) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	seen := make(map[string]models.JobStatus)
	limiter := rate.NewLimiter(rate.Every(m.progressInterval), 1)
	readyEmitted := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		records, err := m.ledger.ListByProject(ctx, projectID)
		if err != nil {
			m.logger.Error().Err(err).Str("project_id", projectID).Msg("Failed to poll project jobs")
			continue
		}
		if len(records) == 0 {
			continue
		}

		terminal := 0
		changed := false
		for _, record := range records {
			if record.Status.IsTerminal() {
				terminal++
			}
			previous, known := seen[record.ID]
			if known && previous == record.Status {
				continue
			}
			seen[record.ID] = record.Status
			changed = true

			if record.Status == models.JobStatusCompleted {
				m.publishCompletion(ctx, projectID, record)
			}
		}

		if changed && limiter.Allow() {
			m.publish(ctx, interfaces.EventBatchProgress, map[string]interface{}{
				"project_id": projectID,
				"total":      len(records),
				"terminal":   terminal,
				"percent":    terminal * 100 / len(records),
			})
		}

		if terminal == len(records) && !readyEmitted {
			readyEmitted = true
			m.publish(ctx, interfaces.EventProjectReady, map[string]interface{}{
				"project_id": projectID,
				"total":      len(records),
			})
		} else if terminal < len(records) {
			readyEmitted = false
		}
	}
}

func (m *StreamManager) publishCompletion(ctx context.Context, projectID string, record *models.JobRecord) {
	payload := map[string]interface{}{
		"project_id": projectID,
		"job_id":     record.ID,
		"kind":       string(record.Kind),
		"output":     record.OutputData,
	}

	switch record.Kind {
	case models.KindCharacterGeneration:
		m.publish(ctx, interfaces.EventCharacterComplete, payload)
	case models.KindSceneGeneration:
		m.publish(ctx, interfaces.EventSceneComplete, payload)
	case models.KindVideoGeneration, models.KindVideoStitching:
		m.publish(ctx, interfaces.EventVideoComplete, payload)
	}
}

func (m *StreamManager) publish(ctx context.Context, eventType interfaces.EventType, payload map[string]interface{}) {
	if err := m.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		m.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish stream event")
	}
}
