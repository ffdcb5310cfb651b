package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	// Queue lifecycle events republished by the event bridge after the
	// corresponding ledger write has landed.
	EventJobCompleted EventType = "job_completed"
	EventJobFailed    EventType = "job_failed"
	EventJobProgress  EventType = "job_progress"

	// Project stream events derived from ledger polling.
	EventCharacterComplete EventType = "character_complete"
	EventSceneComplete     EventType = "scene_complete"
	EventBatchProgress     EventType = "batch_progress"
	EventVideoComplete     EventType = "video_complete"
	EventProjectReady      EventType = "project_ready"
)

// Event represents a system event
type Event struct {
	Type    EventType
	Payload map[string]interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages the pub/sub event bus
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Publish an event to all subscribers asynchronously
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes an event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
