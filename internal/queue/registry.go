package queue

import (
	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
	"github.com/ternarybob/arbor"
)

// Registry holds one queue per job kind. It is constructed once at startup
// and injected into every collaborator; the map is read-only afterwards.
type Registry struct {
	queues map[models.JobKind]interfaces.Queue
	kinds  []models.JobKind
}

// NewRegistry builds a queue for every known kind.
func NewRegistry(storage interfaces.QueueStorage, retry models.RetryPolicy, logger arbor.ILogger) *Registry {
	queues := make(map[models.JobKind]interfaces.Queue, len(models.AllKinds))
	kinds := make([]models.JobKind, 0, len(models.AllKinds))
	for _, kind := range models.AllKinds {
		queues[kind] = NewQueue(kind, storage, retry, logger)
		kinds = append(kinds, kind)
	}
	return &Registry{queues: queues, kinds: kinds}
}

// Queue returns the queue for a kind.
func (r *Registry) Queue(kind models.JobKind) (interfaces.Queue, bool) {
	q, ok := r.queues[kind]
	return q, ok
}

// Kinds returns every registered kind in priority order.
func (r *Registry) Kinds() []models.JobKind {
	return r.kinds
}

var _ interfaces.QueueRegistry = (*Registry)(nil)
