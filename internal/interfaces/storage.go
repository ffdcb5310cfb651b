package interfaces

import (
	"context"
	"errors"

	"github.com/storymill/storymill/internal/models"
)

// ErrJobNotFound is returned when a ledger record does not exist. Callers can
// distinguish it from transport errors with errors.Is.
var ErrJobNotFound = errors.New("job not found")

// ErrEntityNotFound is returned when an entity read misses.
var ErrEntityNotFound = errors.New("entity not found")

// LedgerStorage is the independent job-status record clients poll. Writes are
// last-write-wins with one rule: a terminal record (completed/failed) is
// sticky and silently swallows late non-terminal writes.
type LedgerStorage interface {
	// Put writes or overwrites the record with a fresh UpdatedAt. A write
	// against an existing terminal record is dropped unless the new status
	// is also terminal-overwriting is never allowed, so terminal-on-terminal
	// is dropped too. Dropped writes are not errors.
	Put(ctx context.Context, record *models.JobRecord) error

	// Get returns the current record or ErrJobNotFound.
	Get(ctx context.Context, jobID string) (*models.JobRecord, error)

	// UpdateProgress advances the progress of a non-terminal record and moves
	// it to processing. Progress never decreases; late or regressive updates
	// are dropped.
	UpdateProgress(ctx context.Context, jobID string, progress int) error

	// ListByProject scans the explicit per-project index and returns every
	// ledger record submitted for the project.
	ListByProject(ctx context.Context, projectID string) ([]*models.JobRecord, error)

	// ListByStatus returns records in the given status, for maintenance sweeps.
	ListByStatus(ctx context.Context, status models.JobStatus) ([]*models.JobRecord, error)
}

// EntityStorage is the storage collaborator for pipeline entities. The
// context builder depends on the list-by-project reads.
type EntityStorage interface {
	SaveProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)

	SaveCharacter(ctx context.Context, c *models.Character) error
	GetCharacter(ctx context.Context, id string) (*models.Character, error)
	ListCharacters(ctx context.Context, projectID string) ([]*models.Character, error)

	SaveObject(ctx context.Context, o *models.SceneObject) error
	GetObject(ctx context.Context, id string) (*models.SceneObject, error)
	ListObjects(ctx context.Context, projectID string) ([]*models.SceneObject, error)

	SaveScene(ctx context.Context, s *models.Scene) error
	GetScene(ctx context.Context, id string) (*models.Scene, error)
	ListScenes(ctx context.Context, projectID string) ([]*models.Scene, error)

	SaveFrame(ctx context.Context, f *models.Frame) error
	GetFrame(ctx context.Context, id string) (*models.Frame, error)
	ListFrames(ctx context.Context, sceneID string) ([]*models.Frame, error)

	SaveVideo(ctx context.Context, v *models.Video) error
	ListVideos(ctx context.Context, projectID string) ([]*models.Video, error)
}

// QueueStorage persists queued messages so pending work survives a restart.
// One logical queue per kind shares the store; the Kind index keeps them
// independent.
type QueueStorage interface {
	// Insert persists a message keyed by job id. Returns inserted=false
	// without error when the id is already queued (de-duplication).
	Insert(ctx context.Context, msg *models.QueueMessage) (bool, error)

	// NextReady returns the eligible message with the lowest priority value
	// (FIFO within a priority) for the kind, or models.ErrNoMessage.
	NextReady(ctx context.Context, kind models.JobKind) (*models.QueueMessage, error)

	// Get returns the queued message for a job id, or models.ErrNoMessage.
	Get(ctx context.Context, jobID string) (*models.QueueMessage, error)

	// Update rewrites a message in place (attempt count, ready time).
	Update(ctx context.Context, msg *models.QueueMessage) error

	// Delete removes a message. Deleting an absent id is not an error.
	Delete(ctx context.Context, jobID string) error

	// Waiting counts queued messages for the kind.
	Waiting(ctx context.Context, kind models.JobKind) (int, error)
}

// MediaStorage is the binary asset collaborator.
type MediaStorage interface {
	Save(ctx context.Context, projectID, category, filename string, data []byte) (string, error)
	Exists(ctx context.Context, projectID, category, filename string) (bool, error)
	Read(ctx context.Context, projectID, category, filename string) ([]byte, error)
	Delete(ctx context.Context, projectID, category, filename string) error
}
