// -----------------------------------------------------------------------
// Job - ledger record and kind/status taxonomy for pipeline jobs
// -----------------------------------------------------------------------

package models

import (
	"time"

	"github.com/google/uuid"
)

// JobKind identifies the pipeline stage a job belongs to.
type JobKind string

const (
	KindCharacterGeneration JobKind = "character-generation"
	KindObjectGeneration    JobKind = "object-generation"
	KindSceneGeneration     JobKind = "scene-generation"
	KindFrameGeneration     JobKind = "frame-generation"
	KindVideoGeneration     JobKind = "video-generation"
	KindVideoStitching      JobKind = "video-stitching"
	KindScriptGeneration    JobKind = "script-generation"
	KindImageEditing        JobKind = "image-editing"
)

// AllKinds lists every job kind in priority order (most time-sensitive first).
// The ordering is policy, not correctness, but it is deterministic: a queue's
// numeric priority is its index in this slice.
var AllKinds = []JobKind{
	KindCharacterGeneration,
	KindObjectGeneration,
	KindScriptGeneration,
	KindSceneGeneration,
	KindFrameGeneration,
	KindImageEditing,
	KindVideoGeneration,
	KindVideoStitching,
}

// KindPriority returns the static queue priority for a kind.
// Lower values are served first. Unknown kinds sort last.
func KindPriority(kind JobKind) int {
	for i, k := range AllKinds {
		if k == kind {
			return i
		}
	}
	return len(AllKinds)
}

// ValidKind reports whether kind is a known pipeline stage.
func ValidKind(kind JobKind) bool {
	for _, k := range AllKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// JobStatus represents the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status is final. Terminal ledger records are
// sticky: no later write may change them.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CancelledMessage is the fixed error message carried by a cancelled job.
const CancelledMessage = "Job cancelled"

// JobRecord is the ledger entry for a single job. It is the only record
// clients observe; the queue's internal bookkeeping is never exposed.
type JobRecord struct {
	ID           string                 `json:"id" badgerhold:"key"`
	ProjectID    string                 `json:"project_id" badgerhold:"index"`
	Kind         JobKind                `json:"kind"`
	Status       JobStatus              `json:"status" badgerhold:"index"`
	Progress     int                    `json:"progress"`
	InputData    map[string]interface{} `json:"input_data,omitempty"`
	OutputData   map[string]interface{} `json:"output_data,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// NewJobRecord creates a pending ledger record for a freshly submitted job.
func NewJobRecord(jobID, projectID string, kind JobKind, input map[string]interface{}) *JobRecord {
	now := time.Now()
	return &JobRecord{
		ID:        jobID,
		ProjectID: projectID,
		Kind:      kind,
		Status:    JobStatusPending,
		Progress:  0,
		InputData: input,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewJobID generates a unique job identifier. The id doubles as the queue's
// de-duplication key, so it must be unique per submission.
func NewJobID() string {
	return "job_" + uuid.New().String()
}
