package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindPriority_OrdersCharacterFirst(t *testing.T) {
	assert.Equal(t, 0, KindPriority(KindCharacterGeneration))
	assert.Less(t, KindPriority(KindCharacterGeneration), KindPriority(KindSceneGeneration))
	assert.Less(t, KindPriority(KindSceneGeneration), KindPriority(KindFrameGeneration))
	assert.Less(t, KindPriority(KindFrameGeneration), KindPriority(KindVideoGeneration))
	assert.Less(t, KindPriority(KindVideoGeneration), KindPriority(KindVideoStitching))
}

func TestKindPriority_UnknownKindSortsLast(t *testing.T) {
	assert.Equal(t, len(AllKinds), KindPriority(JobKind("bogus")))
}

func TestValidKind(t *testing.T) {
	for _, kind := range AllKinds {
		assert.True(t, ValidKind(kind), "expected %s to be valid", kind)
	}
	assert.False(t, ValidKind(JobKind("unknown-kind")))
	assert.False(t, ValidKind(JobKind("")))
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusProcessing.IsTerminal())
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
}

func TestNewJobRecord(t *testing.T) {
	record := NewJobRecord("job_1", "proj_1", KindSceneGeneration, map[string]interface{}{"prompt": "a storm"})

	assert.Equal(t, "job_1", record.ID)
	assert.Equal(t, "proj_1", record.ProjectID)
	assert.Equal(t, JobStatusPending, record.Status)
	assert.Equal(t, 0, record.Progress)
	assert.False(t, record.CreatedAt.IsZero())
}

func TestNewJobID_Unique(t *testing.T) {
	a := NewJobID()
	b := NewJobID()
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "job_")
}
