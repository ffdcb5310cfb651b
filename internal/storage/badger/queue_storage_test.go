package badger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/storymill/storymill/internal/common"
	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueueStorage(t *testing.T) interfaces.QueueStorage {
	t.Helper()
	return NewQueueStorage(newTestDB(t), common.GetLogger())
}

func testMessage(jobID string, kind models.JobKind) *models.QueueMessage {
	now := time.Now()
	return &models.QueueMessage{
		JobID:    jobID,
		Kind:     kind,
		Payload:  json.RawMessage(`{}`),
		Priority: models.KindPriority(kind),
		ReadyAt:  now,
		Enqueued: now,
	}
}

func TestQueueStorage_InsertDeduplicates(t *testing.T) {
	store := newTestQueueStorage(t)
	ctx := context.Background()

	inserted, err := store.Insert(ctx, testMessage("job_1", models.KindSceneGeneration))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.Insert(ctx, testMessage("job_1", models.KindSceneGeneration))
	require.NoError(t, err)
	assert.False(t, inserted)

	waiting, err := store.Waiting(ctx, models.KindSceneGeneration)
	require.NoError(t, err)
	assert.Equal(t, 1, waiting)
}

func TestQueueStorage_NextReadyHonorsPriorityThenFIFO(t *testing.T) {
	store := newTestQueueStorage(t)
	ctx := context.Background()

	first := testMessage("job_a", models.KindSceneGeneration)
	first.Priority = 5
	second := testMessage("job_b", models.KindSceneGeneration)
	second.Priority = 1
	second.Enqueued = first.Enqueued.Add(time.Millisecond)
	third := testMessage("job_c", models.KindSceneGeneration)
	third.Priority = 1
	third.Enqueued = first.Enqueued.Add(2 * time.Millisecond)

	for _, msg := range []*models.QueueMessage{first, second, third} {
		_, err := store.Insert(ctx, msg)
		require.NoError(t, err)
	}

	msg, err := store.NextReady(ctx, models.KindSceneGeneration)
	require.NoError(t, err)
	assert.Equal(t, "job_b", msg.JobID)
}

func TestQueueStorage_NextReadySkipsDelayedMessages(t *testing.T) {
	store := newTestQueueStorage(t)
	ctx := context.Background()

	delayed := testMessage("job_delayed", models.KindVideoGeneration)
	delayed.ReadyAt = time.Now().Add(time.Hour)
	_, err := store.Insert(ctx, delayed)
	require.NoError(t, err)

	_, err = store.NextReady(ctx, models.KindVideoGeneration)
	assert.ErrorIs(t, err, models.ErrNoMessage)
}

func TestQueueStorage_NextReadyIsolatesKinds(t *testing.T) {
	store := newTestQueueStorage(t)
	ctx := context.Background()

	_, err := store.Insert(ctx, testMessage("job_1", models.KindSceneGeneration))
	require.NoError(t, err)

	_, err = store.NextReady(ctx, models.KindVideoGeneration)
	assert.ErrorIs(t, err, models.ErrNoMessage)

	msg, err := store.NextReady(ctx, models.KindSceneGeneration)
	require.NoError(t, err)
	assert.Equal(t, "job_1", msg.JobID)
}

func TestQueueStorage_DeleteIsIdempotent(t *testing.T) {
	store := newTestQueueStorage(t)
	ctx := context.Background()

	_, err := store.Insert(ctx, testMessage("job_1", models.KindSceneGeneration))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "job_1"))
	require.NoError(t, store.Delete(ctx, "job_1"))
	require.NoError(t, store.Delete(ctx, "job_never_existed"))
}

func TestQueueStorage_Get(t *testing.T) {
	store := newTestQueueStorage(t)
	ctx := context.Background()

	_, err := store.Insert(ctx, testMessage("job_1", models.KindSceneGeneration))
	require.NoError(t, err)

	msg, err := store.Get(ctx, "job_1")
	require.NoError(t, err)
	assert.Equal(t, models.KindSceneGeneration, msg.Kind)

	_, err = store.Get(ctx, "job_missing")
	assert.ErrorIs(t, err, models.ErrNoMessage)
}
