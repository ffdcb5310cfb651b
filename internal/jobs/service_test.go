package jobs

import (
	"context"
	"testing"

	"github.com/storymill/storymill/internal/common"
	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
	"github.com/storymill/storymill/internal/queue"
	"github.com/storymill/storymill/internal/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, interfaces.LedgerStorage, interfaces.QueueRegistry) {
	t.Helper()
	logger := common.GetLogger()

	db, err := badger.NewBadgerDB(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ledger := badger.NewLedgerStorage(db, logger)
	queueStore := badger.NewQueueStorage(db, logger)
	registry := queue.NewRegistry(queueStore, models.DefaultRetryPolicy, logger)

	return NewService(ledger, registry, logger), ledger, registry
}

func sceneInput() *models.SceneInput {
	return &models.SceneInput{
		ProjectID: "p1",
		Order:     1,
		Prompt:    "the storm hits the harbor",
	}
}

func TestSubmit_RecordsPendingAndEnqueues(t *testing.T) {
	service, ledger, registry := newTestService(t)
	ctx := context.Background()

	jobID, err := service.Submit(ctx, models.KindSceneGeneration, sceneInput())
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	record, err := ledger.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, record.Status)
	assert.Equal(t, models.KindSceneGeneration, record.Kind)
	assert.Equal(t, "p1", record.ProjectID)
	assert.Equal(t, 0, record.Progress)
	assert.Equal(t, "p1", record.InputData["project_id"])

	q, ok := registry.Queue(models.KindSceneGeneration)
	require.True(t, ok)
	counts, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Waiting)
}

func TestSubmitWithID_IsIdempotent(t *testing.T) {
	service, _, registry := newTestService(t)
	ctx := context.Background()

	jobID := models.NewJobID()
	require.NoError(t, service.SubmitWithID(ctx, jobID, models.KindSceneGeneration, sceneInput()))
	require.NoError(t, service.SubmitWithID(ctx, jobID, models.KindSceneGeneration, sceneInput()))

	q, ok := registry.Queue(models.KindSceneGeneration)
	require.True(t, ok)
	counts, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Waiting)
}

func TestSubmit_RejectsUnknownKind(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Submit(context.Background(), models.JobKind("bogus"), sceneInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown job kind")
}

func TestSubmit_RejectsInvalidInput(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Submit(context.Background(), models.KindSceneGeneration, &models.SceneInput{
		Order: 1, Prompt: "no project",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
}

func TestSubmit_RejectsNilInput(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Submit(context.Background(), models.KindSceneGeneration, nil)
	assert.Error(t, err)
}

func TestStatus_UnknownJob(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Status(context.Background(), "job_ghost")
	assert.ErrorIs(t, err, interfaces.ErrJobNotFound)
}

func TestCancel_PendingJobRemovedAndFailed(t *testing.T) {
	service, ledger, registry := newTestService(t)
	ctx := context.Background()

	jobID, err := service.Submit(ctx, models.KindSceneGeneration, sceneInput())
	require.NoError(t, err)

	require.NoError(t, service.Cancel(ctx, jobID))

	record, err := ledger.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, record.Status)
	assert.Equal(t, models.CancelledMessage, record.ErrorMessage)

	q, _ := registry.Queue(models.KindSceneGeneration)
	counts, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Waiting)
}

func TestCancel_InFlightJobMarksLedgerOnly(t *testing.T) {
	service, ledger, registry := newTestService(t)
	ctx := context.Background()

	jobID, err := service.Submit(ctx, models.KindSceneGeneration, sceneInput())
	require.NoError(t, err)

	q, _ := registry.Queue(models.KindSceneGeneration)
	_, err = q.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, service.Cancel(ctx, jobID))

	record, err := ledger.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, record.Status)
	assert.Equal(t, models.CancelledMessage, record.ErrorMessage)
}

func TestCancel_TerminalJobRejected(t *testing.T) {
	service, ledger, _ := newTestService(t)
	ctx := context.Background()

	jobID, err := service.Submit(ctx, models.KindSceneGeneration, sceneInput())
	require.NoError(t, err)

	record, err := ledger.Get(ctx, jobID)
	require.NoError(t, err)
	record.Status = models.JobStatusCompleted
	record.Progress = 100
	require.NoError(t, ledger.Put(ctx, record))

	err = service.Cancel(ctx, jobID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already completed")
}

func TestCancel_UnknownJob(t *testing.T) {
	service, _, _ := newTestService(t)

	err := service.Cancel(context.Background(), "job_ghost")
	assert.ErrorIs(t, err, interfaces.ErrJobNotFound)
}

func TestListByProject(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Submit(ctx, models.KindSceneGeneration, sceneInput())
	require.NoError(t, err)
	_, err = service.Submit(ctx, models.KindCharacterGeneration, &models.CharacterInput{
		ProjectID: "p1", Prompt: "a sea captain",
	})
	require.NoError(t, err)

	records, err := service.ListByProject(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = service.ListByProject(ctx, "p2")
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = service.ListByProject(ctx, "")
	assert.Error(t, err)
}

func TestQueueCounts_CoversEveryKind(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Submit(ctx, models.KindSceneGeneration, sceneInput())
	require.NoError(t, err)

	counts, err := service.QueueCounts(ctx)
	require.NoError(t, err)
	assert.Len(t, counts, len(models.AllKinds))
	assert.Equal(t, 1, counts[models.KindSceneGeneration].Waiting)
	assert.Equal(t, 0, counts[models.KindVideoGeneration].Waiting)
}
