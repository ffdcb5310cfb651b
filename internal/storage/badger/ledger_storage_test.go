package badger

import (
	"context"
	"testing"

	"github.com/storymill/storymill/internal/common"
	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) interfaces.LedgerStorage {
	t.Helper()
	return NewLedgerStorage(newTestDB(t), common.GetLogger())
}

func TestLedger_PutAndGet(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	record := models.NewJobRecord("job_1", "proj_1", models.KindCharacterGeneration, nil)
	require.NoError(t, ledger.Put(ctx, record))

	got, err := ledger.Get(ctx, "job_1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, got.Status)
	assert.Equal(t, "proj_1", got.ProjectID)
}

func TestLedger_GetMissing(t *testing.T) {
	ledger := newTestLedger(t)

	_, err := ledger.Get(context.Background(), "job_missing")
	assert.ErrorIs(t, err, interfaces.ErrJobNotFound)
}

func TestLedger_TerminalRecordIsSticky(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	record := models.NewJobRecord("job_1", "proj_1", models.KindSceneGeneration, nil)
	require.NoError(t, ledger.Put(ctx, record))

	record.Status = models.JobStatusFailed
	record.ErrorMessage = models.CancelledMessage
	require.NoError(t, ledger.Put(ctx, record))

	// A late completion write must not resurrect the record.
	late := models.NewJobRecord("job_1", "proj_1", models.KindSceneGeneration, nil)
	late.Status = models.JobStatusCompleted
	late.Progress = 100
	require.NoError(t, ledger.Put(ctx, late))

	got, err := ledger.Get(ctx, "job_1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Equal(t, models.CancelledMessage, got.ErrorMessage)
}

func TestLedger_ProgressIsMonotone(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Put(ctx, models.NewJobRecord("job_1", "proj_1", models.KindVideoGeneration, nil)))

	require.NoError(t, ledger.UpdateProgress(ctx, "job_1", 40))
	require.NoError(t, ledger.UpdateProgress(ctx, "job_1", 20)) // regressive, dropped

	got, err := ledger.Get(ctx, "job_1")
	require.NoError(t, err)
	assert.Equal(t, 40, got.Progress)
	assert.Equal(t, models.JobStatusProcessing, got.Status)
}

func TestLedger_ProgressDroppedOnTerminal(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	record := models.NewJobRecord("job_1", "proj_1", models.KindVideoGeneration, nil)
	record.Status = models.JobStatusCompleted
	record.Progress = 100
	require.NoError(t, ledger.Put(ctx, record))

	require.NoError(t, ledger.UpdateProgress(ctx, "job_1", 50))

	got, err := ledger.Get(ctx, "job_1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
}

func TestLedger_ProgressClampedTo100(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Put(ctx, models.NewJobRecord("job_1", "proj_1", models.KindVideoGeneration, nil)))
	require.NoError(t, ledger.UpdateProgress(ctx, "job_1", 150))

	got, err := ledger.Get(ctx, "job_1")
	require.NoError(t, err)
	assert.Equal(t, 100, got.Progress)
}

func TestLedger_ListByProject(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Put(ctx, models.NewJobRecord("job_1", "proj_1", models.KindCharacterGeneration, nil)))
	require.NoError(t, ledger.Put(ctx, models.NewJobRecord("job_2", "proj_1", models.KindSceneGeneration, nil)))
	require.NoError(t, ledger.Put(ctx, models.NewJobRecord("job_3", "proj_2", models.KindSceneGeneration, nil)))

	records, err := ledger.ListByProject(ctx, "proj_1")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = ledger.ListByProject(ctx, "proj_empty")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLedger_ListByStatus(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()

	pending := models.NewJobRecord("job_1", "proj_1", models.KindCharacterGeneration, nil)
	require.NoError(t, ledger.Put(ctx, pending))

	processing := models.NewJobRecord("job_2", "proj_1", models.KindSceneGeneration, nil)
	processing.Status = models.JobStatusProcessing
	require.NoError(t, ledger.Put(ctx, processing))

	records, err := ledger.ListByStatus(ctx, models.JobStatusProcessing)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "job_2", records[0].ID)
}
