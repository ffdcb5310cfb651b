package status

import (
	"context"
	"sync"
	"testing"

	"github.com/storymill/storymill/internal/common"
	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
	"github.com/storymill/storymill/internal/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureEvents records published events synchronously so tests can assert on
// them without racing the async bus.
type captureEvents struct {
	mu     sync.Mutex
	events []interfaces.Event
}

func (c *captureEvents) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	return nil
}

func (c *captureEvents) Publish(ctx context.Context, event interfaces.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureEvents) PublishSync(ctx context.Context, event interfaces.Event) error {
	return c.Publish(ctx, event)
}

func (c *captureEvents) Close() error { return nil }

func (c *captureEvents) all() []interfaces.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interfaces.Event(nil), c.events...)
}

var _ interfaces.EventService = (*captureEvents)(nil)

func newTestBridge(t *testing.T) (*Bridge, interfaces.LedgerStorage, *captureEvents) {
	t.Helper()
	logger := common.GetLogger()

	db, err := badger.NewBadgerDB(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ledger := badger.NewLedgerStorage(db, logger)
	events := &captureEvents{}
	return NewBridge(ledger, events, logger), ledger, events
}

func pendingRecord(t *testing.T, ledger interfaces.LedgerStorage, jobID string) *models.JobRecord {
	t.Helper()
	record := models.NewJobRecord(jobID, "p1", models.KindSceneGeneration, map[string]interface{}{"prompt": "x"})
	require.NoError(t, ledger.Put(context.Background(), record))
	return record
}

func TestNormalizeOutput(t *testing.T) {
	assert.Nil(t, NormalizeOutput(nil))
	assert.Equal(t, map[string]interface{}{"result": "done"}, NormalizeOutput("done"))

	passthrough := map[string]interface{}{"scene_id": "s1"}
	assert.Equal(t, passthrough, NormalizeOutput(passthrough))

	assert.Equal(t, map[string]interface{}{"raw_return": 42}, NormalizeOutput(42))
}

func TestHandleCompleted_WritesTerminalRecordAndPublishes(t *testing.T) {
	bridge, ledger, events := newTestBridge(t)
	pendingRecord(t, ledger, "job_1")

	bridge.handleCompleted("job_1", map[string]interface{}{"scene_id": "s1"})

	record, err := ledger.Get(context.Background(), "job_1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, record.Status)
	assert.Equal(t, 100, record.Progress)
	assert.Equal(t, map[string]interface{}{"scene_id": "s1"}, record.OutputData)
	assert.Empty(t, record.ErrorMessage)

	published := events.all()
	require.Len(t, published, 1)
	assert.Equal(t, interfaces.EventJobCompleted, published[0].Type)
	assert.Equal(t, "job_1", published[0].Payload["job_id"])
	assert.Equal(t, string(models.KindSceneGeneration), published[0].Payload["kind"])
	assert.Equal(t, "p1", published[0].Payload["project_id"])
	assert.Equal(t, map[string]interface{}{"scene_id": "s1"}, published[0].Payload["output"])
}

func TestHandleCompleted_UnknownJobPublishesNothing(t *testing.T) {
	bridge, _, events := newTestBridge(t)

	bridge.handleCompleted("job_ghost", map[string]interface{}{})

	assert.Empty(t, events.all())
}

func TestHandleCompleted_LateSignalForCancelledJobIsDropped(t *testing.T) {
	bridge, ledger, events := newTestBridge(t)
	ctx := context.Background()

	record := pendingRecord(t, ledger, "job_1")
	record.Status = models.JobStatusFailed
	record.ErrorMessage = models.CancelledMessage
	require.NoError(t, ledger.Put(ctx, record))

	bridge.handleCompleted("job_1", map[string]interface{}{"scene_id": "s1"})

	current, err := ledger.Get(ctx, "job_1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, current.Status)
	assert.Equal(t, models.CancelledMessage, current.ErrorMessage)
	assert.Nil(t, current.OutputData)

	// No completion event means no cascade from a cancelled job.
	assert.Empty(t, events.all())
}

func TestHandleCompleted_StringResultWrapped(t *testing.T) {
	bridge, ledger, _ := newTestBridge(t)
	pendingRecord(t, ledger, "job_1")

	bridge.handleCompleted("job_1", "plain result")

	record, err := ledger.Get(context.Background(), "job_1")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"result": "plain result"}, record.OutputData)
}

func TestHandleFailed_WritesFailureAndPublishes(t *testing.T) {
	bridge, ledger, events := newTestBridge(t)
	pendingRecord(t, ledger, "job_1")

	bridge.handleFailed("job_1", "provider quota exceeded")

	record, err := ledger.Get(context.Background(), "job_1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, record.Status)
	assert.Equal(t, "provider quota exceeded", record.ErrorMessage)

	published := events.all()
	require.Len(t, published, 1)
	assert.Equal(t, interfaces.EventJobFailed, published[0].Type)
	assert.Equal(t, "provider quota exceeded", published[0].Payload["error"])
}

func TestHandleProgress_RecordsAndPublishes(t *testing.T) {
	bridge, ledger, events := newTestBridge(t)
	pendingRecord(t, ledger, "job_1")

	bridge.handleProgress("job_1", 40)

	record, err := ledger.Get(context.Background(), "job_1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, record.Status)
	assert.Equal(t, 40, record.Progress)

	published := events.all()
	require.Len(t, published, 1)
	assert.Equal(t, interfaces.EventJobProgress, published[0].Type)
	assert.Equal(t, 40, published[0].Payload["progress"])
}

func TestHandleProgress_UnknownJobPublishesNothing(t *testing.T) {
	bridge, _, events := newTestBridge(t)

	bridge.handleProgress("job_ghost", 40)

	assert.Empty(t, events.all())
}
