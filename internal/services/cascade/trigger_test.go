package cascade

import (
	"context"
	"sync"
	"testing"

	"github.com/storymill/storymill/internal/common"
	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
	"github.com/storymill/storymill/internal/services/events"
	"github.com/storymill/storymill/internal/services/storyctx"
	"github.com/storymill/storymill/internal/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submission struct {
	Kind  models.JobKind
	Input interface{}
}

// captureJobService records submissions instead of enqueueing them.
type captureJobService struct {
	mu          sync.Mutex
	submissions []submission
}

func (s *captureJobService) Submit(ctx context.Context, kind models.JobKind, input interface{}) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, submission{Kind: kind, Input: input})
	return models.NewJobID(), nil
}

func (s *captureJobService) SubmitWithID(ctx context.Context, jobID string, kind models.JobKind, input interface{}) error {
	_, err := s.Submit(ctx, kind, input)
	return err
}

func (s *captureJobService) Status(ctx context.Context, jobID string) (*models.JobRecord, error) {
	return nil, interfaces.ErrJobNotFound
}

func (s *captureJobService) Cancel(ctx context.Context, jobID string) error { return nil }

func (s *captureJobService) ListByProject(ctx context.Context, projectID string) ([]*models.JobRecord, error) {
	return nil, nil
}

func (s *captureJobService) QueueCounts(ctx context.Context) (map[models.JobKind]interfaces.QueueCounts, error) {
	return nil, nil
}

func (s *captureJobService) all() []submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]submission(nil), s.submissions...)
}

var _ interfaces.JobService = (*captureJobService)(nil)

func newTestTrigger(t *testing.T) (*Trigger, *captureJobService, interfaces.EntityStorage, interfaces.EventService) {
	t.Helper()
	logger := common.GetLogger()

	db, err := badger.NewBadgerDB(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	entities := badger.NewEntityStorage(db, logger)
	builder := storyctx.NewBuilder(entities, logger)
	resolver := storyctx.NewResolver(entities, logger)
	jobs := &captureJobService{}

	trigger := NewTrigger(jobs, entities, builder, resolver, logger)
	eventService := events.NewService(logger)
	require.NoError(t, trigger.Attach(eventService))

	return trigger, jobs, entities, eventService
}

func completionEvent(kind models.JobKind, projectID string, output map[string]interface{}) interfaces.Event {
	return interfaces.Event{
		Type: interfaces.EventJobCompleted,
		Payload: map[string]interface{}{
			"job_id":     models.NewJobID(),
			"kind":       string(kind),
			"project_id": projectID,
			"output":     output,
		},
	}
}

func TestFrameCount(t *testing.T) {
	tests := []struct {
		duration int
		want     int
	}{
		{0, 1},
		{3, 1},
		{8, 1},
		{9, 2},
		{12, 2},
		{16, 2},
		{17, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FrameCount(tt.duration), "duration %d", tt.duration)
	}
}

func TestSceneCompletionSpawnsOneFrameJobPerChunk(t *testing.T) {
	_, jobs, entities, eventService := newTestTrigger(t)
	ctx := context.Background()

	require.NoError(t, entities.SaveProject(ctx, &models.Project{
		ID: "p1", Name: "Harbor Lights", Summary: "a lighthouse drama",
	}))
	require.NoError(t, entities.SaveScene(ctx, &models.Scene{
		ID: "s1", ProjectID: "p1", Order: 1, Duration: 16, ConcisePlot: "the storm hits",
	}))

	event := completionEvent(models.KindSceneGeneration, "p1", map[string]interface{}{"scene_id": "s1"})
	require.NoError(t, eventService.PublishSync(ctx, event))

	submissions := jobs.all()
	require.Len(t, submissions, 2)

	var snapshots []*models.ContextSnapshot
	frameNumbers := make(map[int]bool)
	for _, sub := range submissions {
		assert.Equal(t, models.KindFrameGeneration, sub.Kind)
		input, ok := sub.Input.(*models.FrameInput)
		require.True(t, ok)
		assert.Equal(t, "p1", input.ProjectID)
		assert.Equal(t, "s1", input.SceneID)
		require.NotNil(t, input.SceneContext)
		frameNumbers[input.FrameNumber] = true
		snapshots = append(snapshots, input.SceneContext)
	}
	assert.True(t, frameNumbers[1])
	assert.True(t, frameNumbers[2])

	// The scene context is built once and pinned onto every frame job.
	assert.Same(t, snapshots[0], snapshots[1])
	assert.Equal(t, "a lighthouse drama", snapshots[0].ProjectSummary)
	require.Len(t, snapshots[0].Scenes, 1)
	assert.Equal(t, "the storm hits", snapshots[0].Scenes[0].ConcisePlot)
}

func TestSceneCompletionDefaultDurationSpawnsSingleFrame(t *testing.T) {
	_, jobs, entities, eventService := newTestTrigger(t)
	ctx := context.Background()

	require.NoError(t, entities.SaveProject(ctx, &models.Project{ID: "p1", Name: "P"}))
	require.NoError(t, entities.SaveScene(ctx, &models.Scene{ID: "s1", ProjectID: "p1", Order: 1}))

	event := completionEvent(models.KindSceneGeneration, "p1", map[string]interface{}{"scene_id": "s1"})
	require.NoError(t, eventService.PublishSync(ctx, event))

	assert.Len(t, jobs.all(), 1)
}

func TestFrameCompletionSpawnsExactlyOneVideoJob(t *testing.T) {
	_, jobs, entities, eventService := newTestTrigger(t)
	ctx := context.Background()

	require.NoError(t, entities.SaveCharacter(ctx, &models.Character{
		ID: "abc", ProjectID: "p1", Name: "Mara", Description: "a sea captain",
	}))
	require.NoError(t, entities.SaveFrame(ctx, &models.Frame{
		ID:          "f1",
		SceneID:     "s1",
		FrameNumber: 1,
		VideoPrompt: "Show <|character_abc|> at the helm.",
		Duration:    8,
		MediaURL:    "/media/p1/frames/f1.png",
	}))

	event := completionEvent(models.KindFrameGeneration, "p1", map[string]interface{}{"frame_id": "f1"})
	require.NoError(t, eventService.PublishSync(ctx, event))

	submissions := jobs.all()
	require.Len(t, submissions, 1)
	assert.Equal(t, models.KindVideoGeneration, submissions[0].Kind)

	input, ok := submissions[0].Input.(*models.VideoInput)
	require.True(t, ok)
	assert.Equal(t, "f1", input.FrameID)
	assert.Equal(t, "Show Mara (a sea captain) at the helm.", input.Prompt)
	assert.Equal(t, 8, input.Duration)
	assert.Equal(t, "/media/p1/frames/f1.png", input.ImageURL)
}

func TestCompletionOfNonCascadingKindsIsIgnored(t *testing.T) {
	_, jobs, _, eventService := newTestTrigger(t)
	ctx := context.Background()

	for _, kind := range []models.JobKind{
		models.KindCharacterGeneration,
		models.KindObjectGeneration,
		models.KindVideoGeneration,
		models.KindVideoStitching,
	} {
		event := completionEvent(kind, "p1", map[string]interface{}{"id": "x"})
		require.NoError(t, eventService.PublishSync(ctx, event))
	}

	assert.Empty(t, jobs.all())
}

func TestSceneCompletionWithoutSceneIDSkipsCascade(t *testing.T) {
	_, jobs, _, eventService := newTestTrigger(t)
	ctx := context.Background()

	event := completionEvent(models.KindSceneGeneration, "p1", map[string]interface{}{})
	require.NoError(t, eventService.PublishSync(ctx, event))

	assert.Empty(t, jobs.all())
}

func TestFailureEventsNeverCascade(t *testing.T) {
	_, jobs, entities, eventService := newTestTrigger(t)
	ctx := context.Background()

	require.NoError(t, entities.SaveProject(ctx, &models.Project{ID: "p1", Name: "P"}))
	require.NoError(t, entities.SaveScene(ctx, &models.Scene{ID: "s1", ProjectID: "p1", Order: 1}))

	event := interfaces.Event{
		Type: interfaces.EventJobFailed,
		Payload: map[string]interface{}{
			"kind":       string(models.KindSceneGeneration),
			"project_id": "p1",
			"output":     map[string]interface{}{"scene_id": "s1"},
		},
	}
	require.NoError(t, eventService.PublishSync(ctx, event))

	assert.Empty(t, jobs.all())
}
