// -----------------------------------------------------------------------
// Cascade trigger - spawns downstream jobs when an upstream stage
// completes. Scene completion fans out to frames; frame completion spawns
// exactly one video job. Failures never cascade.
// -----------------------------------------------------------------------

package cascade

import (
	"context"

	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
	"github.com/storymill/storymill/internal/services/storyctx"
	"github.com/ternarybob/arbor"
)

// Trigger listens for job completion events and submits the downstream jobs
// of the pipeline. A cascade enqueue failure is logged and dropped; the
// upstream job stays completed.
type Trigger struct {
	jobs     interfaces.JobService
	entities interfaces.EntityStorage
	builder  *storyctx.Builder
	resolver *storyctx.Resolver
	logger   arbor.ILogger
}

// NewTrigger creates the cascade trigger.
func NewTrigger(jobs interfaces.JobService, entities interfaces.EntityStorage, builder *storyctx.Builder, resolver *storyctx.Resolver, logger arbor.ILogger) *Trigger {
	return &Trigger{
		jobs:     jobs,
		entities: entities,
		builder:  builder,
		resolver: resolver,
		logger:   logger,
	}
}

// Attach subscribes the trigger to completion events. Only completions
// cascade; the trigger never subscribes to failures.
func (t *Trigger) Attach(events interfaces.EventService) error {
	return events.Subscribe(interfaces.EventJobCompleted, t.handleCompleted)
}

func (t *Trigger) handleCompleted(ctx context.Context, event interfaces.Event) error {
	kind, _ := event.Payload["kind"].(string)
	switch models.JobKind(kind) {
	case models.KindSceneGeneration:
		t.cascadeScene(ctx, event)
	case models.KindFrameGeneration:
		t.cascadeFrame(ctx, event)
	}
	return nil
}

// cascadeScene spawns ceil(duration/chunk) frame jobs for a completed scene.
// The scene context is built once here and pinned onto every frame job so
// all frames of the scene see identical context regardless of what lands in
// storage while they wait.
func (t *Trigger) cascadeScene(ctx context.Context, event interfaces.Event) {
	projectID, _ := event.Payload["project_id"].(string)
	sceneID := outputString(event, "scene_id")
	if sceneID == "" {
		t.logger.Warn().Str("project_id", projectID).Msg("Scene completion without scene_id, skipping cascade")
		return
	}

	scene, err := t.entities.GetScene(ctx, sceneID)
	if err != nil {
		t.logger.Error().Err(err).Str("scene_id", sceneID).Msg("Failed to load scene for cascade")
		return
	}

	snapshot, err := t.builder.BuildFrameContext(ctx, projectID, sceneID)
	if err != nil {
		t.logger.Error().Err(err).Str("scene_id", sceneID).Msg("Failed to build scene context for cascade")
		return
	}

	frameCount := FrameCount(scene.EffectiveDuration())

	for i := 1; i <= frameCount; i++ {
		input := &models.FrameInput{
			ProjectID:    projectID,
			SceneID:      sceneID,
			FrameNumber:  i,
			SceneContext: snapshot,
		}
		jobID, err := t.jobs.Submit(ctx, models.KindFrameGeneration, input)
		if err != nil {
			t.logger.Error().Err(err).
				Str("scene_id", sceneID).
				Int("frame_number", i).
				Msg("Failed to enqueue cascaded frame job")
			continue
		}
		t.logger.Info().
			Str("scene_id", sceneID).
			Str("job_id", jobID).
			Int("frame_number", i).
			Int("frame_count", frameCount).
			Msg("Cascaded frame job from scene completion")
	}
}

// cascadeFrame spawns exactly one video job for a completed frame. The
// frame's video prompt has its reference tokens resolved against current
// entities before it rides to the video model.
func (t *Trigger) cascadeFrame(ctx context.Context, event interfaces.Event) {
	projectID, _ := event.Payload["project_id"].(string)
	frameID := outputString(event, "frame_id")
	if frameID == "" {
		t.logger.Warn().Str("project_id", projectID).Msg("Frame completion without frame_id, skipping cascade")
		return
	}

	frame, err := t.entities.GetFrame(ctx, frameID)
	if err != nil {
		t.logger.Error().Err(err).Str("frame_id", frameID).Msg("Failed to load frame for cascade")
		return
	}

	prompt := t.resolver.Inject(ctx, frame.VideoPrompt)
	input := &models.VideoInput{
		ProjectID: projectID,
		FrameID:   frameID,
		Prompt:    prompt,
		Duration:  frame.Duration,
		ImageURL:  frame.MediaURL,
	}

	jobID, err := t.jobs.Submit(ctx, models.KindVideoGeneration, input)
	if err != nil {
		t.logger.Error().Err(err).Str("frame_id", frameID).Msg("Failed to enqueue cascaded video job")
		return
	}
	t.logger.Info().
		Str("frame_id", frameID).
		Str("job_id", jobID).
		Msg("Cascaded video job from frame completion")
}

// FrameCount returns how many frame jobs a scene of the given duration needs:
// one per started chunk of DefaultSceneDuration seconds.
func FrameCount(duration int) int {
	if duration <= 0 {
		duration = models.DefaultSceneDuration
	}
	count := (duration + models.DefaultSceneDuration - 1) / models.DefaultSceneDuration
	if count < 1 {
		count = 1
	}
	return count
}

// outputString digs a string field out of the completion event's output map.
func outputString(event interfaces.Event, key string) string {
	output, ok := event.Payload["output"].(map[string]interface{})
	if !ok {
		return ""
	}
	value, _ := output[key].(string)
	return value
}
