package workers

import (
	"context"
	"fmt"

	"github.com/storymill/storymill/internal/models"
	"github.com/storymill/storymill/internal/services/storyctx"
)

var frameSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"plot":         map[string]interface{}{"type": "string"},
		"video_prompt": map[string]interface{}{"type": "string"},
	},
	"required": []string{"plot", "video_prompt"},
}

// FrameWorker generates one shot of a scene: shot description, video prompt
// and a keyframe still. Cascaded frames arrive with the scene context pinned
// at scene-completion time; only a directly submitted frame rebuilds it.
type FrameWorker struct {
	deps Deps
}

// NewFrameWorker creates the frame-generation processor.
func NewFrameWorker(deps Deps) *FrameWorker {
	return &FrameWorker{deps: deps}
}

func (w *FrameWorker) Kind() models.JobKind {
	return models.KindFrameGeneration
}

func (w *FrameWorker) Process(ctx context.Context, msg *models.QueueMessage, report ProgressFunc) (map[string]interface{}, error) {
	input, err := decodeAs[models.FrameInput](w.Kind(), msg.Payload)
	if err != nil {
		return nil, err
	}
	report(10)

	snapshot := input.SceneContext
	if snapshot == nil {
		snapshot, err = w.deps.Builder.BuildFrameContext(ctx, input.ProjectID, input.SceneID)
		if err != nil {
			return nil, err
		}
	}

	fullPrompt := fmt.Sprintf("%s\n\nWrite shot %d of this scene.", storyctx.FormatForPrompt(snapshot), input.FrameNumber)

	result, err := w.deps.Generator.GenerateStructured(ctx, fullPrompt, frameSchema, w.deps.Prompts.SystemPrompt(w.Kind()))
	if err != nil {
		return nil, fmt.Errorf("frame generation failed: %w", err)
	}
	report(50)

	frame := &models.Frame{
		ID:          models.NewEntityID(),
		ProjectID:   input.ProjectID,
		SceneID:     input.SceneID,
		FrameNumber: input.FrameNumber,
		Plot:        stringField(result, "plot"),
		VideoPrompt: stringField(result, "video_prompt"),
		Duration:    models.DefaultSceneDuration,
	}
	if frame.Plot == "" || frame.VideoPrompt == "" {
		return nil, fmt.Errorf("frame generation returned incomplete fields")
	}

	imagePrompt := w.deps.Resolver.Inject(ctx, frame.Plot)
	imageData, err := w.deps.Generator.GenerateImage(ctx, imagePrompt)
	if err != nil {
		return nil, fmt.Errorf("frame keyframe generation failed: %w", err)
	}
	report(80)

	mediaURL, err := w.deps.Media.Save(ctx, input.ProjectID, "frames", frame.ID+".png", imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to save frame keyframe: %w", err)
	}
	frame.MediaURL = mediaURL

	if err := w.deps.Entities.SaveFrame(ctx, frame); err != nil {
		return nil, fmt.Errorf("failed to save frame: %w", err)
	}
	report(95)

	return map[string]interface{}{
		"frame_id":     frame.ID,
		"scene_id":     frame.SceneID,
		"frame_number": frame.FrameNumber,
		"media_url":    frame.MediaURL,
	}, nil
}
