package workers

import (
	"context"
	"fmt"

	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
)

// VideoWorker renders a frame's clip through the video model. The prompt
// arrives with reference tokens already resolved by the cascade.
type VideoWorker struct {
	deps Deps
}

// NewVideoWorker creates the video-generation processor.
func NewVideoWorker(deps Deps) *VideoWorker {
	return &VideoWorker{deps: deps}
}

func (w *VideoWorker) Kind() models.JobKind {
	return models.KindVideoGeneration
}

func (w *VideoWorker) Process(ctx context.Context, msg *models.QueueMessage, report ProgressFunc) (map[string]interface{}, error) {
	input, err := decodeAs[models.VideoInput](w.Kind(), msg.Payload)
	if err != nil {
		return nil, err
	}
	report(10)

	duration := input.Duration
	if duration <= 0 {
		duration = models.DefaultSceneDuration
	}

	videoURL, err := w.deps.Generator.GenerateVideo(ctx, input.Prompt, input.ImageURL, interfaces.VideoOptions{
		DurationSeconds: duration,
		AspectRatio:     "16:9",
	})
	if err != nil {
		return nil, fmt.Errorf("video generation failed: %w", err)
	}
	report(80)

	video := &models.Video{
		ID:        models.NewEntityID(),
		ProjectID: input.ProjectID,
		FrameID:   input.FrameID,
		MediaURL:  videoURL,
		Duration:  duration,
	}
	if err := w.deps.Entities.SaveVideo(ctx, video); err != nil {
		return nil, fmt.Errorf("failed to save video: %w", err)
	}
	report(95)

	return map[string]interface{}{
		"video_id":  video.ID,
		"frame_id":  input.FrameID,
		"video_url": videoURL,
	}, nil
}
