package workers

import (
	"context"
	"fmt"

	"github.com/storymill/storymill/internal/models"
	"github.com/storymill/storymill/internal/services/storyctx"
)

var sceneSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"concise_plot":  map[string]interface{}{"type": "string"},
		"detailed_plot": map[string]interface{}{"type": "string"},
	},
	"required": []string{"concise_plot", "detailed_plot"},
}

// SceneWorker generates one scene of the story. Completion triggers the
// scene-to-frame cascade downstream; this worker only produces the entity.
type SceneWorker struct {
	deps Deps
}

// NewSceneWorker creates the scene-generation processor.
func NewSceneWorker(deps Deps) *SceneWorker {
	return &SceneWorker{deps: deps}
}

func (w *SceneWorker) Kind() models.JobKind {
	return models.KindSceneGeneration
}

func (w *SceneWorker) Process(ctx context.Context, msg *models.QueueMessage, report ProgressFunc) (map[string]interface{}, error) {
	input, err := decodeAs[models.SceneInput](w.Kind(), msg.Payload)
	if err != nil {
		return nil, err
	}
	report(10)

	snapshot, err := w.deps.Builder.BuildSceneContext(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}

	prompt := w.deps.Resolver.Inject(ctx, input.Prompt)
	fullPrompt := fmt.Sprintf("%s\n\nScene brief: %s", storyctx.FormatForPrompt(snapshot), prompt)

	result, err := w.deps.Generator.GenerateStructured(ctx, fullPrompt, sceneSchema, w.deps.Prompts.SystemPrompt(w.Kind()))
	if err != nil {
		return nil, fmt.Errorf("scene generation failed: %w", err)
	}
	report(70)

	scene := &models.Scene{
		ID:           models.NewEntityID(),
		ProjectID:    input.ProjectID,
		Order:        input.Order,
		ConcisePlot:  stringField(result, "concise_plot"),
		DetailedPlot: stringField(result, "detailed_plot"),
		Duration:     input.Duration,
	}
	if scene.ConcisePlot == "" || scene.DetailedPlot == "" {
		return nil, fmt.Errorf("scene generation returned incomplete fields")
	}

	if err := w.deps.Entities.SaveScene(ctx, scene); err != nil {
		return nil, fmt.Errorf("failed to save scene: %w", err)
	}
	report(95)

	return map[string]interface{}{
		"scene_id": scene.ID,
		"order":    scene.Order,
		"duration": scene.EffectiveDuration(),
	}, nil
}
