package workers

import (
	"context"
	"fmt"

	"github.com/storymill/storymill/internal/models"
	"github.com/storymill/storymill/internal/services/storyctx"
)

var objectSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"type":                  map[string]interface{}{"type": "string"},
		"description":           map[string]interface{}{"type": "string"},
		"environmental_context": map[string]interface{}{"type": "string"},
	},
	"required": []string{"type", "description"},
}

// ObjectWorker generates a prop or set piece with its reference image.
type ObjectWorker struct {
	deps Deps
}

// NewObjectWorker creates the object-generation processor.
func NewObjectWorker(deps Deps) *ObjectWorker {
	return &ObjectWorker{deps: deps}
}

func (w *ObjectWorker) Kind() models.JobKind {
	return models.KindObjectGeneration
}

func (w *ObjectWorker) Process(ctx context.Context, msg *models.QueueMessage, report ProgressFunc) (map[string]interface{}, error) {
	input, err := decodeAs[models.ObjectInput](w.Kind(), msg.Payload)
	if err != nil {
		return nil, err
	}
	report(10)

	snapshot, err := w.deps.Builder.BuildObjectContext(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}

	prompt := w.deps.Resolver.Inject(ctx, input.Prompt)
	fullPrompt := fmt.Sprintf("%s\n\nObject brief: %s", storyctx.FormatForPrompt(snapshot), prompt)

	result, err := w.deps.Generator.GenerateStructured(ctx, fullPrompt, objectSchema, w.deps.Prompts.SystemPrompt(w.Kind()))
	if err != nil {
		return nil, fmt.Errorf("object generation failed: %w", err)
	}
	report(50)

	object := &models.SceneObject{
		ID:                   models.NewEntityID(),
		ProjectID:            input.ProjectID,
		SceneID:              input.SceneID,
		Type:                 stringField(result, "type"),
		Description:          stringField(result, "description"),
		EnvironmentalContext: stringField(result, "environmental_context"),
	}
	if object.Type == "" || object.Description == "" {
		return nil, fmt.Errorf("object generation returned incomplete fields")
	}

	imagePrompt := fmt.Sprintf("Reference image of %s: %s", object.Type, object.Description)
	imageData, err := w.deps.Generator.GenerateImage(ctx, imagePrompt)
	if err != nil {
		return nil, fmt.Errorf("object image generation failed: %w", err)
	}
	report(80)

	mediaURL, err := w.deps.Media.Save(ctx, input.ProjectID, "objects", object.ID+".png", imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to save object image: %w", err)
	}
	object.MediaURL = mediaURL

	if err := w.deps.Entities.SaveObject(ctx, object); err != nil {
		return nil, fmt.Errorf("failed to save object: %w", err)
	}
	report(95)

	return map[string]interface{}{
		"object_id": object.ID,
		"type":      object.Type,
		"media_url": object.MediaURL,
	}, nil
}
