package workers

import (
	"context"
	"fmt"

	"github.com/storymill/storymill/internal/models"
	"github.com/storymill/storymill/internal/services/storyctx"
)

// characterSchema is the structured response shape for character generation.
var characterSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"name":        map[string]interface{}{"type": "string"},
		"description": map[string]interface{}{"type": "string"},
		"personality": map[string]interface{}{"type": "string"},
	},
	"required": []string{"name", "description", "personality"},
}

// CharacterWorker generates a project character: structured text first, then
// a portrait still saved to media storage.
type CharacterWorker struct {
	deps Deps
}

// NewCharacterWorker creates the character-generation processor.
func NewCharacterWorker(deps Deps) *CharacterWorker {
	return &CharacterWorker{deps: deps}
}

func (w *CharacterWorker) Kind() models.JobKind {
	return models.KindCharacterGeneration
}

func (w *CharacterWorker) Process(ctx context.Context, msg *models.QueueMessage, report ProgressFunc) (map[string]interface{}, error) {
	input, err := decodeAs[models.CharacterInput](w.Kind(), msg.Payload)
	if err != nil {
		return nil, err
	}
	report(10)

	snapshot, err := w.deps.Builder.BuildCharacterContext(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}

	prompt := w.deps.Resolver.Inject(ctx, input.Prompt)
	fullPrompt := fmt.Sprintf("%s\n\nCharacter brief: %s", storyctx.FormatForPrompt(snapshot), prompt)

	result, err := w.deps.Generator.GenerateStructured(ctx, fullPrompt, characterSchema, w.deps.Prompts.SystemPrompt(w.Kind()))
	if err != nil {
		return nil, fmt.Errorf("character generation failed: %w", err)
	}
	report(50)

	character := &models.Character{
		ID:          models.NewEntityID(),
		ProjectID:   input.ProjectID,
		Name:        stringField(result, "name"),
		Description: stringField(result, "description"),
		Personality: stringField(result, "personality"),
	}
	if character.Name == "" || character.Description == "" {
		return nil, fmt.Errorf("character generation returned incomplete fields")
	}

	imagePrompt := fmt.Sprintf("Character portrait of %s: %s", character.Name, character.Description)
	imageData, err := w.deps.Generator.GenerateImage(ctx, imagePrompt)
	if err != nil {
		return nil, fmt.Errorf("character portrait generation failed: %w", err)
	}
	report(80)

	mediaURL, err := w.deps.Media.Save(ctx, input.ProjectID, "characters", character.ID+".png", imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to save character portrait: %w", err)
	}
	character.MediaURL = mediaURL

	if err := w.deps.Entities.SaveCharacter(ctx, character); err != nil {
		return nil, fmt.Errorf("failed to save character: %w", err)
	}
	report(95)

	return map[string]interface{}{
		"character_id": character.ID,
		"name":         character.Name,
		"media_url":    character.MediaURL,
	}, nil
}

// stringField reads a string out of a structured generation result.
func stringField(result map[string]interface{}, key string) string {
	value, _ := result[key].(string)
	return value
}
