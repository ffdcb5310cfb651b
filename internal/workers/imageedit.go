package workers

import (
	"context"
	"errors"
	"fmt"

	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
)

// ImageEditWorker regenerates a character's or object's image with an edit
// instruction applied, keeping the entity's identity from its stored
// description, and points the entity at the new asset.
type ImageEditWorker struct {
	deps Deps
}

// NewImageEditWorker creates the image-editing processor.
func NewImageEditWorker(deps Deps) *ImageEditWorker {
	return &ImageEditWorker{deps: deps}
}

func (w *ImageEditWorker) Kind() models.JobKind {
	return models.KindImageEditing
}

func (w *ImageEditWorker) Process(ctx context.Context, msg *models.QueueMessage, report ProgressFunc) (map[string]interface{}, error) {
	input, err := decodeAs[models.ImageEditInput](w.Kind(), msg.Payload)
	if err != nil {
		return nil, err
	}
	report(10)

	prompt, save, err := w.resolveEntity(ctx, input)
	if err != nil {
		return nil, err
	}

	imageData, err := w.deps.Generator.GenerateImage(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("image edit generation failed: %w", err)
	}
	report(70)

	mediaURL, err := w.deps.Media.Save(ctx, input.ProjectID, "edits", models.NewEntityID()+".png", imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to save edited image: %w", err)
	}

	if err := save(mediaURL); err != nil {
		return nil, fmt.Errorf("failed to update entity media: %w", err)
	}
	report(95)

	return map[string]interface{}{
		"entity_id": input.EntityID,
		"media_url": mediaURL,
	}, nil
}

// resolveEntity finds the character or object behind the edit and returns
// the identity-preserving prompt plus a closure that repoints its media URL.
func (w *ImageEditWorker) resolveEntity(ctx context.Context, input *models.ImageEditInput) (string, func(string) error, error) {
	if c, err := w.deps.Entities.GetCharacter(ctx, input.EntityID); err == nil {
		prompt := fmt.Sprintf("Character portrait of %s: %s. Edit: %s", c.Name, c.Description, input.Instruction)
		return prompt, func(url string) error {
			c.MediaURL = url
			return w.deps.Entities.SaveCharacter(ctx, c)
		}, nil
	} else if !errors.Is(err, interfaces.ErrEntityNotFound) {
		return "", nil, err
	}

	if o, err := w.deps.Entities.GetObject(ctx, input.EntityID); err == nil {
		prompt := fmt.Sprintf("Reference image of %s: %s. Edit: %s", o.Type, o.Description, input.Instruction)
		return prompt, func(url string) error {
			o.MediaURL = url
			return w.deps.Entities.SaveObject(ctx, o)
		}, nil
	} else if !errors.Is(err, interfaces.ErrEntityNotFound) {
		return "", nil, err
	}

	return "", nil, fmt.Errorf("no character or object with id %s", input.EntityID)
}
