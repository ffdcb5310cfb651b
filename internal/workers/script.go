package workers

import (
	"context"
	"fmt"

	"github.com/storymill/storymill/internal/models"
	"github.com/storymill/storymill/internal/services/storyctx"
)

// ScriptWorker generates the full narration script for a project as free
// text and stores it as a media asset.
type ScriptWorker struct {
	deps Deps
}

// NewScriptWorker creates the script-generation processor.
func NewScriptWorker(deps Deps) *ScriptWorker {
	return &ScriptWorker{deps: deps}
}

func (w *ScriptWorker) Kind() models.JobKind {
	return models.KindScriptGeneration
}

func (w *ScriptWorker) Process(ctx context.Context, msg *models.QueueMessage, report ProgressFunc) (map[string]interface{}, error) {
	input, err := decodeAs[models.ScriptInput](w.Kind(), msg.Payload)
	if err != nil {
		return nil, err
	}
	report(10)

	snapshot, err := w.deps.Builder.BuildSceneContext(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}

	prompt := w.deps.Resolver.Inject(ctx, input.Prompt)
	fullPrompt := fmt.Sprintf("%s\n\nScript brief: %s", storyctx.FormatForPrompt(snapshot), prompt)

	script, err := w.deps.Generator.GenerateText(ctx, fullPrompt, w.deps.Prompts.SystemPrompt(w.Kind()))
	if err != nil {
		return nil, fmt.Errorf("script generation failed: %w", err)
	}
	report(70)

	scriptID := models.NewEntityID()
	mediaURL, err := w.deps.Media.Save(ctx, input.ProjectID, "scripts", scriptID+".txt", []byte(script))
	if err != nil {
		return nil, fmt.Errorf("failed to save script: %w", err)
	}
	report(95)

	return map[string]interface{}{
		"script_id":  scriptID,
		"script_url": mediaURL,
		"length":     len(script),
	}, nil
}
