// -----------------------------------------------------------------------
// Prompt library - per-kind system prompts with YAML overrides
// -----------------------------------------------------------------------

package generation

import (
	"fmt"
	"os"

	"github.com/storymill/storymill/internal/models"
	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"
)

// defaultPrompts are the built-in system prompts per job kind. A prompts file
// overrides individual entries without replacing the rest.
var defaultPrompts = map[models.JobKind]string{
	models.KindCharacterGeneration: "You are a character designer for an animated story. Given the project context and a character brief, produce a named character with a visual description and a personality.",
	models.KindObjectGeneration:    "You are a production designer for an animated story. Given the project context and a brief, describe a prop or set piece, its type and the environment it belongs to.",
	models.KindSceneGeneration:     "You are a screenwriter for an animated story. Given the project context, write one scene with a concise plot summary and a detailed beat-by-beat description.",
	models.KindFrameGeneration:     "You are a storyboard artist. Given the scene context, describe one shot of the scene and write a video generation prompt for it. Reference characters and objects by their tokens.",
	models.KindVideoGeneration:     "Render the described shot as a short video clip.",
	models.KindVideoStitching:      "You are a video editor assembling scene clips into a final cut.",
	models.KindScriptGeneration:    "You are a screenwriter. Given the project context and a brief, write the full narration script for the story.",
	models.KindImageEditing:        "You are an image editor. Apply the requested change to the referenced image while preserving the character or object identity.",
}

// PromptLibrary resolves the system prompt used for each job kind.
type PromptLibrary struct {
	prompts map[models.JobKind]string
}

// promptsFile is the YAML shape of a prompt override file: kind -> prompt.
type promptsFile map[string]string

// LoadPrompts builds the library from defaults plus the optional YAML file.
func LoadPrompts(path string, logger arbor.ILogger) (*PromptLibrary, error) {
	prompts := make(map[models.JobKind]string, len(defaultPrompts))
	for kind, prompt := range defaultPrompts {
		prompts[kind] = prompt
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompts file %s: %w", path, err)
		}
		var overrides promptsFile
		if err := yaml.Unmarshal(data, &overrides); err != nil {
			return nil, fmt.Errorf("failed to parse prompts file %s: %w", path, err)
		}
		for key, prompt := range overrides {
			kind := models.JobKind(key)
			if !models.ValidKind(kind) {
				logger.Warn().Str("kind", key).Msg("Ignoring prompt override for unknown kind")
				continue
			}
			prompts[kind] = prompt
		}
		logger.Info().Str("path", path).Int("overrides", len(overrides)).Msg("Prompt overrides loaded")
	}

	return &PromptLibrary{prompts: prompts}, nil
}

// SystemPrompt returns the system prompt for a kind.
func (l *PromptLibrary) SystemPrompt(kind models.JobKind) string {
	return l.prompts[kind]
}
