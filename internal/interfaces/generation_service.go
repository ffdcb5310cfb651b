package interfaces

import "context"

// VideoOptions tunes a video generation call.
type VideoOptions struct {
	DurationSeconds int
	AspectRatio     string
}

// GenerationService is the external generative collaborator. Provider errors
// (quota, billing, invalid input) are all propagated identically; the worker
// failure path treats them the same.
type GenerationService interface {
	// GenerateText returns a free-form completion for the prompt.
	GenerateText(ctx context.Context, prompt, systemPrompt string) (string, error)

	// GenerateStructured returns a JSON object conforming to the supplied
	// schema description.
	GenerateStructured(ctx context.Context, prompt string, schema map[string]interface{}, systemPrompt string) (map[string]interface{}, error)

	// GenerateImage returns raw image bytes for the prompt.
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)

	// GenerateVideo returns a URL for the rendered clip. imageURL optionally
	// seeds image-to-video generation.
	GenerateVideo(ctx context.Context, prompt, imageURL string, opts VideoOptions) (string, error)
}
