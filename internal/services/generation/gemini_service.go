// -----------------------------------------------------------------------
// Gemini generation service - text, structured, image and video generation
// via google.golang.org/genai
// -----------------------------------------------------------------------

package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/storymill/storymill/internal/common"
	"github.com/storymill/storymill/internal/interfaces"
	"github.com/ternarybob/arbor"
	"google.golang.org/genai"
)

// GeminiService implements the GenerationService interface using the Gemini
// API family: text models for prompts, Imagen for stills, Veo for clips.
type GeminiService struct {
	config  *common.GenerationConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
}

// NewGeminiService creates a new Gemini generation service instance.
func NewGeminiService(config *common.Config, logger arbor.ILogger) (*GeminiService, error) {
	apiKey := config.Generation.GoogleAPIKey
	if apiKey == "" {
		return nil, fmt.Errorf("Google API key is required for generation service (set STORYMILL_GOOGLE_API_KEY or generation.google_api_key in config)")
	}

	if config.Generation.TextModel == "" {
		config.Generation.TextModel = "gemini-2.0-flash"
	}
	if config.Generation.ImageModel == "" {
		config.Generation.ImageModel = "imagen-3.0-generate-002"
	}
	if config.Generation.VideoModel == "" {
		config.Generation.VideoModel = "veo-2.0-generate-001"
	}

	timeout, err := time.ParseDuration(config.Generation.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Generation.Timeout, err)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	logger.Info().
		Str("text_model", config.Generation.TextModel).
		Str("image_model", config.Generation.ImageModel).
		Str("video_model", config.Generation.VideoModel).
		Dur("timeout", timeout).
		Msg("Gemini generation service initialized")

	return &GeminiService{
		config:  &config.Generation,
		logger:  logger,
		client:  client,
		timeout: timeout,
	}, nil
}

// GenerateText returns a free-form completion for the prompt.
func (s *GeminiService) GenerateText(ctx context.Context, prompt, systemPrompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(prompt)},
		},
	}

	resp, err := s.client.Models.GenerateContent(timeoutCtx, s.config.TextModel, contents, config)
	if err != nil {
		return "", fmt.Errorf("text generation failed: %w", err)
	}

	text := extractText(resp)
	if text == "" {
		return "", fmt.Errorf("no response generated from text model")
	}
	return text, nil
}

// GenerateStructured returns a JSON object conforming to the supplied schema
// description. The schema rides along in the prompt and the model is held to
// a JSON response MIME type.
func (s *GeminiService) GenerateStructured(ctx context.Context, prompt string, schema map[string]interface{}, systemPrompt string) (map[string]interface{}, error) {
	if prompt == "" {
		return nil, fmt.Errorf("prompt cannot be empty")
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response schema: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if systemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	fullPrompt := fmt.Sprintf("%s\n\nRespond with a JSON object matching this schema:\n%s", prompt, string(schemaJSON))
	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(fullPrompt)},
		},
	}

	resp, err := s.client.Models.GenerateContent(timeoutCtx, s.config.TextModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("structured generation failed: %w", err)
	}

	text := extractText(resp)
	if text == "" {
		return nil, fmt.Errorf("no response generated from text model")
	}

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(stripJSONFences(text)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse structured response: %w", err)
	}
	return result, nil
}

// GenerateImage returns raw image bytes for the prompt.
func (s *GeminiService) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if prompt == "" {
		return nil, fmt.Errorf("prompt cannot be empty")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Models.GenerateImages(timeoutCtx, s.config.ImageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, fmt.Errorf("no image generated")
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}

// GenerateVideo returns a URL for the rendered clip. Veo operations are
// long-running; the call polls until the operation completes or the timeout
// context expires.
func (s *GeminiService) GenerateVideo(ctx context.Context, prompt, imageURL string, opts interfaces.VideoOptions) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var image *genai.Image
	if imageURL != "" {
		image = &genai.Image{GCSURI: imageURL}
	}

	config := &genai.GenerateVideosConfig{}
	if opts.AspectRatio != "" {
		config.AspectRatio = opts.AspectRatio
	}

	operation, err := s.client.Models.GenerateVideos(timeoutCtx, s.config.VideoModel, prompt, image, config)
	if err != nil {
		return "", fmt.Errorf("video generation failed: %w", err)
	}

	for !operation.Done {
		select {
		case <-timeoutCtx.Done():
			return "", fmt.Errorf("video generation timed out: %w", timeoutCtx.Err())
		case <-time.After(5 * time.Second):
		}

		operation, err = s.client.Operations.GetVideosOperation(timeoutCtx, operation, nil)
		if err != nil {
			return "", fmt.Errorf("failed to poll video operation: %w", err)
		}
	}

	if operation.Response == nil || len(operation.Response.GeneratedVideos) == 0 {
		return "", fmt.Errorf("no video generated")
	}
	video := operation.Response.GeneratedVideos[0].Video
	if video == nil || video.URI == "" {
		return "", fmt.Errorf("video operation completed without a URI")
	}
	return video.URI, nil
}

// extractText pulls the first non-empty text from a response's candidates.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
		if sb.Len() > 0 {
			break
		}
	}
	return sb.String()
}

// stripJSONFences removes markdown code fences some models wrap around JSON.
func stripJSONFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}

var _ interfaces.GenerationService = (*GeminiService)(nil)
