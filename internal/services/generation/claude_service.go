// -----------------------------------------------------------------------
// Claude generation service - text generation via the Anthropic SDK.
// Claude has no image or video models; those calls fail fast so the
// worker's normal failure path reports them.
// -----------------------------------------------------------------------

package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/storymill/storymill/internal/common"
	"github.com/storymill/storymill/internal/interfaces"
	"github.com/ternarybob/arbor"
)

const claudeMaxTokens = 4096

// ClaudeService implements the GenerationService interface using Claude
// models for text and structured generation.
type ClaudeService struct {
	config  *common.GenerationConfig
	logger  arbor.ILogger
	client  *anthropic.Client
	timeout time.Duration
}

// NewClaudeService creates a new Claude generation service instance.
func NewClaudeService(config *common.Config, logger arbor.ILogger) (*ClaudeService, error) {
	apiKey := config.Generation.ClaudeAPIKey
	if apiKey == "" {
		return nil, fmt.Errorf("Claude API key is required for generation service (set STORYMILL_CLAUDE_API_KEY or generation.claude_api_key in config)")
	}

	if config.Generation.TextModel == "" {
		config.Generation.TextModel = "claude-sonnet-4-20250514"
	}

	timeout, err := time.ParseDuration(config.Generation.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Generation.Timeout, err)
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	logger.Info().
		Str("text_model", config.Generation.TextModel).
		Dur("timeout", timeout).
		Msg("Claude generation service initialized")

	return &ClaudeService{
		config:  &config.Generation,
		logger:  logger,
		client:  &client,
		timeout: timeout,
	}, nil
}

// GenerateText returns a free-form completion for the prompt.
func (s *ClaudeService) GenerateText(ctx context.Context, prompt, systemPrompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.TextModel),
		MaxTokens: int64(claudeMaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
	}

	resp, err := s.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return "", fmt.Errorf("text generation failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no response generated from text model")
	}
	return sb.String(), nil
}

// GenerateStructured returns a JSON object conforming to the supplied schema
// description.
func (s *ClaudeService) GenerateStructured(ctx context.Context, prompt string, schema map[string]interface{}, systemPrompt string) (map[string]interface{}, error) {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response schema: %w", err)
	}

	fullPrompt := fmt.Sprintf("%s\n\nRespond with only a JSON object matching this schema, no prose:\n%s", prompt, string(schemaJSON))
	text, err := s.GenerateText(ctx, fullPrompt, systemPrompt)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(stripJSONFences(text)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse structured response: %w", err)
	}
	return result, nil
}

// GenerateImage is unsupported on the Claude provider.
func (s *ClaudeService) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	return nil, fmt.Errorf("image generation is not supported by the claude provider")
}

// GenerateVideo is unsupported on the Claude provider.
func (s *ClaudeService) GenerateVideo(ctx context.Context, prompt, imageURL string, opts interfaces.VideoOptions) (string, error) {
	return "", fmt.Errorf("video generation is not supported by the claude provider")
}

var _ interfaces.GenerationService = (*ClaudeService)(nil)
