package generation

import (
	"fmt"

	"github.com/storymill/storymill/internal/common"
	"github.com/storymill/storymill/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// NewGenerationService creates the configured provider. The provider is fixed
// at startup; workers never select one per call.
func NewGenerationService(config *common.Config, logger arbor.ILogger) (interfaces.GenerationService, error) {
	switch config.Generation.Provider {
	case "gemini":
		return NewGeminiService(config, logger)
	case "claude":
		return NewClaudeService(config, logger)
	default:
		return nil, fmt.Errorf("unknown generation provider: %s", config.Generation.Provider)
	}
}
