package workers

import (
	"encoding/json"
	"fmt"

	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
	"github.com/storymill/storymill/internal/services/generation"
	"github.com/storymill/storymill/internal/services/storyctx"
	"github.com/ternarybob/arbor"
)

// Deps bundles the collaborators shared by every kind processor.
type Deps struct {
	Entities  interfaces.EntityStorage
	Media     interfaces.MediaStorage
	Builder   *storyctx.Builder
	Resolver  *storyctx.Resolver
	Generator interfaces.GenerationService
	Prompts   *generation.PromptLibrary
	Logger    arbor.ILogger
}

// decodeAs unmarshals a queue payload into the concrete input for the kind
// and re-checks the type, so a mis-routed message fails the attempt instead
// of panicking a worker.
func decodeAs[T any](kind models.JobKind, payload json.RawMessage) (*T, error) {
	input, err := models.DecodeInput(kind, payload)
	if err != nil {
		return nil, err
	}
	typed, ok := input.(*T)
	if !ok {
		return nil, fmt.Errorf("unexpected payload type for %s", kind)
	}
	return typed, nil
}
