// -----------------------------------------------------------------------
// Reference resolver - entity reference tokens embedded in prompt text
// -----------------------------------------------------------------------

package storyctx

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/storymill/storymill/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// Reference tokens take the form <|character_<id>|> or <|object_<id>|> where
// the id is hex digits (either case) and hyphens, matching the uuid ids
// NewEntityID produces. Anything else inside the delimiters is not a token
// and is left alone.
var (
	characterRefPattern = regexp.MustCompile(`<\|character_([0-9a-fA-F-]+)\|>`)
	objectRefPattern    = regexp.MustCompile(`<\|object_([0-9a-fA-F-]+)\|>`)
)

// ParseReferencedIDs extracts the character and object ids referenced in
// text, de-duplicated in order of first appearance. Malformed tokens are
// silently ignored.
func ParseReferencedIDs(text string) (characterIDs, objectIDs []string) {
	characterIDs = extractIDs(characterRefPattern, text)
	objectIDs = extractIDs(objectRefPattern, text)
	return characterIDs, objectIDs
}

func extractIDs(pattern *regexp.Regexp, text string) []string {
	matches := pattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		ids = append(ids, m[1])
	}
	return ids
}

// Resolver replaces reference tokens with entity descriptions read from
// storage.
type Resolver struct {
	entities interfaces.EntityStorage
	logger   arbor.ILogger
}

// NewResolver creates a reference resolver over the entity store.
func NewResolver(entities interfaces.EntityStorage, logger arbor.ILogger) *Resolver {
	return &Resolver{entities: entities, logger: logger}
}

// Inject replaces each resolvable reference token with the entity's
// description. Unresolvable tokens are left intact so the text can be
// re-injected after the entity appears. Injection is idempotent: replaced
// tokens no longer match, untouched tokens resolve the same way again.
func (r *Resolver) Inject(ctx context.Context, text string) string {
	text = characterRefPattern.ReplaceAllStringFunc(text, func(token string) string {
		id := characterRefPattern.FindStringSubmatch(token)[1]
		c, err := r.entities.GetCharacter(ctx, id)
		if err != nil {
			if !errors.Is(err, interfaces.ErrEntityNotFound) {
				r.logger.Warn().Err(err).Str("character_id", id).Msg("Failed to resolve character reference")
			}
			return token
		}
		return fmt.Sprintf("%s (%s)", c.Name, c.Description)
	})

	text = objectRefPattern.ReplaceAllStringFunc(text, func(token string) string {
		id := objectRefPattern.FindStringSubmatch(token)[1]
		o, err := r.entities.GetObject(ctx, id)
		if err != nil {
			if !errors.Is(err, interfaces.ErrEntityNotFound) {
				r.logger.Warn().Err(err).Str("object_id", id).Msg("Failed to resolve object reference")
			}
			return token
		}
		return fmt.Sprintf("%s (%s)", o.Type, o.Description)
	})

	return text
}
