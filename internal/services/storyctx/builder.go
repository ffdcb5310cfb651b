// -----------------------------------------------------------------------
// Context builder - assembles the ancestor snapshot each generation stage
// sees. Scope widens down the hierarchy: characters see the project,
// objects add characters, scenes add objects, frames add their scene.
// -----------------------------------------------------------------------

package storyctx

import (
	"context"
	"fmt"
	"strings"

	"github.com/storymill/storymill/internal/interfaces"
	"github.com/storymill/storymill/internal/models"
	"github.com/ternarybob/arbor"
)

// Builder assembles context snapshots from live entity reads. Snapshots are
// ephemeral; only the scene-to-frame cascade pins one.
type Builder struct {
	entities interfaces.EntityStorage
	logger   arbor.ILogger
}

// NewBuilder creates a context builder over the entity store.
func NewBuilder(entities interfaces.EntityStorage, logger arbor.ILogger) *Builder {
	return &Builder{entities: entities, logger: logger}
}

// BuildCharacterContext returns project-level context only. An empty project
// with no prior entities is a valid starting state.
func (b *Builder) BuildCharacterContext(ctx context.Context, projectID string) (*models.ContextSnapshot, error) {
	project, err := b.entities.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project for context: %w", err)
	}
	return &models.ContextSnapshot{
		ProjectSummary: project.Summary,
		Plot:           project.Plot,
	}, nil
}

// BuildObjectContext returns project context plus all existing characters.
func (b *Builder) BuildObjectContext(ctx context.Context, projectID string) (*models.ContextSnapshot, error) {
	snapshot, err := b.BuildCharacterContext(ctx, projectID)
	if err != nil {
		return nil, err
	}

	characters, err := b.entities.ListCharacters(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list characters for context: %w", err)
	}
	for _, c := range characters {
		snapshot.Characters = append(snapshot.Characters, models.ReduceCharacter(c))
	}
	return snapshot, nil
}

// BuildSceneContext returns project context plus all characters and objects.
func (b *Builder) BuildSceneContext(ctx context.Context, projectID string) (*models.ContextSnapshot, error) {
	snapshot, err := b.BuildObjectContext(ctx, projectID)
	if err != nil {
		return nil, err
	}

	objects, err := b.entities.ListObjects(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects for context: %w", err)
	}
	for _, o := range objects {
		snapshot.Objects = append(snapshot.Objects, models.ReduceObject(o))
	}
	return snapshot, nil
}

// BuildFrameContext returns scene-level context narrowed to the frame's own
// scene. Sibling scenes are excluded.
func (b *Builder) BuildFrameContext(ctx context.Context, projectID, sceneID string) (*models.ContextSnapshot, error) {
	snapshot, err := b.BuildSceneContext(ctx, projectID)
	if err != nil {
		return nil, err
	}

	scene, err := b.entities.GetScene(ctx, sceneID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scene for context: %w", err)
	}
	snapshot.Scenes = []models.ContextScene{models.ReduceScene(scene)}
	return snapshot, nil
}

// FormatForPrompt renders a snapshot as the prompt preamble. Empty sections
// are omitted entirely rather than rendered as empty headers.
func FormatForPrompt(snapshot *models.ContextSnapshot) string {
	if snapshot == nil {
		return ""
	}

	var sb strings.Builder

	if snapshot.ProjectSummary != "" {
		sb.WriteString("Project Summary: ")
		sb.WriteString(snapshot.ProjectSummary)
		sb.WriteString("\n")
	}
	if snapshot.Plot != "" {
		sb.WriteString("Plot: ")
		sb.WriteString(snapshot.Plot)
		sb.WriteString("\n")
	}

	if len(snapshot.Characters) > 0 {
		sb.WriteString("\nCharacters:\n")
		for _, c := range snapshot.Characters {
			sb.WriteString(fmt.Sprintf("- <|character_%s|> %s: %s", c.ID, c.Name, c.Description))
			if c.Personality != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", c.Personality))
			}
			sb.WriteString("\n")
		}
	}

	if len(snapshot.Objects) > 0 {
		sb.WriteString("\nObjects:\n")
		for _, o := range snapshot.Objects {
			sb.WriteString(fmt.Sprintf("- <|object_%s|> %s: %s", o.ID, o.Type, o.Description))
			if o.EnvironmentalContext != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", o.EnvironmentalContext))
			}
			sb.WriteString("\n")
		}
	}

	if len(snapshot.Scenes) > 0 {
		sb.WriteString("\nCurrent Scene:\n")
		for _, s := range snapshot.Scenes {
			if s.ConcisePlot != "" {
				sb.WriteString(s.ConcisePlot)
				sb.WriteString("\n")
			}
			if s.DetailedPlot != "" {
				sb.WriteString(s.DetailedPlot)
				sb.WriteString("\n")
			}
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}
