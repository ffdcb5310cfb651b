// -----------------------------------------------------------------------
// Context snapshot - ancestor data assembled per generation call
// -----------------------------------------------------------------------

package models

// ContextCharacter is a character reduced to its prompting fields.
type ContextCharacter struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Personality string `json:"personality"`
}

// ContextObject is an object reduced to its prompting fields.
type ContextObject struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Description          string `json:"description"`
	EnvironmentalContext string `json:"environmental_context"`
}

// ContextScene is a scene reduced to its prompting fields.
type ContextScene struct {
	ID           string `json:"id"`
	ConcisePlot  string `json:"concise_plot"`
	DetailedPlot string `json:"detailed_plot"`
}

// ContextSnapshot carries the ancestor context for one generation call. It is
// ephemeral: rebuilt from live entity reads each time a stage executes, never
// persisted, except when a cascade pins the scene-level snapshot onto the
// frame jobs it spawns.
type ContextSnapshot struct {
	ProjectSummary string             `json:"project_summary"`
	Plot           string             `json:"plot"`
	Characters     []ContextCharacter `json:"characters"`
	Objects        []ContextObject    `json:"objects"`
	Scenes         []ContextScene     `json:"scenes,omitempty"`
}

// ReduceCharacter trims a character entity to its context form.
func ReduceCharacter(c *Character) ContextCharacter {
	return ContextCharacter{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Personality: c.Personality,
	}
}

// ReduceObject trims an object entity to its context form.
func ReduceObject(o *SceneObject) ContextObject {
	return ContextObject{
		ID:                   o.ID,
		Type:                 o.Type,
		Description:          o.Description,
		EnvironmentalContext: o.EnvironmentalContext,
	}
}

// ReduceScene trims a scene entity to its context form.
func ReduceScene(s *Scene) ContextScene {
	return ContextScene{
		ID:           s.ID,
		ConcisePlot:  s.ConcisePlot,
		DetailedPlot: s.DetailedPlot,
	}
}
