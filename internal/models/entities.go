// -----------------------------------------------------------------------
// Entities - persisted domain objects produced by completed jobs
// Hierarchy: Project -> {Character, Object} -> Scene -> Frame -> Video
// -----------------------------------------------------------------------

package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is the root entity every pipeline run hangs off.
type Project struct {
	ID        string    `json:"id" badgerhold:"key"`
	Name      string    `json:"name"`
	Summary   string    `json:"summary"`
	Plot      string    `json:"plot"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Character is a generated cast member of a project.
type Character struct {
	ID          string    `json:"id" badgerhold:"key"`
	ProjectID   string    `json:"project_id" badgerhold:"index"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Personality string    `json:"personality"`
	MediaURL    string    `json:"media_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SceneObject is a generated prop or set piece. The optional SceneID ties an
// object to the scene it was detected in; project-scoped objects leave it
// empty.
type SceneObject struct {
	ID                   string    `json:"id" badgerhold:"key"`
	ProjectID            string    `json:"project_id" badgerhold:"index"`
	SceneID              string    `json:"scene_id,omitempty"`
	Type                 string    `json:"type"`
	Description          string    `json:"description"`
	EnvironmentalContext string    `json:"environmental_context"`
	MediaURL             string    `json:"media_url,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Scene is one narrative beat of a project.
type Scene struct {
	ID           string    `json:"id" badgerhold:"key"`
	ProjectID    string    `json:"project_id" badgerhold:"index"`
	Order        int       `json:"order"`
	ConcisePlot  string    `json:"concise_plot"`
	DetailedPlot string    `json:"detailed_plot"`
	Duration     int       `json:"duration"` // seconds; 0 means unset, default applies
	MediaURL     string    `json:"media_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DefaultSceneDuration applies when a scene declares no duration. It is also
// the chunk size for the scene-to-frame cascade.
const DefaultSceneDuration = 8

// EffectiveDuration returns the scene duration with the default applied.
func (s *Scene) EffectiveDuration() int {
	if s.Duration <= 0 {
		return DefaultSceneDuration
	}
	return s.Duration
}

// Frame is one generated shot of a scene.
type Frame struct {
	ID          string    `json:"id" badgerhold:"key"`
	ProjectID   string    `json:"project_id" badgerhold:"index"`
	SceneID     string    `json:"scene_id" badgerhold:"index"`
	FrameNumber int       `json:"frame_number"`
	Plot        string    `json:"plot"`
	VideoPrompt string    `json:"video_prompt"`
	Duration    int       `json:"duration"`
	MediaURL    string    `json:"media_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Video is the rendered asset for a frame, or the stitched project video.
type Video struct {
	ID        string    `json:"id" badgerhold:"key"`
	ProjectID string    `json:"project_id" badgerhold:"index"`
	FrameID   string    `json:"frame_id,omitempty"`
	MediaURL  string    `json:"media_url"`
	Duration  int       `json:"duration"`
	Stitched  bool      `json:"stitched"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEntityID generates a unique entity identifier.
func NewEntityID() string {
	return uuid.New().String()
}
