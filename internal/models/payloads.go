// -----------------------------------------------------------------------
// Job payloads - one concrete input shape per job kind
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"
	"fmt"
)

// CharacterInput is the submission payload for character-generation jobs.
type CharacterInput struct {
	ProjectID string `json:"project_id" validate:"required"`
	Prompt    string `json:"prompt" validate:"required"`
}

// ObjectInput is the submission payload for object-generation jobs.
type ObjectInput struct {
	ProjectID string `json:"project_id" validate:"required"`
	Prompt    string `json:"prompt" validate:"required"`
	SceneID   string `json:"scene_id,omitempty"`
}

// SceneInput is the submission payload for scene-generation jobs.
type SceneInput struct {
	ProjectID string `json:"project_id" validate:"required"`
	Prompt    string `json:"prompt" validate:"required"`
	Duration  int    `json:"duration,omitempty" validate:"omitempty,gt=0"`
	Order     int    `json:"order,omitempty"`
}

// FrameInput is the payload for frame-generation jobs. Frames are normally
// cascade-spawned from a completed scene; the scene context captured at
// completion time rides along and is never recomputed.
type FrameInput struct {
	ProjectID    string           `json:"project_id" validate:"required"`
	SceneID      string           `json:"scene_id" validate:"required"`
	FrameNumber  int              `json:"frame_number" validate:"gte=0"`
	SceneContext *ContextSnapshot `json:"scene_context,omitempty"`
}

// VideoInput is the payload for video-generation jobs, cascade-spawned from a
// completed frame.
type VideoInput struct {
	ProjectID string `json:"project_id" validate:"required"`
	FrameID   string `json:"frame_id" validate:"required"`
	Prompt    string `json:"prompt" validate:"required"`
	Duration  int    `json:"duration,omitempty" validate:"omitempty,gt=0"`
	ImageURL  string `json:"image_url,omitempty"`
}

// StitchInput is the payload for user-initiated video-stitching jobs.
type StitchInput struct {
	ProjectID string   `json:"project_id" validate:"required"`
	VideoURLs []string `json:"video_urls" validate:"required,min=1"`
}

// ScriptInput is the payload for user-initiated script-generation jobs.
type ScriptInput struct {
	ProjectID string `json:"project_id" validate:"required"`
	Prompt    string `json:"prompt" validate:"required"`
}

// ImageEditInput is the payload for image-editing jobs.
type ImageEditInput struct {
	ProjectID   string `json:"project_id" validate:"required"`
	EntityID    string `json:"entity_id" validate:"required"`
	ImageURL    string `json:"image_url" validate:"required"`
	Instruction string `json:"instruction" validate:"required"`
}

// DecodeInput unmarshals a raw payload into the concrete input struct for the
// given kind. The returned value is always a pointer to the kind's payload
// type, ready for validation.
func DecodeInput(kind JobKind, raw json.RawMessage) (interface{}, error) {
	var target interface{}
	switch kind {
	case KindCharacterGeneration:
		target = &CharacterInput{}
	case KindObjectGeneration:
		target = &ObjectInput{}
	case KindSceneGeneration:
		target = &SceneInput{}
	case KindFrameGeneration:
		target = &FrameInput{}
	case KindVideoGeneration:
		target = &VideoInput{}
	case KindVideoStitching:
		target = &StitchInput{}
	case KindScriptGeneration:
		target = &ScriptInput{}
	case KindImageEditing:
		target = &ImageEditInput{}
	default:
		return nil, fmt.Errorf("unknown job kind: %s", kind)
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
	}
	return target, nil
}

// InputProjectID extracts the project id from a decoded payload. Every kind's
// payload carries one; the per-project job index depends on it.
func InputProjectID(input interface{}) string {
	switch p := input.(type) {
	case *CharacterInput:
		return p.ProjectID
	case *ObjectInput:
		return p.ProjectID
	case *SceneInput:
		return p.ProjectID
	case *FrameInput:
		return p.ProjectID
	case *VideoInput:
		return p.ProjectID
	case *StitchInput:
		return p.ProjectID
	case *ScriptInput:
		return p.ProjectID
	case *ImageEditInput:
		return p.ProjectID
	}
	return ""
}

// ToMap converts a payload struct into the open-map form stored on the ledger
// record. The storage boundary stays schema-light; compile-time checking
// applies everywhere else.
func ToMap(v interface{}) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
