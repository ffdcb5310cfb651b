package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_BackoffDoubles(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second}

	assert.Equal(t, 2*time.Second, policy.BackoffFor(1))
	assert.Equal(t, 4*time.Second, policy.BackoffFor(2))
	assert.Equal(t, 8*time.Second, policy.BackoffFor(3))
}

func TestRetryPolicy_Exhausted(t *testing.T) {
	policy := DefaultRetryPolicy

	assert.False(t, policy.Exhausted(1))
	assert.False(t, policy.Exhausted(2))
	assert.True(t, policy.Exhausted(3))
	assert.True(t, policy.Exhausted(4))
}

func TestDecodeInput_PerKind(t *testing.T) {
	raw := json.RawMessage(`{"project_id":"proj_1","prompt":"a lighthouse keeper"}`)

	decoded, err := DecodeInput(KindCharacterGeneration, raw)
	require.NoError(t, err)

	input, ok := decoded.(*CharacterInput)
	require.True(t, ok)
	assert.Equal(t, "proj_1", input.ProjectID)
	assert.Equal(t, "a lighthouse keeper", input.Prompt)
}

func TestDecodeInput_FrameCarriesPinnedContext(t *testing.T) {
	raw := json.RawMessage(`{
		"project_id": "proj_1",
		"scene_id": "scene_1",
		"frame_number": 2,
		"scene_context": {"project_summary": "a storm at sea", "plot": "rescue"}
	}`)

	decoded, err := DecodeInput(KindFrameGeneration, raw)
	require.NoError(t, err)

	input, ok := decoded.(*FrameInput)
	require.True(t, ok)
	assert.Equal(t, 2, input.FrameNumber)
	require.NotNil(t, input.SceneContext)
	assert.Equal(t, "a storm at sea", input.SceneContext.ProjectSummary)
}

func TestDecodeInput_UnknownKind(t *testing.T) {
	_, err := DecodeInput(JobKind("bogus"), json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestInputProjectID_AllKinds(t *testing.T) {
	cases := []interface{}{
		&CharacterInput{ProjectID: "p"},
		&ObjectInput{ProjectID: "p"},
		&SceneInput{ProjectID: "p"},
		&FrameInput{ProjectID: "p"},
		&VideoInput{ProjectID: "p"},
		&StitchInput{ProjectID: "p"},
		&ScriptInput{ProjectID: "p"},
		&ImageEditInput{ProjectID: "p"},
	}
	for _, input := range cases {
		assert.Equal(t, "p", InputProjectID(input))
	}
	assert.Equal(t, "", InputProjectID(struct{}{}))
}

func TestScene_EffectiveDuration(t *testing.T) {
	assert.Equal(t, DefaultSceneDuration, (&Scene{}).EffectiveDuration())
	assert.Equal(t, DefaultSceneDuration, (&Scene{Duration: -1}).EffectiveDuration())
	assert.Equal(t, 20, (&Scene{Duration: 20}).EffectiveDuration())
}
