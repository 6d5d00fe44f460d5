package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalModelJSON_Plain(t *testing.T) {
	var out struct {
		Summary string `json:"summary"`
	}
	err := UnmarshalModelJSON(`{"summary":"fine"}`, &out)
	require.NoError(t, err)
	assert.Equal(t, "fine", out.Summary)
}

func TestUnmarshalModelJSON_CodeFence(t *testing.T) {
	var out struct {
		Summary string `json:"summary"`
	}
	raw := "```json\n{\"summary\":\"fenced\"}\n```"
	err := UnmarshalModelJSON(raw, &out)
	require.NoError(t, err)
	assert.Equal(t, "fenced", out.Summary)
}

func TestUnmarshalModelJSON_SurroundingProse(t *testing.T) {
	var out struct {
		Notes string `json:"notes"`
	}
	raw := "Sure, here is the JSON you asked for:\n{\"notes\":\"ok\"}\nHope that helps!"
	err := UnmarshalModelJSON(raw, &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Notes)
}

func TestUnmarshalModelJSON_Garbage(t *testing.T) {
	var out map[string]string
	err := UnmarshalModelJSON("not json at all", &out)
	assert.Error(t, err)
}
