package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentEncodesPlainTextAsString(t *testing.T) {
	data, err := json.Marshal(UserMessage("hello"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":"hello"}`, string(data))
}

func TestContentEncodesAnnotatedTextAsBlocks(t *testing.T) {
	msg := UserMessage("hello")
	msg.Content[0].CacheControl = Ephemeral()

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":[{"type":"text","text":"hello","cache_control":{"type":"ephemeral"}}]}`, string(data))
}

func TestContentDecodesBothShapes(t *testing.T) {
	var fromString Message
	require.NoError(t, json.Unmarshal([]byte(`{"role":"assistant","content":"hi"}`), &fromString))
	assert.Equal(t, "hi", fromString.TextContent())

	var fromBlocks Message
	require.NoError(t, json.Unmarshal([]byte(`{"role":"assistant","content":[{"type":"text","text":"hi"}]}`), &fromBlocks))
	assert.Equal(t, "hi", fromBlocks.TextContent())
	assert.Equal(t, RoleAssistant, fromBlocks.Role)
}
