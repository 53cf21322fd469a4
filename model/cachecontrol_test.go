package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func history(n int) []Message {
	msgs := make([]Message, 0, n)
	msgs = append(msgs, SystemMessage("system"))
	for len(msgs) < n {
		msgs = append(msgs, UserMessage("user turn"))
	}
	return msgs
}

func TestAddCacheControlMarksOnlyLastMessage(t *testing.T) {
	msgs := history(5)
	annotated := AddCacheControl(msgs, 0)

	require.Len(t, annotated, 5)
	for i, msg := range annotated[:4] {
		for _, block := range msg.Content {
			assert.Nil(t, block.CacheControl, "message %d must not carry a marker", i)
		}
	}
	last := annotated[4]
	require.NotEmpty(t, last.Content)
	require.NotNil(t, last.Content[0].CacheControl)
	assert.Equal(t, "ephemeral", last.Content[0].CacheControl.Type)
}

func TestAddCacheControlClearsStaleMarkers(t *testing.T) {
	msgs := history(3)
	first := AddCacheControl(msgs, 0)
	grown := append(first, UserMessage("new turn"))
	second := AddCacheControl(grown, 0)

	// The marker moved from the old tail to the new one.
	assert.Nil(t, second[2].Content[0].CacheControl)
	require.NotNil(t, second[3].Content[0].CacheControl)
}

func TestAddCacheControlDoesNotMutateInput(t *testing.T) {
	msgs := history(2)
	_ = AddCacheControl(msgs, 0)
	for _, msg := range msgs {
		for _, block := range msg.Content {
			assert.Nil(t, block.CacheControl)
		}
	}
}

func TestAddCacheControlOffsetIsNoOp(t *testing.T) {
	msgs := history(5)
	withOffset := AddCacheControl(msgs, 3)
	withoutOffset := AddCacheControl(msgs, 0)
	assert.Equal(t, withoutOffset, withOffset)
}
