package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/minisrooft/internal/eventbus"
)

func TestParseStringList(t *testing.T) {
	assert.Nil(t, parseStringList(""))
	assert.Equal(t, []string{"block.broken", "chat.message"}, parseStringList(" block.broken, ,chat.message "))
}

func TestMatchPlayer(t *testing.T) {
	ev, err := eventbus.NewEnvelope("game", eventbus.EventBlockPlaced, eventbus.PriorityNormal,
		eventbus.BlockEvent{PlayerID: "player_2", X: 1, Y: 2, BlockType: 3})
	require.NoError(t, err)

	assert.True(t, matchPlayer(ev, nil))
	assert.True(t, matchPlayer(ev, []string{"player_1", "player_2"}))
	assert.False(t, matchPlayer(ev, []string{"player_1"}))
}
