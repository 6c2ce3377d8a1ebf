package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Solidity(t *testing.T) {
	assert.False(t, IsSolid(Air), "воздух не должен блокировать движение")
	assert.True(t, IsSolid(Grass))
	assert.True(t, IsSolid(Dirt))
	assert.True(t, IsSolid(Stone))
	assert.True(t, IsSolid(ID(42)), "неизвестный блок считается твёрдым")
}

func TestRegistry_Placeable(t *testing.T) {
	assert.False(t, Placeable(Air))
	assert.False(t, Placeable(OutOfBounds))
	assert.False(t, Placeable(ID(99)))
	assert.True(t, Placeable(Stone))
}

func TestRegistry_CollectableOrder(t *testing.T) {
	assert.Equal(t, []ID{Grass, Dirt, Stone}, Collectable())
	assert.Equal(t, "grass", Grass.String())
	assert.Equal(t, "out_of_bounds", OutOfBounds.String())
}
