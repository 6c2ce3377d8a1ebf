package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec2Float_DistanceTo(t *testing.T) {
	a := Vec2Float{X: 250, Y: 250}

	assert.InDelta(t, 2.0, a.DistanceTo(Vec2Float{X: 252, Y: 250}), 1e-9)
	assert.InDelta(t, 5.0, a.DistanceTo(Vec2Float{X: 253, Y: 254}), 1e-9)
	assert.Equal(t, 0.0, a.DistanceTo(a))
}

func TestVec2Float_FloorAndClamp(t *testing.T) {
	assert.Equal(t, Vec2{X: 3, Y: -1}, Vec2Float{X: 3.9, Y: -0.5}.Floor())

	clamped := Vec2Float{X: -5, Y: 600}.Clamp(0, 0, 499, 499)
	assert.Equal(t, Vec2Float{X: 0, Y: 499}, clamped)
}
