package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestWindFieldForce(t *testing.T) {
	base := r3.Vec{X: -0.5}

	steady := NewWindField(1, base, 0, 0.3, 0.5)
	assert.Equal(t, base, steady.Force(r3.Vec{X: 4, Z: -2}, 10))

	var none *WindField
	assert.Equal(t, r3.Vec{}, none.Force(r3.Vec{X: 1}, 1))

	a := NewWindField(7, base, 2, 0.3, 0.5)
	b := NewWindField(7, base, 2, 0.3, 0.5)
	p := r3.Vec{X: 1.3, Y: 2, Z: -0.7}
	assert.Equal(t, a.Force(p, 3.2), b.Force(p, 3.2))

	f := a.Force(p, 3.2)
	assert.Zero(t, f.Y, "wind stays horizontal")
	assert.LessOrEqual(t, f.X-base.X, 2.0)
	assert.GreaterOrEqual(t, f.X-base.X, -2.0)
}

func TestWindPushesBodies(t *testing.T) {
	cfg := undamped()
	cfg.Gravity = r3.Vec{}
	cfg.Wind = NewWindField(1, r3.Vec{X: -0.5}, 0, 0, 0)
	w := NewWorld(cfg)
	h := addBall(t, w, r3.Vec{}, r3.Vec{})

	stepN(t, w, 60)
	lin, _, _ := w.Velocity(h)
	assert.InDelta(t, -0.5, lin.X, 1e-9)
}
