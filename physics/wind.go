package physics

import (
	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/spatial/r3"
)

// WindField is a steady force plus a gust term sampled from simplex noise over
// the horizontal plane and time.
type WindField struct {
	Base  r3.Vec  // Constant force applied to every dynamic body
	Gust  float64 // Peak gust force per axis
	Scale float64 // Spatial frequency of the noise
	Speed float64 // Temporal frequency of the noise

	noise opensimplex.Noise
}

// NewWindField creates a wind field with a seeded noise source.
func NewWindField(seed int64, base r3.Vec, gust, scale, speed float64) *WindField {
	return &WindField{
		Base:  base,
		Gust:  gust,
		Scale: scale,
		Speed: speed,
		noise: opensimplex.New(seed),
	}
}

// Force returns the wind force at position p and simulated time t.
func (w *WindField) Force(p r3.Vec, t float64) r3.Vec {
	if w == nil {
		return r3.Vec{}
	}
	f := w.Base
	if w.Gust == 0 || w.noise == nil {
		return f
	}
	x := p.X * w.Scale
	z := p.Z * w.Scale
	tt := t * w.Speed
	f.X += w.noise.Eval3(x, z, tt) * w.Gust
	// Offset the second sample so the axes are decorrelated
	f.Z += w.noise.Eval3(x+31.7, z-17.3, tt) * w.Gust
	return f
}
