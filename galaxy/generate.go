package galaxy

import (
	"github.com/chewxy/math32"
)

// RandomSource yields uniform draws in [0, 1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// Generate builds a particle buffer for p using rng for every random draw.
// Given the same parameters and an identically seeded source, the output is
// identical.
func Generate(p Parameters, rng RandomSource) (*Buffer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	buf := newBuffer(p.Count, p.Size)
	branches := float32(p.Branches)

	for i := 0; i < p.Count; i++ {
		i3 := i * 3

		// Distance from center before jitter
		r := uniform(rng) * p.Radius

		// Round-robin arm assignment, twist grows with radius
		branchAngle := float32(i%p.Branches) / branches * 2 * math32.Pi
		angle := branchAngle + r*p.Spin

		jx := jitter(rng, p, r)
		jy := jitter(rng, p, r)
		jz := jitter(rng, p, r)

		buf.Positions[i3] = math32.Cos(angle)*r + jx
		buf.Positions[i3+1] = jy
		buf.Positions[i3+2] = math32.Sin(angle)*r + jz

		c := p.InsideColor.Lerp(p.OutsideColor, radialT(r, p.Radius))
		buf.Colors[i3] = c.R
		buf.Colors[i3+1] = c.G
		buf.Colors[i3+2] = c.B
	}

	return buf, nil
}

// jitter draws a signed offset in (-1, 1) whose magnitude is concentrated
// near zero for RandomnessPower > 1.
func jitter(rng RandomSource, p Parameters, r float32) float32 {
	mag := math32.Pow(uniform(rng), p.RandomnessPower)
	if uniform(rng) >= 0.5 {
		mag = -mag
	}
	if p.ScaleJitter {
		mag *= p.Randomness * r
	}
	return mag
}

// radialT maps a radius to the color interpolation factor.
func radialT(r, radius float32) float32 {
	if radius <= 0 {
		return 0
	}
	t := r / radius
	if t > 1 {
		return 1
	}
	return t
}

func uniform(rng RandomSource) float32 {
	return float32(rng.Float64())
}
