package galaxy

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/chewxy/math32"
)

// Motion describes how a displayed galaxy turns over time.
type Motion struct {
	Tilt          float32 // Fixed rotation about X, radians
	RotationSpeed float32 // Turns about Y at RotationSpeed*π radians per second

	// Vertical wave through the particles, y += WaveAmplitude*sin(WaveSpeed*t + x).
	// Zero amplitude leaves the buffer untouched.
	WaveAmplitude float32
	WaveSpeed     float32
}

// DefaultMotion is a slow spin with a half-radian tilt.
func DefaultMotion() Motion {
	return Motion{Tilt: 0.5, RotationSpeed: 0.05}
}

// Angles returns the X tilt and Y rotation after elapsed seconds.
func (m Motion) Angles(elapsed float64) (tiltX, yaw float32) {
	return m.Tilt, math32.Pi * float32(elapsed) * m.RotationSpeed
}

// Field owns the currently displayed galaxy and regenerates it when the
// parameters change. The previous buffer is released right after the new
// one is installed, so no more than two buffers are ever alive.
type Field struct {
	params Parameters
	buffer *Buffer
	rng    RandomSource
	motion Motion

	// OnRelease runs for a superseded buffer before its data is dropped,
	// letting the display side free whatever it built from it.
	OnRelease func(*Buffer)

	generations int
}

// NewField generates the initial galaxy.
func NewField(p Parameters, rng RandomSource) (*Field, error) {
	f := &Field{rng: rng, motion: DefaultMotion()}
	if err := f.OnParametersChanged(p); err != nil {
		return nil, err
	}
	return f, nil
}

// OnParametersChanged regenerates the galaxy for p and swaps it in.
// Invalid parameters are rejected and the current buffer is kept.
func (f *Field) OnParametersChanged(p Parameters) error {
	start := time.Now()
	buf, err := Generate(p, f.rng)
	if err != nil {
		return err
	}

	old := f.buffer
	f.params = p
	f.buffer = buf
	f.generations++
	f.release(old)

	slog.Debug("galaxy generated",
		"count", p.Count,
		"branches", p.Branches,
		"generation", f.generations,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Regenerate redraws the current parameters with fresh random draws.
func (f *Field) Regenerate() error {
	return f.OnParametersChanged(f.params)
}

// Reseed replaces the random source with one seeded from seed and regenerates.
func (f *Field) Reseed(seed int64) error {
	f.rng = rand.New(rand.NewSource(seed))
	return f.Regenerate()
}

// SetSource replaces the random source without regenerating.
func (f *Field) SetSource(rng RandomSource) {
	f.rng = rng
}

// Close releases the current buffer.
func (f *Field) Close() {
	f.release(f.buffer)
	f.buffer = nil
}

func (f *Field) release(b *Buffer) {
	if b == nil {
		return
	}
	if f.OnRelease != nil {
		f.OnRelease(b)
	}
	b.Release()
}

// Buffer returns the current particle buffer.
func (f *Field) Buffer() *Buffer { return f.buffer }

// Parameters returns the parameters of the current buffer.
func (f *Field) Parameters() Parameters { return f.params }

// Generations returns how many buffers have been generated.
func (f *Field) Generations() int { return f.generations }

// Animate moves the current buffer's particles along the wave for elapsed
// seconds. It reports whether any position changed, in which case the
// display side must refresh its copy.
func (f *Field) Animate(elapsed float64) bool {
	m := f.motion
	if f.buffer == nil || f.buffer.Released() || (m.WaveAmplitude == 0 && !f.buffer.waved()) {
		return false
	}
	f.buffer.wave(float32(elapsed)*m.WaveSpeed, m.WaveAmplitude)
	return true
}

// Motion returns the rotation settings.
func (f *Field) Motion() Motion { return f.motion }

// SetMotion replaces the rotation settings.
func (f *Field) SetMotion(m Motion) { f.motion = m }
