package galaxy

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldRegenerateSwapsAndReleases(t *testing.T) {
	p := testParams()
	p.Count = 100

	f, err := NewField(p, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	first := f.Buffer()
	require.Equal(t, 100, first.Len())

	var released []*Buffer
	f.OnRelease = func(b *Buffer) {
		// The replacement must already be installed when the old one goes
		assert.NotSame(t, b, f.Buffer())
		assert.False(t, b.Released())
		released = append(released, b)
	}

	p.Count = 250
	require.NoError(t, f.OnParametersChanged(p))

	second := f.Buffer()
	assert.Equal(t, 250, second.Len())
	require.Len(t, released, 1)
	assert.Same(t, first, released[0])
	assert.True(t, first.Released())
	assert.Nil(t, first.Positions)
	assert.Equal(t, 2, f.Generations())
}

func TestFieldRejectsInvalidAndKeepsBuffer(t *testing.T) {
	p := testParams()
	f, err := NewField(p, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	before := f.Buffer()

	releases := 0
	f.OnRelease = func(*Buffer) { releases++ }

	bad := p
	bad.Branches = 0
	err = f.OnParametersChanged(bad)
	require.ErrorIs(t, err, ErrInvalidParameters)

	assert.Same(t, before, f.Buffer())
	assert.False(t, before.Released())
	assert.Equal(t, p, f.Parameters())
	assert.Zero(t, releases)
}

func TestNewFieldInvalid(t *testing.T) {
	p := testParams()
	p.RandomnessPower = 0
	_, err := NewField(p, rand.New(rand.NewSource(1)))
	require.Error(t, err)
}

func TestFieldReseedIsDeterministic(t *testing.T) {
	p := testParams()
	p.Count = 50

	a, err := NewField(p, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	b, err := NewField(p, rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	require.NoError(t, a.Reseed(99))
	require.NoError(t, b.Reseed(99))
	assert.Equal(t, a.Buffer().Positions, b.Buffer().Positions)
}

func TestFieldClose(t *testing.T) {
	f, err := NewField(testParams(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	buf := f.Buffer()

	f.Close()
	assert.True(t, buf.Released())
	assert.Nil(t, f.Buffer())
	assert.Zero(t, f.Buffer().Len())
}

func TestMotionAngles(t *testing.T) {
	m := DefaultMotion()
	tilt, yaw := m.Angles(0)
	assert.InDelta(t, 0.5, tilt, 1e-6)
	assert.InDelta(t, 0, yaw, 1e-6)

	// 20 seconds at 0.05π rad/s is one half turn
	_, yaw = m.Angles(20)
	assert.InDelta(t, math.Pi, yaw, 1e-5)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff6030")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c.R, 1e-6)
	assert.InDelta(t, float32(0x60)/255, c.G, 1e-6)
	assert.InDelta(t, float32(0x30)/255, c.B, 1e-6)
	assert.Equal(t, "#ff6030", c.Hex())

	_, err = ParseColor("not-a-color")
	assert.Error(t, err)
}

func TestColorLerp(t *testing.T) {
	mid := Red.Lerp(Blue, 0.5)
	assert.InDelta(t, 0.5, mid.R, 1e-6)
	assert.InDelta(t, 0, mid.G, 1e-6)
	assert.InDelta(t, 0.5, mid.B, 1e-6)

	r, g, b, a := White.RGBA8()
	assert.Equal(t, [4]uint8{255, 255, 255, 255}, [4]uint8{r, g, b, a})
}

func TestFieldSetSourceDoesNotRegenerate(t *testing.T) {
	p := testParams()
	p.Count = 50

	f, err := NewField(p, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	before := f.Buffer()

	f.SetSource(rand.New(rand.NewSource(99)))
	assert.Same(t, before, f.Buffer())
	assert.Equal(t, 1, f.Generations())

	require.NoError(t, f.Regenerate())
	want, err := Generate(p, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	assert.Equal(t, want.Positions, f.Buffer().Positions)
}

func TestFieldAnimateMovesOnlyHeights(t *testing.T) {
	p := testParams()
	p.Count = 200
	f, err := NewField(p, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	generated := append([]float32(nil), f.Buffer().Positions...)
	assert.False(t, f.Animate(1), "no wave by default")
	assert.Equal(t, generated, f.Buffer().Positions)

	m := f.Motion()
	m.WaveAmplitude = 0.3
	m.WaveSpeed = 2
	f.SetMotion(m)

	for _, elapsed := range []float64{0.5, 1.7} {
		require.True(t, f.Animate(elapsed))
		buf := f.Buffer()
		for i := 0; i < buf.Len(); i++ {
			x, y, z := buf.Position(i)
			assert.Equal(t, generated[i*3], x)
			assert.Equal(t, generated[i*3+2], z)
			want := float64(generated[i*3+1]) + 0.3*math.Sin(2*elapsed+float64(x))
			assert.InDelta(t, want, float64(y), 1e-4)
		}
	}

	// Heights differ between two times
	_, y1, _ := f.Buffer().Position(0)
	f.Animate(2.4)
	_, y2, _ := f.Buffer().Position(0)
	assert.NotEqual(t, y1, y2)

	// Switching the wave off puts the particles back once
	m.WaveAmplitude = 0
	f.SetMotion(m)
	assert.True(t, f.Animate(3))
	assert.Equal(t, generated, f.Buffer().Positions)
	assert.False(t, f.Animate(4))
}

func TestFieldAnimateFollowsRegeneration(t *testing.T) {
	p := testParams()
	p.Count = 50
	f, err := NewField(p, rand.New(rand.NewSource(5)))
	require.NoError(t, err)
	f.SetMotion(Motion{WaveAmplitude: 1, WaveSpeed: 1})
	require.True(t, f.Animate(1))

	require.NoError(t, f.Regenerate())
	fresh := append([]float32(nil), f.Buffer().Positions...)
	require.True(t, f.Animate(0))
	for i := 0; i < f.Buffer().Len(); i++ {
		x, y, _ := f.Buffer().Position(i)
		assert.InDelta(t, float64(fresh[i*3+1])+math.Sin(float64(x)), float64(y), 1e-4)
	}
}
