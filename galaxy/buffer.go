package galaxy

import "github.com/chewxy/math32"

// Buffer holds generated particle data as interleaved xyz and rgb arrays,
// ready for upload as vertex attributes.
type Buffer struct {
	Positions []float32 // len 3*Count
	Colors    []float32 // len 3*Count
	Size      float32   // Point size from the generating parameters

	restY    []float32 // Generated heights, kept once the wave has moved them
	released bool
}

func newBuffer(count int, size float32) *Buffer {
	return &Buffer{
		Positions: make([]float32, count*3),
		Colors:    make([]float32, count*3),
		Size:      size,
	}
}

// Len returns the number of particles.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Positions) / 3
}

// Position returns the position of particle i.
func (b *Buffer) Position(i int) (x, y, z float32) {
	i3 := i * 3
	return b.Positions[i3], b.Positions[i3+1], b.Positions[i3+2]
}

// Color returns the color of particle i.
func (b *Buffer) Color(i int) Color {
	i3 := i * 3
	return Color{R: b.Colors[i3], G: b.Colors[i3+1], B: b.Colors[i3+2]}
}

// wave sets each particle's height to its generated height plus
// amplitude*sin(phase + x). A zero amplitude puts the particles back.
func (b *Buffer) wave(phase, amplitude float32) {
	n := b.Len()
	if amplitude == 0 {
		for i := 0; i < n && b.restY != nil; i++ {
			b.Positions[i*3+1] = b.restY[i]
		}
		b.restY = nil
		return
	}
	if b.restY == nil {
		b.restY = make([]float32, n)
		for i := 0; i < n; i++ {
			b.restY[i] = b.Positions[i*3+1]
		}
	}
	for i := 0; i < n; i++ {
		i3 := i * 3
		b.Positions[i3+1] = b.restY[i] + amplitude*math32.Sin(phase+b.Positions[i3])
	}
}

// waved reports whether the wave has moved any particle.
func (b *Buffer) waved() bool { return b.restY != nil }

// Release drops the particle data. Safe to call more than once.
func (b *Buffer) Release() {
	if b == nil {
		return
	}
	b.Positions = nil
	b.Colors = nil
	b.restY = nil
	b.released = true
}

// Released reports whether Release has been called.
func (b *Buffer) Released() bool {
	return b != nil && b.released
}
