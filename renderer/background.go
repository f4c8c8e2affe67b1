package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/starfield/galaxy"
)

// BackgroundRenderer clears the frame and draws the floor grid.
type BackgroundRenderer struct {
	clear     rl.Color
	floor     rl.Color
	gridSize  int32
	gridSpace float32
}

// NewBackgroundRenderer creates a new background renderer.
func NewBackgroundRenderer(background galaxy.Color) *BackgroundRenderer {
	r, g, b, _ := background.RGBA8()
	return &BackgroundRenderer{
		clear:     rl.Color{R: r, G: g, B: b, A: 255},
		floor:     rl.Color{R: 30, G: 30, B: 36, A: 255},
		gridSize:  20,
		gridSpace: 1,
	}
}

// Clear fills the frame with the background color.
func (b *BackgroundRenderer) Clear() {
	rl.ClearBackground(b.clear)
}

// DrawFloor draws the ground plane at the floor body's height.
// Must be called inside BeginMode3D.
func (b *BackgroundRenderer) DrawFloor(center rl.Vector3) {
	size := float32(b.gridSize) * b.gridSpace
	rl.DrawPlane(center, rl.Vector2{X: size, Y: size}, b.floor)

	rl.PushMatrix()
	// Lift the grid off the plane to avoid z-fighting
	rl.Translatef(center.X, center.Y+0.001, center.Z)
	rl.DrawGrid(b.gridSize, b.gridSpace)
	rl.PopMatrix()
}
