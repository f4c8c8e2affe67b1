package renderer

import rl "github.com/gen2brain/raylib-go/raylib"

// HandleInput processes camera controls: left drag orbits, the wheel zooms
// and Home resets. Input that starts over a blocked point, such as a UI
// panel, is ignored.
func (s *Scene) HandleInput(blocked func(rl.Vector2) bool) {
	s.HandleResize()

	mouse := rl.GetMousePosition()
	free := blocked == nil || !blocked(mouse)

	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		s.dragging = free
	}
	if rl.IsMouseButtonReleased(rl.MouseButtonLeft) {
		s.dragging = false
	}
	if s.dragging && rl.IsMouseButtonDown(rl.MouseButtonLeft) {
		d := rl.GetMouseDelta()
		if d.X != 0 || d.Y != 0 {
			s.Camera.Rotate(d.X, d.Y)
		}
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 && free {
		s.Camera.Zoom(wheel)
	}

	if rl.IsKeyPressed(rl.KeyHome) {
		s.Camera.Reset()
	}

	s.Camera.Update(rl.GetFrameTime())
}
