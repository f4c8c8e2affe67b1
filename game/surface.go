package game

import (
	"github.com/pthm-cable/starfield/galaxy"
	"github.com/pthm-cable/starfield/physics"
	"github.com/pthm-cable/starfield/simloop"
)

// Surface is where a scene is drawn. renderer.Scene implements it with
// raylib; headless runs use a surface that draws nothing.
type Surface interface {
	// SetParticles installs a newly generated galaxy. The buffer stays valid
	// until ReleaseParticles is called for it.
	SetParticles(buf *galaxy.Buffer)
	// ReleaseParticles drops anything built from a superseded buffer.
	ReleaseParticles(buf *galaxy.Buffer)
	// UpdateParticles refreshes positions of the installed buffer after
	// they were moved in place.
	UpdateParticles(buf *galaxy.Buffer)
	// Render draws one frame.
	Render(v View)
}

// View is everything a surface needs to draw a frame.
type View struct {
	Frame simloop.Frame

	// Galaxy orientation and point size
	TiltX, Yaw float32
	PointSize  float32

	Spheres []SphereView
	Floor   physics.Transform

	Paused bool
	Halted bool
}

// SphereView is the mirrored pose of one sphere.
type SphereView struct {
	Transform physics.Transform
	Radius    float32
	Color     galaxy.Color
}

type nopSurface struct{}

func (nopSurface) SetParticles(*galaxy.Buffer)     {}
func (nopSurface) ReleaseParticles(*galaxy.Buffer) {}
func (nopSurface) UpdateParticles(*galaxy.Buffer)  {}
func (nopSurface) Render(View)                     {}
