// Package camera provides a damped orbit camera for viewing a 3D scene.
package camera

import "github.com/chewxy/math32"

// pitchLimit keeps the camera off the poles, where yaw is undefined.
const pitchLimit = math32.Pi/2 - 0.01

// Options configures an orbit camera.
type Options struct {
	Target                   [3]float32
	Distance                 float32
	Yaw, Pitch               float32 // Radians
	FOV                      float32 // Vertical field of view in degrees
	Damping                  float32 // Fraction of motion shed per 1/60 s, 0 disables
	MinDistance, MaxDistance float32
	MaxPixelRatio            float32 // Upper bound on DPI scaling, 0 means 1
}

// Camera orbits a target point. Drag and scroll input become velocities
// that decay with damping, so the view glides to a stop after input ends.
type Camera struct {
	// Target is the point the camera looks at
	Target [3]float32

	// Spherical position relative to the target
	Distance   float32
	Yaw, Pitch float32

	FOV float32

	// Viewport dimensions in logical pixels
	ViewportW, ViewportH float32

	// PixelRatio is the clamped device pixel ratio
	PixelRatio float32

	opts Options

	yawVel, pitchVel float32
	zoomVel          float32 // Log-distance change per update
}

// New creates a camera for a viewport of the given logical size.
func New(viewportW, viewportH float32, opts Options) *Camera {
	if opts.MaxPixelRatio <= 0 {
		opts.MaxPixelRatio = 1
	}
	if opts.MinDistance <= 0 {
		opts.MinDistance = 0.1
	}
	if opts.MaxDistance < opts.MinDistance {
		opts.MaxDistance = opts.MinDistance
	}
	if opts.FOV <= 0 {
		opts.FOV = 75
	}
	c := &Camera{opts: opts}
	c.Reset()
	c.Resize(viewportW, viewportH, 1)
	return c
}

// Reset restores the initial orbit and stops any motion.
func (c *Camera) Reset() {
	c.Target = c.opts.Target
	c.Distance = clamp(c.opts.Distance, c.opts.MinDistance, c.opts.MaxDistance)
	c.Yaw = c.opts.Yaw
	c.Pitch = clamp(c.opts.Pitch, -pitchLimit, pitchLimit)
	c.FOV = c.opts.FOV
	c.yawVel, c.pitchVel, c.zoomVel = 0, 0, 0
}

// Resize updates the viewport and clamps the pixel ratio.
// It reports whether anything changed.
func (c *Camera) Resize(viewportW, viewportH, pixelRatio float32) bool {
	if viewportW < 1 {
		viewportW = 1
	}
	if viewportH < 1 {
		viewportH = 1
	}
	pixelRatio = clamp(pixelRatio, 1, c.opts.MaxPixelRatio)
	if viewportW == c.ViewportW && viewportH == c.ViewportH && pixelRatio == c.PixelRatio {
		return false
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.PixelRatio = pixelRatio
	return true
}

// Aspect returns the viewport width over height.
func (c *Camera) Aspect() float32 {
	return c.ViewportW / c.ViewportH
}

// RenderSize returns the framebuffer size in device pixels.
func (c *Camera) RenderSize() (w, h int32) {
	return int32(c.ViewportW * c.PixelRatio), int32(c.ViewportH * c.PixelRatio)
}

// Rotate orbits by a drag of dx, dy logical pixels. A drag the full height
// of the viewport turns the camera once around.
func (c *Camera) Rotate(dx, dy float32) {
	yaw := -2 * math32.Pi * dx / c.ViewportH
	pitch := 2 * math32.Pi * dy / c.ViewportH
	if c.opts.Damping > 0 {
		c.yawVel += yaw * c.opts.Damping
		c.pitchVel += pitch * c.opts.Damping
		return
	}
	c.Yaw += yaw
	c.Pitch = clamp(c.Pitch+pitch, -pitchLimit, pitchLimit)
}

// Zoom moves toward the target for positive scroll, away for negative.
func (c *Camera) Zoom(scroll float32) {
	step := -scroll * 0.1
	if c.opts.Damping > 0 {
		c.zoomVel += step * c.opts.Damping
		return
	}
	c.Distance = clamp(c.Distance*math32.Exp(step), c.opts.MinDistance, c.opts.MaxDistance)
}

// Update applies pending motion for a frame of dt seconds.
func (c *Camera) Update(dt float32) {
	if c.opts.Damping <= 0 {
		return
	}
	frames := dt * 60
	c.Yaw += c.yawVel * frames
	c.Pitch = clamp(c.Pitch+c.pitchVel*frames, -pitchLimit, pitchLimit)
	c.Distance = clamp(c.Distance*math32.Exp(c.zoomVel*frames), c.opts.MinDistance, c.opts.MaxDistance)

	decay := math32.Pow(1-c.opts.Damping, frames)
	c.yawVel *= decay
	c.pitchVel *= decay
	c.zoomVel *= decay
}

// Moving reports whether damped motion is still in progress.
func (c *Camera) Moving() bool {
	const eps = 1e-5
	return absf(c.yawVel) > eps || absf(c.pitchVel) > eps || absf(c.zoomVel) > eps
}

// Eye returns the camera position in world coordinates.
func (c *Camera) Eye() [3]float32 {
	sy, cy := math32.Sincos(c.Yaw)
	sp, cp := math32.Sincos(c.Pitch)
	return [3]float32{
		c.Target[0] + c.Distance*cp*sy,
		c.Target[1] + c.Distance*sp,
		c.Target[2] + c.Distance*cp*cy,
	}
}

// absf returns the absolute value of a float32.
func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// clamp restricts a value to a range.
func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
