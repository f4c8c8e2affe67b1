package galaxy

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color is a linear RGB triple with channels in [0, 1].
type Color struct {
	R, G, B float32
}

// Preset colors.
var (
	Red   = Color{R: 1}
	Green = Color{G: 1}
	Blue  = Color{B: 1}
	White = Color{R: 1, G: 1, B: 1}
)

// ParseColor parses a "#rrggbb" or "#rgb" hex string.
func ParseColor(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("parsing color %q: %w", s, err)
	}
	return fromColorful(c), nil
}

// MustParseColor is like ParseColor but panics on error.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Lerp linearly interpolates between c and other by t (t=0 gives c, t=1 gives other).
func (c Color) Lerp(other Color, t float32) Color {
	return fromColorful(c.colorful().BlendRgb(other.colorful(), float64(t)))
}

// Hex returns the color as a "#rrggbb" string.
func (c Color) Hex() string {
	return c.colorful().Clamped().Hex()
}

// Valid reports whether every channel lies in [0, 1].
func (c Color) Valid() bool {
	return c.colorful().IsValid()
}

// RGBA8 converts to 8-bit channels with full alpha.
func (c Color) RGBA8() (r, g, b, a uint8) {
	r, g, b = c.colorful().Clamped().RGB255()
	return r, g, b, 255
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B)}
}

func fromColorful(c colorful.Color) Color {
	return Color{R: float32(c.R), G: float32(c.G), B: float32(c.B)}
}
