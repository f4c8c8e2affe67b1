// Package galaxy generates spiral-galaxy particle fields.
package galaxy

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

// ErrInvalidParameters is wrapped by every ConfigurationError.
var ErrInvalidParameters = errors.New("galaxy: invalid parameters")

// ConfigurationError reports a parameter that failed validation.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("galaxy: invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidParameters
}

// Parameters describes one galaxy. Values are copied per generation call.
type Parameters struct {
	Count           int     // Number of particles
	Size            float32 // Point size, passed through to rendering
	Radius          float32 // Maximum spiral radius
	Branches        int     // Number of spiral arms
	Spin            float32 // Twist in radians per unit radius
	Randomness      float32 // Jitter scale (only applied with ScaleJitter)
	RandomnessPower float32 // Jitter falloff exponent (higher = tighter arms)
	InsideColor     Color
	OutsideColor    Color

	// ScaleJitter multiplies each jitter draw by Randomness*r.
	ScaleJitter bool
}

// DefaultParameters returns the reference galaxy.
func DefaultParameters() Parameters {
	return Parameters{
		Count:           100000,
		Size:            0.02,
		Radius:          4,
		Branches:        4,
		Spin:            1,
		Randomness:      0.02,
		RandomnessPower: 3,
		InsideColor:     MustParseColor("#ff6030"),
		OutsideColor:    MustParseColor("#1b3984"),
	}
}

// Validate returns a *ConfigurationError for the first invalid field.
func (p Parameters) Validate() error {
	switch {
	case p.Count < 0:
		return invalid("count", "must be >= 0, got %d", p.Count)
	case !finite(p.Size) || p.Size <= 0:
		return invalid("size", "must be > 0, got %v", p.Size)
	case !finite(p.Radius) || p.Radius < 0:
		return invalid("radius", "must be >= 0, got %v", p.Radius)
	case p.Branches < 1:
		return invalid("branches", "must be >= 1, got %d", p.Branches)
	case !finite(p.Spin):
		return invalid("spin", "must be finite, got %v", p.Spin)
	case !finite(p.Randomness) || p.Randomness < 0:
		return invalid("randomness", "must be >= 0, got %v", p.Randomness)
	case !finite(p.RandomnessPower) || p.RandomnessPower < 1:
		return invalid("randomness_power", "must be >= 1, got %v", p.RandomnessPower)
	case !p.InsideColor.Valid():
		return invalid("inside_color", "channels must be in [0,1], got %+v", p.InsideColor)
	case !p.OutsideColor.Valid():
		return invalid("outside_color", "channels must be in [0,1], got %+v", p.OutsideColor)
	}
	return nil
}

func invalid(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}
