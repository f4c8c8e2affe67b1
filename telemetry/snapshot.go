package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/starfield/galaxy"
	"github.com/pthm-cable/starfield/physics"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds a scene's state for replay: the galaxy that was showing and
// every dynamic body.
type Snapshot struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`

	Frame   int64   `json:"frame"`
	SimTime float64 `json:"sim_time"`

	Galaxy GalaxyState `json:"galaxy"`
	Bodies []BodyState `json:"bodies"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// GalaxyState is the JSON form of galaxy.Parameters.
type GalaxyState struct {
	Count           int     `json:"count"`
	Size            float32 `json:"size"`
	Radius          float32 `json:"radius"`
	Branches        int     `json:"branches"`
	Spin            float32 `json:"spin"`
	Randomness      float32 `json:"randomness"`
	RandomnessPower float32 `json:"randomness_power"`
	InsideColor     string  `json:"inside_color"`
	OutsideColor    string  `json:"outside_color"`
	ScaleJitter     bool    `json:"scale_jitter,omitempty"`
}

// NewGalaxyState converts parameters to their JSON form.
func NewGalaxyState(p galaxy.Parameters) GalaxyState {
	return GalaxyState{
		Count:           p.Count,
		Size:            p.Size,
		Radius:          p.Radius,
		Branches:        p.Branches,
		Spin:            p.Spin,
		Randomness:      p.Randomness,
		RandomnessPower: p.RandomnessPower,
		InsideColor:     p.InsideColor.Hex(),
		OutsideColor:    p.OutsideColor.Hex(),
		ScaleJitter:     p.ScaleJitter,
	}
}

// Parameters converts the JSON form back and validates it.
func (g GalaxyState) Parameters() (galaxy.Parameters, error) {
	inside, err := galaxy.ParseColor(g.InsideColor)
	if err != nil {
		return galaxy.Parameters{}, fmt.Errorf("inside color: %w", err)
	}
	outside, err := galaxy.ParseColor(g.OutsideColor)
	if err != nil {
		return galaxy.Parameters{}, fmt.Errorf("outside color: %w", err)
	}
	p := galaxy.Parameters{
		Count:           g.Count,
		Size:            g.Size,
		Radius:          g.Radius,
		Branches:        g.Branches,
		Spin:            g.Spin,
		Randomness:      g.Randomness,
		RandomnessPower: g.RandomnessPower,
		InsideColor:     inside,
		OutsideColor:    outside,
		ScaleJitter:     g.ScaleJitter,
	}
	return p, p.Validate()
}

// BodyState holds one body's complete state.
type BodyState struct {
	Radius   float64 `json:"radius"`
	Mass     float64 `json:"mass"`
	Material string  `json:"material,omitempty"`

	Position    [3]float64 `json:"position"`
	Orientation [4]float64 `json:"orientation"` // w, x, y, z
	Velocity    [3]float64 `json:"velocity"`
	Angular     [3]float64 `json:"angular"`
}

// NewBodyState captures a sphere's spec and current motion.
func NewBodyState(spec physics.BodySpec, tr physics.Transform, linear, angular r3.Vec) BodyState {
	q := tr.Orientation
	return BodyState{
		Radius:      spec.Radius,
		Mass:        spec.Mass,
		Material:    spec.Material,
		Position:    [3]float64{tr.Position.X, tr.Position.Y, tr.Position.Z},
		Orientation: [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag},
		Velocity:    [3]float64{linear.X, linear.Y, linear.Z},
		Angular:     [3]float64{angular.X, angular.Y, angular.Z},
	}
}

// Spec returns a body spec that recreates the body at its saved position
// and velocity. Angular velocity is returned separately.
func (b BodyState) Spec() (physics.BodySpec, r3.Vec) {
	return physics.BodySpec{
		Shape:       physics.ShapeSphere,
		Radius:      b.Radius,
		Mass:        b.Mass,
		Material:    b.Material,
		Position:    r3.Vec{X: b.Position[0], Y: b.Position[1], Z: b.Position[2]},
		Orientation: quat.Number{Real: b.Orientation[0], Imag: b.Orientation[1], Jmag: b.Orientation[2], Kmag: b.Orientation[3]},
		Velocity:    r3.Vec{X: b.Velocity[0], Y: b.Velocity[1], Z: b.Velocity[2]},
	}, r3.Vec{X: b.Angular[0], Y: b.Angular[1], Z: b.Angular[2]}
}

// Validate checks that the body can be recreated with Spec.
func (b BodyState) Validate() error {
	spec, angular := b.Spec()
	if err := spec.Validate(); err != nil {
		return err
	}
	for _, v := range []float64{angular.X, angular.Y, angular.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: angular velocity %v", physics.ErrInvalidBody, angular)
		}
	}
	return nil
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	// Build filename
	name := fmt.Sprintf("snapshot_%d", snapshot.Frame)
	if snapshot.Bookmark != nil {
		// Sanitize bookmark type for filename
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Frame, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snapshot.Version)
	}

	return &snapshot, nil
}
