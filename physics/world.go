package physics

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// BodyHandle identifies a body in a World. The zero value refers to no body.
type BodyHandle struct {
	entity ecs.Entity
}

// IsZero reports whether h is the zero handle.
func (h BodyHandle) IsZero() bool {
	return h.entity.IsZero()
}

// Config holds world-wide simulation settings.
type Config struct {
	Gravity        r3.Vec
	Friction       float64    // Default contact friction coefficient
	Restitution    float64    // Default contact restitution
	LinearDamping  float64    // Fraction of linear velocity lost per second
	AngularDamping float64    // Fraction of angular velocity lost per second
	RestingSpeed   float64    // Approach speeds below this do not bounce
	Wind           *WindField // Optional, nil disables
}

// DefaultConfig matches a light gravity floor demo.
func DefaultConfig() Config {
	return Config{
		Gravity:        r3.Vec{Y: -2.82},
		Friction:       0.1,
		Restitution:    0.5,
		LinearDamping:  0.01,
		AngularDamping: 0.01,
		RestingSpeed:   0.1,
	}
}

// BodySpec describes a body to add.
type BodySpec struct {
	Shape       ShapeKind
	Radius      float64 // Sphere radius, ignored for planes
	Mass        float64 // Zero for static bodies
	Position    r3.Vec
	Orientation quat.Number // Zero value means identity
	Velocity    r3.Vec
	Material    string
}

// ContactMaterial overrides friction and restitution between two materials.
type ContactMaterial struct {
	Friction    float64
	Restitution float64
}

type materialKey struct{ a, b string }

func newMaterialKey(a, b string) materialKey {
	if b < a {
		a, b = b, a
	}
	return materialKey{a, b}
}

// World stores bodies as entities and advances them in fixed steps.
type World struct {
	cfg Config

	ecs    *ecs.World
	mapper *ecs.Map4[Transform, Motion, Rigid, Shape]
	filter *ecs.Filter4[Transform, Motion, Rigid, Shape]
	xfMap  *ecs.Map1[Transform]
	motMap *ecs.Map1[Motion]
	rigMap *ecs.Map1[Rigid]
	shpMap *ecs.Map1[Shape]

	materials map[materialKey]ContactMaterial

	bodies []bodyRef // Scratch for the contact pass
	time   float64
	steps  int64
	count  int
	broken bool
}

type bodyRef struct {
	entity ecs.Entity
	xf     *Transform
	mot    *Motion
	rig    *Rigid
	shp    *Shape
}

// NewWorld creates an empty world.
func NewWorld(cfg Config) *World {
	w := ecs.NewWorld()
	return &World{
		cfg:       cfg,
		ecs:       w,
		mapper:    ecs.NewMap4[Transform, Motion, Rigid, Shape](w),
		filter:    ecs.NewFilter4[Transform, Motion, Rigid, Shape](w),
		xfMap:     ecs.NewMap1[Transform](w),
		motMap:    ecs.NewMap1[Motion](w),
		rigMap:    ecs.NewMap1[Rigid](w),
		shpMap:    ecs.NewMap1[Shape](w),
		materials: make(map[materialKey]ContactMaterial),
	}
}

// Config returns the world settings.
func (w *World) Config() Config { return w.cfg }

// SetWind replaces the wind field. Nil disables wind.
func (w *World) SetWind(wind *WindField) { w.cfg.Wind = wind }

// AddContactMaterial sets friction and restitution for contacts between
// materials a and b, in either order.
func (w *World) AddContactMaterial(a, b string, m ContactMaterial) error {
	if m.Friction < 0 || m.Restitution < 0 || !finite(m.Friction) || !finite(m.Restitution) {
		return fmt.Errorf("%w: contact material %s/%s: friction %v restitution %v",
			ErrInvalidBody, a, b, m.Friction, m.Restitution)
	}
	w.materials[newMaterialKey(a, b)] = m
	return nil
}

func (w *World) contactMaterial(a, b string) ContactMaterial {
	if m, ok := w.materials[newMaterialKey(a, b)]; ok {
		return m
	}
	return ContactMaterial{Friction: w.cfg.Friction, Restitution: w.cfg.Restitution}
}

// AddBody validates spec and adds it to the world.
func (w *World) AddBody(spec BodySpec) (BodyHandle, error) {
	if err := spec.Validate(); err != nil {
		return BodyHandle{}, err
	}

	xf := Transform{Position: spec.Position, Orientation: spec.Orientation}
	if xf.Orientation == (quat.Number{}) {
		xf.Orientation = quat.Number{Real: 1}
	} else {
		xf.Orientation = normalize(xf.Orientation)
	}

	mot := Motion{Linear: spec.Velocity}
	rig := Rigid{Mass: spec.Mass, Material: spec.Material}
	if spec.Mass > 0 {
		rig.InvMass = 1 / spec.Mass
		if spec.Shape == ShapeSphere {
			// Solid sphere: I = 2/5 m r²
			rig.InvInertia = 1 / (0.4 * spec.Mass * spec.Radius * spec.Radius)
		}
	}
	shp := Shape{Kind: spec.Shape, Radius: spec.Radius}

	e := w.mapper.NewEntity(&xf, &mot, &rig, &shp)
	w.count++
	return BodyHandle{entity: e}, nil
}

// Validate reports whether AddBody would accept s.
func (s BodySpec) Validate() error {
	switch s.Shape {
	case ShapeSphere:
		if !(s.Radius > 0) || !finite(s.Radius) {
			return fmt.Errorf("%w: sphere radius %v must be positive", ErrInvalidBody, s.Radius)
		}
	case ShapePlane:
		if s.Mass != 0 {
			return fmt.Errorf("%w: planes must be static (mass %v)", ErrInvalidBody, s.Mass)
		}
	default:
		return fmt.Errorf("%w: unknown shape %d", ErrInvalidBody, s.Shape)
	}
	if s.Mass < 0 || !finite(s.Mass) {
		return fmt.Errorf("%w: mass %v", ErrInvalidBody, s.Mass)
	}
	if !finiteVec(s.Position) {
		return fmt.Errorf("%w: position %v", ErrInvalidBody, s.Position)
	}
	if !finiteVec(s.Velocity) {
		return fmt.Errorf("%w: velocity %v", ErrInvalidBody, s.Velocity)
	}
	if !finiteQuat(s.Orientation) {
		return fmt.Errorf("%w: orientation %v", ErrInvalidBody, s.Orientation)
	}
	return nil
}

// RemoveBody removes the body referenced by h.
func (w *World) RemoveBody(h BodyHandle) error {
	if !w.alive(h) {
		return ErrUnknownBody
	}
	w.ecs.RemoveEntity(h.entity)
	w.count--
	return nil
}

// Contains reports whether h refers to a live body.
func (w *World) Contains(h BodyHandle) bool {
	return w.alive(h)
}

func (w *World) alive(h BodyHandle) bool {
	return !h.IsZero() && w.ecs.Alive(h.entity)
}

// Transform returns the current pose of a body.
func (w *World) Transform(h BodyHandle) (Transform, bool) {
	if !w.alive(h) {
		return Transform{}, false
	}
	return *w.xfMap.Get(h.entity), true
}

// Velocity returns the linear and angular velocity of a body.
func (w *World) Velocity(h BodyHandle) (linear, angular r3.Vec, ok bool) {
	if !w.alive(h) {
		return r3.Vec{}, r3.Vec{}, false
	}
	m := w.motMap.Get(h.entity)
	return m.Linear, m.Angular, true
}

// ApplyForce adds a force through the body's center for the next step.
func (w *World) ApplyForce(h BodyHandle, f r3.Vec) error {
	if !w.alive(h) {
		return ErrUnknownBody
	}
	if !finiteVec(f) {
		return fmt.Errorf("%w: force %v", ErrInvalidBody, f)
	}
	m := w.motMap.Get(h.entity)
	m.Force = r3.Add(m.Force, f)
	return nil
}

// ApplyImpulse changes the body's velocity immediately. An off-center
// impulse at world-space point also spins the body.
func (w *World) ApplyImpulse(h BodyHandle, impulse, point r3.Vec) error {
	if !w.alive(h) {
		return ErrUnknownBody
	}
	if !finiteVec(impulse) || !finiteVec(point) {
		return fmt.Errorf("%w: impulse %v at %v", ErrInvalidBody, impulse, point)
	}
	rig := w.rigMap.Get(h.entity)
	if rig.Static() {
		return nil
	}
	m := w.motMap.Get(h.entity)
	xf := w.xfMap.Get(h.entity)
	m.Linear = r3.Add(m.Linear, r3.Scale(rig.InvMass, impulse))
	arm := r3.Sub(point, xf.Position)
	m.Angular = r3.Add(m.Angular, r3.Scale(rig.InvInertia, r3.Cross(arm, impulse)))
	return nil
}

// SetAngularVelocity replaces a dynamic body's spin.
func (w *World) SetAngularVelocity(h BodyHandle, angular r3.Vec) error {
	if !w.alive(h) {
		return ErrUnknownBody
	}
	if !finiteVec(angular) {
		return fmt.Errorf("%w: angular velocity %v", ErrInvalidBody, angular)
	}
	if w.rigMap.Get(h.entity).Static() {
		return nil
	}
	w.motMap.Get(h.entity).Angular = angular
	return nil
}

// Spec describes a live body as it would be re-added now.
func (w *World) Spec(h BodyHandle) (BodySpec, bool) {
	if !w.alive(h) {
		return BodySpec{}, false
	}
	xf := w.xfMap.Get(h.entity)
	rig := w.rigMap.Get(h.entity)
	shp := w.shpMap.Get(h.entity)
	return BodySpec{
		Shape:       shp.Kind,
		Radius:      shp.Radius,
		Mass:        rig.Mass,
		Position:    xf.Position,
		Orientation: xf.Orientation,
		Velocity:    w.motMap.Get(h.entity).Linear,
		Material:    rig.Material,
	}, true
}

// BodyCount returns the number of live bodies.
func (w *World) BodyCount() int { return w.count }

// Time returns the simulated time advanced so far.
func (w *World) Time() float64 { return w.time }

// Steps returns the number of completed steps.
func (w *World) Steps() int64 { return w.steps }

// Bodies returns handles to every live body.
func (w *World) Bodies() []BodyHandle {
	out := make([]BodyHandle, 0, w.count)
	query := w.filter.Query()
	for query.Next() {
		out = append(out, BodyHandle{entity: query.Entity()})
	}
	return out
}

// Reset removes all bodies and clears simulated time. Contact materials and
// settings are kept.
func (w *World) Reset() {
	// Collect first, entities cannot be removed while a query is open
	handles := w.Bodies()
	for _, h := range handles {
		w.ecs.RemoveEntity(h.entity)
	}
	w.count = 0
	w.time = 0
	w.steps = 0
	w.broken = false
}

// Step advances the world by dt seconds.
//
// Body state is validated before anything moves, so ErrInvalidBody and
// ErrInvalidStep leave the world untouched. ErrPartialStep means integration
// produced non-finite values and the world must be Reset.
func (w *World) Step(dt float64) error {
	if w.broken {
		return fmt.Errorf("%w: stepped after failure", ErrPartialStep)
	}
	if !(dt > 0) || !finite(dt) {
		return fmt.Errorf("%w: %v", ErrInvalidStep, dt)
	}

	w.collect()
	for i := range w.bodies {
		if err := w.bodies[i].check(); err != nil {
			return fmt.Errorf("%w: body %v: %v", ErrInvalidBody, w.bodies[i].entity, err)
		}
	}

	w.integrate(dt)
	w.resolveContacts()

	for i := range w.bodies {
		if err := w.bodies[i].check(); err != nil {
			w.broken = true
			slog.Error("physics step diverged", "entity", w.bodies[i].entity, "err", err)
			return fmt.Errorf("%w: body %v: %v", ErrPartialStep, w.bodies[i].entity, err)
		}
	}

	w.time += dt
	w.steps++
	return nil
}

// collect snapshots component pointers for the step. No entities are
// created or removed between collect and the end of Step.
func (w *World) collect() {
	w.bodies = w.bodies[:0]
	query := w.filter.Query()
	for query.Next() {
		xf, mot, rig, shp := query.Get()
		w.bodies = append(w.bodies, bodyRef{entity: query.Entity(), xf: xf, mot: mot, rig: rig, shp: shp})
	}
}

func (b *bodyRef) check() error {
	switch {
	case !finiteVec(b.xf.Position):
		return fmt.Errorf("position %v", b.xf.Position)
	case !finiteQuat(b.xf.Orientation):
		return fmt.Errorf("orientation %v", b.xf.Orientation)
	case !finiteVec(b.mot.Linear):
		return fmt.Errorf("velocity %v", b.mot.Linear)
	case !finiteVec(b.mot.Angular):
		return fmt.Errorf("angular velocity %v", b.mot.Angular)
	case !finiteVec(b.mot.Force):
		return fmt.Errorf("force %v", b.mot.Force)
	}
	return nil
}

// integrate applies forces and moves dynamic bodies (semi-implicit Euler).
func (w *World) integrate(dt float64) {
	linKeep := math.Pow(1-clamp01(w.cfg.LinearDamping), dt)
	angKeep := math.Pow(1-clamp01(w.cfg.AngularDamping), dt)

	for i := range w.bodies {
		b := &w.bodies[i]
		if b.rig.Static() {
			b.mot.Force = r3.Vec{}
			b.mot.Torque = r3.Vec{}
			continue
		}

		force := b.mot.Force
		if w.cfg.Wind != nil {
			force = r3.Add(force, w.cfg.Wind.Force(b.xf.Position, w.time))
		}
		acc := r3.Add(w.cfg.Gravity, r3.Scale(b.rig.InvMass, force))
		b.mot.Linear = r3.Scale(linKeep, r3.Add(b.mot.Linear, r3.Scale(dt, acc)))
		b.mot.Angular = r3.Scale(angKeep, r3.Add(b.mot.Angular, r3.Scale(dt*b.rig.InvInertia, b.mot.Torque)))

		b.xf.Position = r3.Add(b.xf.Position, r3.Scale(dt, b.mot.Linear))
		b.xf.Orientation = integrateOrientation(b.xf.Orientation, b.mot.Angular, dt)

		b.mot.Force = r3.Vec{}
		b.mot.Torque = r3.Vec{}
	}
}

// integrateOrientation advances q by angular velocity omega over dt:
// q' = q + dt/2 · (0, ω) q, renormalized.
func integrateOrientation(q quat.Number, omega r3.Vec, dt float64) quat.Number {
	if omega == (r3.Vec{}) {
		return q
	}
	spin := quat.Mul(quat.Number{Imag: omega.X, Jmag: omega.Y, Kmag: omega.Z}, q)
	return normalize(quat.Add(q, quat.Scale(dt/2, spin)))
}

func normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
