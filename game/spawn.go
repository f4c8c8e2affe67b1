package game

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/starfield/physics"
	"github.com/pthm-cable/starfield/simloop"
)

// minSphereRadius keeps random spheres from degenerating to a point.
const minSphereRadius = 0.05

// Populate spawns the configured initial spheres.
func (g *Game) Populate() error {
	sc := g.cfg.Spawn
	for _, pos := range sc.Spheres {
		if _, err := g.SpawnSphere(sc.Radius, pos.R3()); err != nil {
			return err
		}
	}
	return nil
}

// SpawnSphere adds a sphere at rest and pairs it with a proxy.
func (g *Game) SpawnSphere(radius float64, pos r3.Vec) (physics.BodyHandle, error) {
	return g.spawn(physics.BodySpec{
		Shape:    physics.ShapeSphere,
		Radius:   radius,
		Mass:     g.cfg.Spawn.Mass,
		Position: pos,
		Material: g.cfg.Spawn.Material,
	})
}

func (g *Game) spawn(spec physics.BodySpec) (physics.BodyHandle, error) {
	h, err := g.world.AddBody(spec)
	if err != nil {
		return physics.BodyHandle{}, fmt.Errorf("spawning sphere: %w", err)
	}
	tr, _ := g.world.Transform(h)
	proxy := newSphereProxy(spec.Radius, g.cfg.Derived.SphereColor, tr)
	g.proxies[h] = proxy
	g.spheres = append(g.spheres, h)
	g.loop.Pairs().Add(h, proxy)
	g.collector.RecordSpawn()
	return h, nil
}

// SpawnRandomSphere drops a sphere of random size from above the floor.
func (g *Game) SpawnRandomSphere() (physics.BodyHandle, error) {
	sc := g.cfg.Spawn
	radius := max(g.rng.Float64()*sc.MaxRadius, minSphereRadius)
	pos := r3.Vec{
		X: (g.rng.Float64() - 0.5) * sc.Spread,
		Y: sc.Height - (g.rng.Float64()-0.5)*sc.Spread,
		Z: (g.rng.Float64() - 0.5) * sc.Spread,
	}
	return g.SpawnSphere(radius, pos)
}

// Despawn removes a sphere. The pair is removed before the body so the
// loop never mirrors a body that is gone.
func (g *Game) Despawn(h physics.BodyHandle) error {
	if _, ok := g.proxies[h]; !ok {
		return physics.ErrUnknownBody
	}
	g.loop.Pairs().Remove(h)
	delete(g.proxies, h)
	for i, s := range g.spheres {
		if s == h {
			g.spheres = append(g.spheres[:i], g.spheres[i+1:]...)
			break
		}
	}
	g.collector.RecordDespawn()
	if err := g.world.RemoveBody(h); err != nil {
		return fmt.Errorf("despawning sphere: %w", err)
	}
	return nil
}

// Reset removes every sphere. A halted scene is rebuilt: the world is
// cleared, the floor added back and a fresh loop started.
func (g *Game) Reset() error {
	if g.loop.State() != simloop.Halted {
		for len(g.spheres) > 0 {
			if err := g.Despawn(g.spheres[len(g.spheres)-1]); err != nil {
				return err
			}
		}
		return nil
	}

	for _, h := range g.spheres {
		g.collector.RecordDespawn()
		delete(g.proxies, h)
	}
	g.spheres = nil
	g.world.Reset()
	if err := g.addFloor(); err != nil {
		return err
	}
	if err := g.newLoop(); err != nil {
		return err
	}
	g.haltLog = false
	g.lastFrame = simloop.Frame{}
	if !g.paused {
		if err := g.loop.Start(); err != nil {
			return err
		}
	}
	slog.Info("scene recovered after halt")
	return nil
}
