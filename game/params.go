package game

import (
	"log/slog"

	"github.com/pthm-cable/starfield/config"
	"github.com/pthm-cable/starfield/galaxy"
	"github.com/pthm-cable/starfield/telemetry"
)

// OnParametersChanged queues a regeneration with p. Invalid parameters are
// rejected immediately and the current galaxy stays. Safe to call from any
// goroutine; the galaxy is regenerated at the next frame boundary.
func (g *Game) OnParametersChanged(p galaxy.Parameters) error {
	return g.enqueue(change{params: p})
}

// ApplyConfig queues the galaxy section of a reloaded config, including its
// motion settings. Safe to call from any goroutine.
func (g *Game) ApplyConfig(cfg *config.Config) error {
	p, err := cfg.GalaxyParameters()
	if err != nil {
		return err
	}
	motion := cfg.GalaxyMotion()
	wind := cfg.PhysicsConfig(g.seed).Wind
	return g.enqueue(change{params: p, motion: &motion, wind: &wind})
}

func (g *Game) enqueue(c change) error {
	if err := c.params.Validate(); err != nil {
		return err
	}
	select {
	case g.changes <- c:
		return nil
	default:
		return ErrChangeQueueFull
	}
}

// drainChanges applies queued changes. Only the newest parameter set is
// generated; earlier ones would be replaced before anyone saw them.
func (g *Game) drainChanges() {
	var latest *change
	for {
		select {
		case c := <-g.changes:
			if latest != nil && latest.motion != nil && c.motion == nil {
				c.motion = latest.motion
			}
			if latest != nil && latest.wind != nil && c.wind == nil {
				c.wind = latest.wind
			}
			latest = &c
			continue
		default:
		}
		break
	}
	if latest == nil {
		return
	}
	if latest.motion != nil {
		g.field.SetMotion(*latest.motion)
	}
	if latest.wind != nil {
		g.world.SetWind(*latest.wind)
	}
	if latest.params == g.field.Parameters() {
		return
	}
	if err := g.regenerate(func() error { return g.field.OnParametersChanged(latest.params) }); err != nil {
		slog.Warn("regeneration rejected", "error", err)
	}
}

// Regenerate redraws the galaxy with fresh random draws.
func (g *Game) Regenerate() error {
	return g.regenerate(g.field.Regenerate)
}

func (g *Game) regenerate(fn func() error) error {
	var err error
	g.perfCollector.TimePhase(telemetry.PhaseGenerate, func() { err = fn() })
	if err != nil {
		return err
	}
	g.surface.SetParticles(g.field.Buffer())
	g.cfg.SetGalaxyParameters(g.field.Parameters())
	g.collector.RecordRegeneration()
	return nil
}

// Parameters returns the parameters of the displayed galaxy.
func (g *Game) Parameters() galaxy.Parameters { return g.field.Parameters() }
