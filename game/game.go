// Package game wires a galaxy field, a physics world and a simulation loop
// into one scene.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/starfield/config"
	"github.com/pthm-cable/starfield/galaxy"
	"github.com/pthm-cable/starfield/physics"
	"github.com/pthm-cable/starfield/simloop"
	"github.com/pthm-cable/starfield/telemetry"
)

// Options configures game behavior.
type Options struct {
	Config *config.Config // nil = embedded defaults
	Seed   int64          // RNG seed (0 = time-based)

	Surface  Surface       // nil = draw nothing
	Clock    simloop.Clock // nil = system clock, or a manual clock when Headless
	Headless bool          // UpdateHeadless advances a manual clock one fixed step per call

	LogStats      bool                        // Output stats via slog
	OutputDir     string                      // Directory for CSV output (empty = disabled)
	SnapshotDir   string                      // Directory for bookmark snapshots (empty = disabled)
	StatsCallback func(telemetry.WindowStats) // Optional, called on every stats flush
}

// Game holds one scene. Apart from OnParametersChanged and ApplyConfig,
// methods must be called from the goroutine that calls Update.
type Game struct {
	cfg     *config.Config
	seed    int64
	rng     *rand.Rand
	surface Surface

	field *galaxy.Field
	world *physics.World
	floor physics.BodyHandle

	loop   *simloop.Loop
	queue  *simloop.FrameQueue
	clock  simloop.Clock
	manual *simloop.ManualClock // Set in headless mode

	// Spheres in spawn order
	spheres []physics.BodyHandle
	proxies map[physics.BodyHandle]*sphereProxy

	// Parameter changes from other goroutines, drained at frame boundaries
	changes chan change

	paused    bool
	lastFrame simloop.Frame
	rendered  bool // The last Update ran a frame that rendered
	haltLog   bool

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	logStats         bool
	snapshotDir      string
	statsCallback    func(telemetry.WindowStats)
}

// change is one queued parameter update.
type change struct {
	params galaxy.Parameters
	motion *galaxy.Motion
	wind   **physics.WindField // Set by config reloads; points at nil to disable
}

// ErrChangeQueueFull is returned when parameter changes arrive faster than
// frames drain them.
var ErrChangeQueueFull = errors.New("game: parameter change queue full")

// ErrNoOutput is returned when saving needs a directory and none was set.
var ErrNoOutput = errors.New("game: no output or snapshot directory")

// NewGameWithOptions creates a scene: the galaxy from the config, a floor,
// the initial spheres and a started loop.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	surface := opts.Surface
	if surface == nil {
		surface = nopSurface{}
	}

	g := &Game{
		cfg:              cfg,
		seed:             seed,
		rng:              rand.New(rand.NewSource(seed)),
		surface:          surface,
		proxies:          make(map[physics.BodyHandle]*sphereProxy),
		changes:          make(chan change, 8),
		collector:        telemetry.NewCollector(cfg.Derived.StatsFrames),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarkDetector: telemetry.NewBookmarkDetector(10),
		logStats:         opts.LogStats,
		snapshotDir:      opts.SnapshotDir,
		statsCallback:    opts.StatsCallback,
	}

	g.clock = opts.Clock
	if opts.Headless {
		if mc, ok := opts.Clock.(*simloop.ManualClock); ok {
			g.manual = mc
		} else {
			g.manual = simloop.NewManualClock(time.Unix(0, 0))
		}
		g.clock = g.manual
	}

	// Galaxy
	params, err := cfg.GalaxyParameters()
	if err != nil {
		return nil, fmt.Errorf("galaxy parameters: %w", err)
	}
	// The field draws from its own source so spawning does not perturb it
	g.field, err = galaxy.NewField(params, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, fmt.Errorf("generating galaxy: %w", err)
	}
	g.field.SetMotion(cfg.GalaxyMotion())
	g.field.OnRelease = g.surface.ReleaseParticles
	g.surface.SetParticles(g.field.Buffer())

	// Physics
	g.world = physics.NewWorld(cfg.PhysicsConfig(seed))
	if err := g.addFloor(); err != nil {
		return nil, err
	}
	if err := g.newLoop(); err != nil {
		return nil, err
	}
	if err := g.Populate(); err != nil {
		return nil, err
	}

	// Output
	g.outputManager, err = telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := g.outputManager.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	if err := g.loop.Start(); err != nil {
		return nil, err
	}

	slog.Info("scene ready",
		"seed", seed,
		"particles", g.field.Buffer().Len(),
		"spheres", len(g.spheres),
		"headless", opts.Headless,
	)
	return g, nil
}

func (g *Game) addFloor() error {
	h, err := g.world.AddBody(physics.BodySpec{
		Shape:       physics.ShapePlane,
		Orientation: physics.FromAxisAngle(r3.Vec{X: -1}, math.Pi/2),
		Material:    g.cfg.Spawn.Material,
	})
	if err != nil {
		return fmt.Errorf("adding floor: %w", err)
	}
	g.floor = h
	return nil
}

// newLoop replaces the simulation loop. Pairs live in the loop, so every
// sphere is paired again.
func (g *Game) newLoop() error {
	g.queue = &simloop.FrameQueue{}
	loop, err := simloop.New(g.world, g.render, simloop.Options{
		FixedStep:        g.cfg.Loop.FixedStep,
		MaxStepsPerFrame: g.cfg.Loop.MaxStepsPerFrame,
		Scheduler:        g.queue,
		Clock:            g.clock,
		Timer:            g.perfCollector,
		OnFrame:          g.onFrame,
		OnError: func(err error) {
			if errors.Is(err, simloop.ErrOrphanPair) {
				slog.Debug("orphaned pair", "error", err)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("creating loop: %w", err)
	}
	g.loop = loop
	for _, h := range g.spheres {
		g.loop.Pairs().Add(h, g.proxies[h])
	}
	return nil
}

// Update runs at most one frame. Queued parameter changes are applied first.
// When no frame renders (paused, failed or halted) the last frame is drawn
// again so the window keeps refreshing.
func (g *Game) Update() {
	g.drainChanges()

	g.rendered = false
	g.queue.RunNext()
	if g.rendered {
		return
	}

	if g.loop.State() == simloop.Halted && !g.haltLog {
		slog.Error("simulation halted, reset to recover", "error", g.loop.Err())
		g.haltLog = true
	}
	g.surface.Render(g.view(g.lastFrame))
}

// UpdateHeadless advances the manual clock by one fixed step and updates.
func (g *Game) UpdateHeadless() {
	if g.manual != nil {
		g.manual.Advance(time.Duration(math.Ceil(g.cfg.Loop.FixedStep * float64(time.Second))))
	}
	g.Update()
}

// RunHeadless calls UpdateHeadless until ctx is done, maxFrames frames have
// run (0 = unlimited) or the loop halts. It returns the halting error.
func (g *Game) RunHeadless(ctx context.Context, maxFrames int64) error {
	for ctx.Err() == nil {
		g.UpdateHeadless()

		if g.loop.State() == simloop.Halted {
			return g.loop.Err()
		}
		if maxFrames > 0 && g.Frames() >= maxFrames {
			slog.Info("max frames reached", "frame", g.Frames(), "sim_time", g.SimTime())
			break
		}
	}
	return nil
}

// render is the loop's render callback.
func (g *Game) render(f simloop.Frame) {
	g.lastFrame = f
	g.rendered = true
	if g.field.Animate(f.SimTime) {
		g.surface.UpdateParticles(g.field.Buffer())
	}
	g.surface.Render(g.view(f))
}

func (g *Game) view(f simloop.Frame) View {
	tilt, yaw := g.field.Motion().Angles(f.SimTime)
	v := View{
		Frame:   f,
		TiltX:   tilt,
		Yaw:     yaw,
		Spheres: make([]SphereView, 0, len(g.spheres)),
		Paused:  g.paused,
		Halted:  g.loop.State() == simloop.Halted,
	}
	if buf := g.field.Buffer(); buf != nil {
		v.PointSize = buf.Size
	}
	if tr, ok := g.world.Transform(g.floor); ok {
		v.Floor = tr
	}
	for _, h := range g.spheres {
		v.Spheres = append(v.Spheres, g.proxies[h].view())
	}
	return v
}

// SetPaused stops or restarts the loop. Time spent paused is not simulated.
func (g *Game) SetPaused(paused bool) {
	if paused == g.paused {
		return
	}
	if paused {
		g.loop.Stop()
		g.paused = true
		return
	}
	if err := g.loop.Start(); err != nil {
		slog.Warn("cannot resume", "error", err)
		return
	}
	g.paused = false
}

// TogglePause flips the paused state.
func (g *Game) TogglePause() { g.SetPaused(!g.paused) }

// Paused reports whether the loop is paused.
func (g *Game) Paused() bool { return g.paused }

// Frames returns the number of frames the current loop has run.
func (g *Game) Frames() int64 { return g.loop.Frames() }

// SimTime returns simulated seconds since the loop was created.
func (g *Game) SimTime() float64 { return g.loop.SimTime() }

// State returns the loop state.
func (g *Game) State() simloop.State { return g.loop.State() }

// Err returns the error that halted the loop, if any.
func (g *Game) Err() error { return g.loop.Err() }

// Seed returns the RNG seed.
func (g *Game) Seed() int64 { return g.seed }

// Field returns the galaxy field.
func (g *Game) Field() *galaxy.Field { return g.field }

// World returns the physics world.
func (g *Game) World() *physics.World { return g.world }

// Spheres returns the live spheres in spawn order.
func (g *Game) Spheres() []physics.BodyHandle {
	return append([]physics.BodyHandle(nil), g.spheres...)
}

// PerfStats returns frame timing over the collector window.
func (g *Game) PerfStats() telemetry.PerfStats { return g.perfCollector.Stats() }

// RecordPresent marks a presented display frame for FPS tracking.
func (g *Game) RecordPresent() { g.perfCollector.RecordPresent() }

// Config returns the scene configuration. Galaxy changes are written back
// into it.
func (g *Game) Config() *config.Config { return g.cfg }

// Unload stops the loop and releases resources.
func (g *Game) Unload() {
	g.loop.Stop()
	g.field.Close()
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}
