package game

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/starfield/config"
	"github.com/pthm-cable/starfield/galaxy"
	"github.com/pthm-cable/starfield/physics"
	"github.com/pthm-cable/starfield/simloop"
	"github.com/pthm-cable/starfield/telemetry"
)

// recordingSurface remembers what the game asked it to draw.
type recordingSurface struct {
	installed []*galaxy.Buffer
	released  []*galaxy.Buffer
	updated   int
	views     []View
}

func (s *recordingSurface) SetParticles(b *galaxy.Buffer)     { s.installed = append(s.installed, b) }
func (s *recordingSurface) ReleaseParticles(b *galaxy.Buffer) { s.released = append(s.released, b) }
func (s *recordingSurface) UpdateParticles(b *galaxy.Buffer)  { s.updated++ }
func (s *recordingSurface) Render(v View)                     { s.views = append(s.views, v) }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Galaxy.Count = 500
	return cfg
}

func newTestGame(t *testing.T, opts Options) (*Game, *recordingSurface) {
	t.Helper()
	surface := &recordingSurface{}
	if opts.Config == nil {
		opts.Config = testConfig()
	}
	if opts.Seed == 0 {
		opts.Seed = 42
	}
	opts.Surface = surface
	opts.Headless = true
	g, err := NewGameWithOptions(opts)
	require.NoError(t, err)
	t.Cleanup(g.Unload)
	return g, surface
}

func run(g *Game, frames int) {
	for i := 0; i < frames; i++ {
		g.UpdateHeadless()
	}
}

func TestNewGameBuildsScene(t *testing.T) {
	g, surface := newTestGame(t, Options{})

	assert.Equal(t, simloop.Running, g.State())
	assert.Len(t, g.Spheres(), 3)
	assert.Equal(t, 4, g.World().BodyCount(), "three spheres and the floor")
	assert.Equal(t, 500, g.Field().Buffer().Len())
	require.Len(t, surface.installed, 1)
	assert.Same(t, g.Field().Buffer(), surface.installed[0])
}

func TestUpdateHeadlessStepsOncePerFrame(t *testing.T) {
	g, surface := newTestGame(t, Options{})

	run(g, 60)

	assert.Equal(t, int64(60), g.Frames())
	assert.InDelta(t, 1.0, g.SimTime(), 1e-6)
	require.Len(t, surface.views, 60)
	last := surface.views[59]
	assert.Equal(t, 1, last.Frame.Steps)
	assert.Len(t, last.Spheres, 3)
	assert.InDelta(t, 0.02, float64(last.PointSize), 1e-6)

	// Galaxy rotates with simulated time
	assert.InDelta(t, math.Pi*0.05*last.Frame.SimTime, float64(last.Yaw), 1e-5)
	assert.InDelta(t, 0.5, float64(last.TiltX), 1e-6)
}

func TestProxiesMirrorBodies(t *testing.T) {
	g, _ := newTestGame(t, Options{})

	run(g, 90)

	for _, h := range g.Spheres() {
		want, ok := g.World().Transform(h)
		require.True(t, ok)
		assert.Equal(t, want, g.proxies[h].transform)
		assert.Equal(t, int64(90), g.proxies[h].mirrored)
		assert.Less(t, want.Position.Y, 3.0, "spheres fall")
	}
}

func TestParameterChangeAppliesAtFrameBoundary(t *testing.T) {
	g, surface := newTestGame(t, Options{})
	old := g.Field().Buffer()

	p := g.Parameters()
	p.Branches = 7
	require.NoError(t, g.OnParametersChanged(p))

	// Nothing changes until the next update
	assert.Equal(t, 4, g.Parameters().Branches)
	assert.Same(t, old, g.Field().Buffer())

	g.UpdateHeadless()

	assert.Equal(t, 7, g.Parameters().Branches)
	assert.Equal(t, 7, g.Config().Galaxy.Branches)
	require.Len(t, surface.installed, 2)
	assert.Same(t, g.Field().Buffer(), surface.installed[1])
	require.Len(t, surface.released, 1)
	assert.Same(t, old, surface.released[0])
	assert.True(t, old.Released())
}

func TestParameterChangesCoalesce(t *testing.T) {
	g, surface := newTestGame(t, Options{})

	p := g.Parameters()
	for _, n := range []int{5, 6, 8} {
		p.Branches = n
		require.NoError(t, g.OnParametersChanged(p))
	}
	g.UpdateHeadless()

	assert.Equal(t, 8, g.Parameters().Branches)
	assert.Len(t, surface.installed, 2, "only the newest set is generated")
	assert.Equal(t, 2, g.Field().Generations())
}

func TestInvalidParametersRejected(t *testing.T) {
	g, _ := newTestGame(t, Options{})
	before := g.Field().Buffer()

	p := g.Parameters()
	p.Branches = 0
	err := g.OnParametersChanged(p)

	var cfgErr *galaxy.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "branches", cfgErr.Field)

	g.UpdateHeadless()
	assert.Same(t, before, g.Field().Buffer())
}

func TestParameterQueueFull(t *testing.T) {
	g, _ := newTestGame(t, Options{})
	p := g.Parameters()

	for i := 0; i < cap(g.changes); i++ {
		require.NoError(t, g.OnParametersChanged(p))
	}
	assert.ErrorIs(t, g.OnParametersChanged(p), ErrChangeQueueFull)

	g.UpdateHeadless()
	assert.NoError(t, g.OnParametersChanged(p))
}

func TestApplyConfigUpdatesMotion(t *testing.T) {
	g, _ := newTestGame(t, Options{})

	cfg := testConfig()
	cfg.Galaxy.Tilt = 1.2
	cfg.Galaxy.RotationSpeed = 0.2
	cfg.Galaxy.Spin = -1
	cfg.Physics.Wind.Enabled = true
	require.NoError(t, g.ApplyConfig(cfg))
	g.UpdateHeadless()

	assert.Equal(t, galaxy.Motion{Tilt: 1.2, RotationSpeed: 0.2, WaveSpeed: 1}, g.Field().Motion())
	assert.Equal(t, float32(-1), g.Parameters().Spin)
	assert.NotNil(t, g.World().Config().Wind)

	cfg.Physics.Wind.Enabled = false
	require.NoError(t, g.ApplyConfig(cfg))
	g.UpdateHeadless()
	assert.Nil(t, g.World().Config().Wind)
}

func TestParticleWaveFollowsSimTime(t *testing.T) {
	cfg := testConfig()
	cfg.Galaxy.WaveAmplitude = 0.25
	g, surface := newTestGame(t, Options{Config: cfg})

	buf := g.Field().Buffer()
	generated := append([]float32(nil), buf.Positions...)

	run(g, 30)
	assert.Equal(t, 30, surface.updated, "one refresh per rendered frame")
	assert.Same(t, buf, g.Field().Buffer())

	moved := 0
	for i := 0; i < buf.Len(); i++ {
		x, y, z := buf.Position(i)
		assert.Equal(t, generated[i*3], x)
		assert.Equal(t, generated[i*3+2], z)
		want := float64(generated[i*3+1]) + 0.25*math.Sin(g.SimTime()+float64(x))
		assert.InDelta(t, want, float64(y), 1e-3)
		if y != generated[i*3+1] {
			moved++
		}
	}
	assert.Positive(t, moved)

	// Paused frames redraw without moving the particles
	g.SetPaused(true)
	run(g, 5)
	assert.Equal(t, 30, surface.updated)
}

func TestNoWaveLeavesBufferAlone(t *testing.T) {
	g, surface := newTestGame(t, Options{})
	generated := append([]float32(nil), g.Field().Buffer().Positions...)
	run(g, 10)
	assert.Zero(t, surface.updated)
	assert.Equal(t, generated, g.Field().Buffer().Positions)
}

func TestSpawnAndDespawn(t *testing.T) {
	g, _ := newTestGame(t, Options{})

	h, err := g.SpawnRandomSphere()
	require.NoError(t, err)
	assert.Len(t, g.Spheres(), 4)
	assert.Equal(t, 4, g.loop.Pairs().Len())

	spec, ok := g.World().Spec(h)
	require.True(t, ok)
	assert.GreaterOrEqual(t, spec.Radius, minSphereRadius)
	assert.LessOrEqual(t, spec.Radius, g.Config().Spawn.MaxRadius)

	require.NoError(t, g.Despawn(h))
	assert.Len(t, g.Spheres(), 3)
	assert.Equal(t, 3, g.loop.Pairs().Len())
	assert.False(t, g.World().Contains(h))

	assert.ErrorIs(t, g.Despawn(h), physics.ErrUnknownBody)
	assert.ErrorIs(t, g.Despawn(g.floor), physics.ErrUnknownBody, "the floor is not a sphere")

	run(g, 5)
	assert.Equal(t, int64(5), g.Frames())
	assert.Equal(t, 0, g.collector.Flush(0, 0).Orphans)
}

func TestSpawnSphereRejectsInvalid(t *testing.T) {
	g, _ := newTestGame(t, Options{})

	_, err := g.SpawnSphere(-1, r3.Vec{Y: 2})
	assert.ErrorIs(t, err, physics.ErrInvalidBody)
	assert.Len(t, g.Spheres(), 3)
}

func TestResetRemovesSpheres(t *testing.T) {
	g, _ := newTestGame(t, Options{})
	run(g, 10)

	require.NoError(t, g.Reset())

	assert.Empty(t, g.Spheres())
	assert.Equal(t, 0, g.loop.Pairs().Len())
	assert.Equal(t, 1, g.World().BodyCount(), "floor stays")
	assert.Equal(t, simloop.Running, g.State())

	run(g, 5)
	assert.Equal(t, int64(15), g.Frames())
}

func TestPauseDoesNotCatchUp(t *testing.T) {
	g, surface := newTestGame(t, Options{})
	run(g, 10)

	g.SetPaused(true)
	assert.True(t, g.Paused())
	run(g, 30)
	assert.Equal(t, int64(10), g.Frames())
	assert.Len(t, surface.views, 40, "paused frames still draw")
	assert.True(t, surface.views[39].Paused)

	before := g.SimTime()
	g.TogglePause()
	run(g, 1)
	assert.False(t, g.Paused())
	assert.InDelta(t, before+g.Config().Loop.FixedStep, g.SimTime(), 1e-6)
}

func TestHaltAndRecover(t *testing.T) {
	g, surface := newTestGame(t, Options{})
	run(g, 3)

	// A feather pushed with the largest force overflows the integrator
	h, err := g.World().AddBody(physics.BodySpec{
		Shape:    physics.ShapeSphere,
		Radius:   0.5,
		Mass:     1e-10,
		Position: r3.Vec{Y: 10},
	})
	require.NoError(t, err)
	require.NoError(t, g.World().ApplyForce(h, r3.Vec{Y: math.MaxFloat64}))

	g.UpdateHeadless()
	require.Equal(t, simloop.Halted, g.State())
	require.ErrorIs(t, g.Err(), physics.ErrPartialStep)

	// The halted frame and later ones redraw the last good frame
	run(g, 2)
	assert.Len(t, surface.views, 6)
	assert.True(t, surface.views[5].Halted)
	assert.Equal(t, int64(2), surface.views[5].Frame.Index)

	require.NoError(t, g.Reset())
	assert.Equal(t, simloop.Running, g.State())
	assert.Equal(t, 1, g.World().BodyCount())

	run(g, 3)
	assert.Equal(t, int64(3), g.Frames())
	assert.NoError(t, g.Err())
}

func TestRunHeadless(t *testing.T) {
	g, _ := newTestGame(t, Options{})
	require.NoError(t, g.RunHeadless(context.Background(), 12))
	assert.Equal(t, int64(12), g.Frames())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, g.RunHeadless(ctx, 0))
	assert.Equal(t, int64(12), g.Frames())
}

func TestRunHeadlessStopsWhenHalted(t *testing.T) {
	g, _ := newTestGame(t, Options{})
	h, err := g.World().AddBody(physics.BodySpec{
		Shape:    physics.ShapeSphere,
		Radius:   0.5,
		Mass:     1e-10,
		Position: r3.Vec{Y: 10},
	})
	require.NoError(t, err)
	require.NoError(t, g.World().ApplyForce(h, r3.Vec{Y: math.MaxFloat64}))

	// Unlimited frames: only the halt can end the run
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = g.RunHeadless(ctx, 0)
	require.ErrorIs(t, err, physics.ErrPartialStep)
	assert.NoError(t, ctx.Err())
	assert.Equal(t, simloop.Halted, g.State())
}

func TestSnapshotRestore(t *testing.T) {
	g, _ := newTestGame(t, Options{})
	run(g, 30)

	snap := g.Snapshot(nil)
	require.Len(t, snap.Bodies, 3)
	assert.Equal(t, int64(30), snap.Frame)
	assert.Equal(t, int64(42), snap.Seed)

	_, err := g.SpawnRandomSphere()
	require.NoError(t, err)
	p := g.Parameters()
	p.Branches = 2
	require.NoError(t, g.OnParametersChanged(p))
	run(g, 30)

	require.NoError(t, g.Restore(snap))

	require.Len(t, g.Spheres(), 3)
	for i, h := range g.Spheres() {
		tr, ok := g.World().Transform(h)
		require.True(t, ok)
		want := snap.Bodies[i].Position
		assert.InDelta(t, want[1], tr.Position.Y, 1e-12)
		assert.Equal(t, tr, g.proxies[h].transform)
	}
	assert.Equal(t, 4, g.Parameters().Branches)
}

func TestRestoreRejectsBadBodyWithoutClearing(t *testing.T) {
	g, _ := newTestGame(t, Options{})
	run(g, 10)

	snap := g.Snapshot(nil)
	snap.Bodies[1].Radius = -1
	snap.Galaxy.Branches = 2

	before := g.Spheres()
	buf := g.Field().Buffer()
	err := g.Restore(snap)
	require.ErrorIs(t, err, physics.ErrInvalidBody)

	assert.Equal(t, before, g.Spheres())
	assert.Equal(t, 3, g.loop.Pairs().Len())
	assert.Same(t, buf, g.Field().Buffer())
	assert.Equal(t, 4, g.Parameters().Branches)
	assert.Equal(t, int64(10), g.Frames())
}

func TestRestoreReproducesInitialGalaxy(t *testing.T) {
	a, _ := newTestGame(t, Options{Seed: 7})
	b, _ := newTestGame(t, Options{Seed: 9})

	require.NoError(t, b.Restore(a.Snapshot(nil)))
	assert.Equal(t, a.Field().Buffer().Positions, b.Field().Buffer().Positions)
	assert.Equal(t, a.Field().Buffer().Colors, b.Field().Buffer().Colors)
}

func TestStatsCallbackAndOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	var windows []telemetry.WindowStats
	g, _ := newTestGame(t, Options{
		OutputDir:     dir,
		StatsCallback: func(s telemetry.WindowStats) { windows = append(windows, s) },
	})

	run(g, 120)

	require.Len(t, windows, 2)
	assert.Equal(t, 60, windows[0].Frames)
	assert.Equal(t, 60, windows[0].Steps)
	assert.Equal(t, 3, windows[0].Bodies)
	assert.Equal(t, 500, windows[0].Particles)
	assert.Equal(t, 3, windows[0].Spawns, "initial spheres")
	assert.Equal(t, int64(119), windows[1].WindowEndFrame)

	for _, name := range []string{"frames.csv", "perf.csv", "bookmarks.csv", "config.yaml"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	path := filepath.Join(dir, "particles.csv")
	require.NoError(t, g.ExportParticles(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "index,x,y,z,r,g,b")
}

func TestOutputDirReceivesSnapshotsAndParticles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	g, _ := newTestGame(t, Options{OutputDir: dir})

	// Six windows: the steady-state bookmark needs five after the first
	run(g, 360)
	bookmarked, err := filepath.Glob(filepath.Join(dir, "snapshots", "*_steady_state.json"))
	require.NoError(t, err)
	assert.Len(t, bookmarked, 1)

	path, err := g.SaveSnapshot()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "snapshots"), filepath.Dir(path))
	snap, err := telemetry.LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, int64(360), snap.Frame)
	assert.Nil(t, snap.Bookmark)

	require.NoError(t, g.ExportParticles(""))
	data, err := os.ReadFile(filepath.Join(dir, "particles.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "index,x,y,z,r,g,b")
}

func TestSnapshotDirTakesPrecedence(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	snaps := filepath.Join(t.TempDir(), "snaps")
	g, _ := newTestGame(t, Options{OutputDir: out, SnapshotDir: snaps})

	path, err := g.SaveSnapshot()
	require.NoError(t, err)
	assert.Equal(t, snaps, filepath.Dir(path))
}

func TestSavingWithoutDirectories(t *testing.T) {
	g, _ := newTestGame(t, Options{})
	run(g, 360)

	_, err := g.SaveSnapshot()
	assert.ErrorIs(t, err, ErrNoOutput)
	assert.ErrorIs(t, g.ExportParticles(""), ErrNoOutput)
}
