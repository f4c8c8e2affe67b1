package telemetry

import "github.com/pthm-cable/starfield/simloop"

// Collector accumulates frame events within windows and produces WindowStats.
type Collector struct {
	windowFrames int

	// Current window tracking
	windowStartFrame int64
	lastFrame        int64
	simTime          float64

	// Counters for current window
	frames        int
	steps         int
	dropped       float64
	stepErrors    int
	orphans       int
	spawns        int
	despawns      int
	regenerations int
	deltas        []float64
}

// NewCollector creates a new stats collector that flushes every
// windowFrames frames.
func NewCollector(windowFrames int) *Collector {
	if windowFrames < 1 {
		windowFrames = 1
	}
	return &Collector{
		windowFrames: windowFrames,
		deltas:       make([]float64, 0, windowFrames),
	}
}

// RecordFrame records one frame reported by the loop.
func (c *Collector) RecordFrame(fs simloop.FrameStats) {
	c.frames++
	c.steps += fs.Steps
	c.dropped += fs.Dropped
	c.orphans += fs.Orphans
	if fs.Err != nil {
		c.stepErrors++
	}
	c.deltas = append(c.deltas, fs.Delta)
	c.lastFrame = fs.Index
	c.simTime = fs.SimTime
}

// RecordSpawn records a body added to the scene.
func (c *Collector) RecordSpawn() {
	c.spawns++
}

// RecordDespawn records a body removed from the scene.
func (c *Collector) RecordDespawn() {
	c.despawns++
}

// RecordRegeneration records a galaxy regeneration.
func (c *Collector) RecordRegeneration() {
	c.regenerations++
}

// ShouldFlush returns true once the window holds enough frames.
func (c *Collector) ShouldFlush() bool {
	return c.frames >= c.windowFrames
}

// Flush produces a WindowStats and resets counters for the next window.
// bodies and particles are the scene counts at window end.
func (c *Collector) Flush(bodies, particles int) WindowStats {
	d := ComputeDeltaStats(c.deltas)

	stats := WindowStats{
		WindowStartFrame: c.windowStartFrame,
		WindowEndFrame:   c.lastFrame,
		SimTimeSec:       c.simTime,

		Frames:     c.frames,
		Steps:      c.steps,
		DroppedSec: c.dropped,
		StepErrors: c.stepErrors,
		Orphans:    c.orphans,

		Bodies:    bodies,
		Particles: particles,

		Spawns:        c.spawns,
		Despawns:      c.despawns,
		Regenerations: c.regenerations,

		DeltaMeanMS: d.Mean * 1000,
		DeltaStdMS:  d.Std * 1000,
		DeltaP50MS:  d.P50 * 1000,
		DeltaP95MS:  d.P95 * 1000,
		DeltaMaxMS:  d.Max * 1000,
	}
	if c.frames > 0 {
		stats.StepsPerFrame = float64(c.steps) / float64(c.frames)
	}
	if d.Mean > 0 {
		stats.FPS = 1 / d.Mean
	}

	// Reset for next window
	c.windowStartFrame = c.lastFrame + 1
	c.frames = 0
	c.steps = 0
	c.dropped = 0
	c.stepErrors = 0
	c.orphans = 0
	c.spawns = 0
	c.despawns = 0
	c.regenerations = 0
	c.deltas = c.deltas[:0]

	return stats
}

// WindowFrames returns the number of frames per window.
func (c *Collector) WindowFrames() int {
	return c.windowFrames
}
