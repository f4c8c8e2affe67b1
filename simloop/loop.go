// Package simloop drives a fixed-step physics world from a variable-rate
// frame callback and mirrors body transforms onto their visual proxies.
package simloop

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/pthm-cable/starfield/physics"
)

// Phase names reported to a PhaseTimer.
const (
	PhasePhysics = "physics"
	PhaseMirror  = "mirror"
	PhaseRender  = "render"
)

// World is the physics the loop advances.
type World interface {
	Step(dt float64) error
	Transform(physics.BodyHandle) (physics.Transform, bool)
}

// PhaseTimer receives per-frame phase boundaries.
// *telemetry.PerfCollector satisfies it.
type PhaseTimer interface {
	BeginFrame()
	StartPhase(phase string)
	EndFrame()
}

// Frame describes one completed frame, passed to the render callback.
type Frame struct {
	Index   int64   // Zero-based frame number since New
	Delta   float64 // Wall-clock seconds since the previous frame
	Steps   int     // Fixed steps taken this frame
	SimTime float64 // Total simulated seconds after this frame
	Alpha   float64 // Leftover accumulator as a fraction of one step
}

// FrameStats summarizes a frame for telemetry, including failed ones.
type FrameStats struct {
	Frame
	Dropped  float64 // Seconds discarded by the step cap
	Orphans  int     // Pairs dropped during mirroring
	Rendered bool
	Err      error
}

// RenderFunc draws a frame after the proxies have been updated.
type RenderFunc func(Frame)

// Options configures a Loop. Zero values take defaults.
type Options struct {
	FixedStep        float64 // Seconds per physics step, default 1/60
	MaxStepsPerFrame int     // Default 3

	Scheduler Scheduler // Default: a FrameQueue the host must drain
	Clock     Clock     // Default: SystemClock
	Timer     PhaseTimer

	// OnError receives step failures and orphaned pairs.
	OnError func(error)
	// OnFrame receives stats for every frame that ran.
	OnFrame func(FrameStats)
}

// State is the lifecycle state of a Loop.
type State int

const (
	Idle State = iota
	Running
	Stopped
	Halted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Halted:
		return "halted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Loop owns the step, mirror and render cycle for one world.
//
// Frames run on whichever goroutine drives the scheduler and never overlap.
// Start and Stop may be called from any goroutine.
type Loop struct {
	world  World
	render RenderFunc
	opts   Options
	pairs  *Pairs

	mu      sync.Mutex
	state   State
	gen     uint64 // Bumped by Start and Stop; stale callbacks compare against it
	inFrame bool
	err     error

	// Frame-goroutine state, published under mu at the end of each frame
	last        time.Time
	accumulated float64
	simTime     float64
	frames      int64
}

// New creates an idle loop.
func New(world World, render RenderFunc, opts Options) (*Loop, error) {
	if world == nil {
		return nil, fmt.Errorf("%w: nil world", ErrInvalidOptions)
	}
	if opts.FixedStep == 0 {
		opts.FixedStep = 1.0 / 60
	}
	if opts.MaxStepsPerFrame == 0 {
		opts.MaxStepsPerFrame = 3
	}
	if !(opts.FixedStep > 0) || math.IsInf(opts.FixedStep, 0) {
		return nil, fmt.Errorf("%w: fixed step %v", ErrInvalidOptions, opts.FixedStep)
	}
	if opts.MaxStepsPerFrame < 1 {
		return nil, fmt.Errorf("%w: max steps per frame %d", ErrInvalidOptions, opts.MaxStepsPerFrame)
	}
	if opts.Scheduler == nil {
		opts.Scheduler = &FrameQueue{}
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if render == nil {
		render = func(Frame) {}
	}
	return &Loop{
		world:  world,
		render: render,
		opts:   opts,
		pairs:  NewPairs(),
	}, nil
}

// Start schedules the first frame. A stopped loop may be started again;
// time spent stopped is not simulated.
func (l *Loop) Start() error {
	l.mu.Lock()
	switch l.state {
	case Running:
		l.mu.Unlock()
		return ErrAlreadyRunning
	case Halted:
		err := l.err
		l.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrHalted, err)
	}
	l.state = Running
	l.gen++
	gen := l.gen
	l.last = l.opts.Clock.Now()
	l.mu.Unlock()

	l.schedule(gen)
	return nil
}

// Stop prevents any further frame from running. A frame already in flight
// finishes mirroring and rendering but does not reschedule. Stop is
// idempotent.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Running {
		l.state = Stopped
		l.gen++
	}
}

func (l *Loop) schedule(gen uint64) {
	l.opts.Scheduler.Schedule(func() { l.frame(gen) })
}

// frame runs one step, mirror and render cycle.
func (l *Loop) frame(gen uint64) {
	l.mu.Lock()
	if l.state != Running || l.gen != gen {
		l.mu.Unlock()
		return
	}
	if l.inFrame {
		l.mu.Unlock()
		panic("simloop: frame re-entered while another frame is running")
	}
	l.inFrame = true
	l.mu.Unlock()

	stats := l.runFrame()

	l.mu.Lock()
	l.inFrame = false
	if stats.Err != nil && errors.Is(stats.Err, physics.ErrPartialStep) {
		l.state = Halted
		l.err = stats.Err
	}
	again := l.state == Running && l.gen == gen
	l.mu.Unlock()

	if stats.Err != nil {
		slog.Error("frame failed", "frame", stats.Index, "error", stats.Err)
		l.reportError(stats.Err)
	}
	if l.opts.OnFrame != nil {
		l.opts.OnFrame(stats)
	}
	if again {
		l.schedule(gen)
	}
}

func (l *Loop) runFrame() FrameStats {
	fixed := l.opts.FixedStep
	timer := l.opts.Timer
	if timer != nil {
		timer.BeginFrame()
		defer timer.EndFrame()
	}

	now := l.opts.Clock.Now()
	l.mu.Lock()
	delta := now.Sub(l.last).Seconds()
	l.last = now
	index := l.frames
	l.frames++
	l.mu.Unlock()
	if delta < 0 {
		delta = 0
	}

	acc := l.accumulated + delta
	steps := int(math.Floor(acc / fixed))
	if steps > l.opts.MaxStepsPerFrame {
		steps = l.opts.MaxStepsPerFrame
	}

	stats := FrameStats{Frame: Frame{Index: index, Delta: delta}}

	if timer != nil {
		timer.StartPhase(PhasePhysics)
	}
	for i := 0; i < steps; i++ {
		if err := l.world.Step(fixed); err != nil {
			// Whatever completed before the failure still counts
			l.commit(acc-float64(i)*fixed, float64(i)*fixed)
			stats.Steps = i
			stats.SimTime = l.SimTime()
			stats.Err = &StepError{Frame: index, Substep: i, Err: err}
			return stats
		}
	}
	acc -= float64(steps) * fixed
	if acc >= fixed {
		// Over the cap: keep the fractional step, drop the rest
		kept := math.Mod(acc, fixed)
		stats.Dropped = acc - kept
		acc = kept
	}
	l.commit(acc, float64(steps)*fixed)

	if timer != nil {
		timer.StartPhase(PhaseMirror)
	}
	for _, err := range l.pairs.mirror(l.world) {
		stats.Orphans++
		slog.Warn("dropping orphaned pair", "frame", index, "error", err)
		l.reportError(err)
	}

	stats.Steps = steps
	stats.SimTime = l.SimTime()
	stats.Alpha = acc / fixed

	if timer != nil {
		timer.StartPhase(PhaseRender)
	}
	l.render(stats.Frame)
	stats.Rendered = true
	return stats
}

func (l *Loop) commit(accumulated, advanced float64) {
	l.mu.Lock()
	l.accumulated = accumulated
	l.simTime += advanced
	l.mu.Unlock()
}

func (l *Loop) reportError(err error) {
	if l.opts.OnError != nil {
		l.opts.OnError(err)
	}
}

// State returns the lifecycle state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err returns the error that halted the loop, if any.
func (l *Loop) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// SimTime returns the simulated seconds advanced so far.
func (l *Loop) SimTime() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.simTime
}

// Accumulated returns wall-clock seconds not yet simulated.
func (l *Loop) Accumulated() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accumulated
}

// Frames returns the number of frames that have run.
func (l *Loop) Frames() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frames
}

// Pairs returns the body to proxy table. It must only be modified between
// frames, from the goroutine that drives them.
func (l *Loop) Pairs() *Pairs { return l.pairs }

// FixedStep returns the physics step size in seconds.
func (l *Loop) FixedStep() float64 { return l.opts.FixedStep }
