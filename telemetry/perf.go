package telemetry

import (
	"log/slog"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Phase names for a frame. The first three match the names the
// simulation loop reports.
const (
	PhasePhysics   = "physics"
	PhaseMirror    = "mirror"
	PhaseRender    = "render"
	PhaseGenerate  = "generate"
	PhaseTelemetry = "telemetry"
)

var phases = []string{PhasePhysics, PhaseMirror, PhaseRender, PhaseGenerate, PhaseTelemetry}

// PerfSample holds timing data for a single frame.
type PerfSample struct {
	Work   time.Duration // Time spent inside the frame callback
	Phases map[string]time.Duration
}

// PerfCollector tracks frame work over a rolling window. It implements the
// loop's phase timer (BeginFrame, StartPhase, EndFrame).
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	pending       map[string]time.Duration // Between-frame work for the next sample
	frameStart    time.Time
	phaseStart    time.Time
	lastPhase     string

	// Presentation timing (graphics mode)
	lastPresent     time.Time
	presentInterval time.Duration

	now func() time.Time
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of frames to average over (e.g., 60 for 1 second at 60fps).
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
		pending:       make(map[string]time.Duration),
		now:           time.Now,
	}
}

// BeginFrame starts timing a frame.
func (p *PerfCollector) BeginFrame() {
	p.frameStart = p.now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase ends the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := p.now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndFrame closes the running phase and records the sample.
func (p *PerfCollector) EndFrame() {
	now := p.now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
		p.lastPhase = ""
	}
	for phase, d := range p.pending {
		p.currentPhases[phase] += d
	}
	clear(p.pending)

	p.samples[p.writeIndex] = PerfSample{
		Work:   now.Sub(p.frameStart),
		Phases: p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// TimePhase runs fn and adds its duration to phase in the next recorded
// sample. Used for work such as regeneration that happens between frames.
func (p *PerfCollector) TimePhase(phase string, fn func()) {
	start := p.now()
	fn()
	p.pending[phase] += p.now().Sub(start)
}

// RecordPresent marks a presented display frame.
func (p *PerfCollector) RecordPresent() {
	now := p.now()
	if !p.lastPresent.IsZero() {
		p.presentInterval = now.Sub(p.lastPresent)
	}
	p.lastPresent = now
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	// Frame work
	AvgWork time.Duration
	MinWork time.Duration
	MaxWork time.Duration
	P95Work time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration

	// Phase percentages of frame work
	PhasePct map[string]float64

	// Frames per second the work alone would allow
	Headroom float64

	// Presentation (graphics mode)
	PresentInterval time.Duration
	FPS             float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	var fps float64
	if p.presentInterval > 0 {
		fps = float64(time.Second) / float64(p.presentInterval)
	}

	out := PerfStats{
		PhaseAvg:        make(map[string]time.Duration),
		PhasePct:        make(map[string]float64),
		PresentInterval: p.presentInterval,
		FPS:             fps,
	}
	if p.sampleCount == 0 {
		return out
	}

	work := make([]float64, p.sampleCount)
	phaseSum := make(map[string]time.Duration)
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		work[i] = float64(s.Work)
		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}
	sort.Float64s(work)

	avg := time.Duration(stat.Mean(work, nil))
	out.AvgWork = avg
	out.MinWork = time.Duration(work[0])
	out.MaxWork = time.Duration(work[len(work)-1])
	out.P95Work = time.Duration(stat.Quantile(0.95, stat.Empirical, work, nil))

	for phase, sum := range phaseSum {
		out.PhaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			out.PhasePct[phase] = float64(out.PhaseAvg[phase]) / float64(avg) * 100
		}
	}
	if avg > 0 {
		out.Headroom = float64(time.Second) / float64(avg)
	}
	return out
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_work_us", s.AvgWork.Microseconds(),
		"p95_work_us", s.P95Work.Microseconds(),
		"max_work_us", s.MaxWork.Microseconds(),
		"headroom_fps", int(s.Headroom),
	}
	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}
	for _, phase := range phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", float64(int(pct*10))/10)
		}
	}
	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_work_us", s.AvgWork.Microseconds()),
		slog.Int64("min_work_us", s.MinWork.Microseconds()),
		slog.Int64("max_work_us", s.MaxWork.Microseconds()),
		slog.Int64("p95_work_us", s.P95Work.Microseconds()),
		slog.Float64("headroom_fps", s.Headroom),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for _, phase := range phases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	WindowEnd    int64   `csv:"window_end"`
	AvgWorkUS    int64   `csv:"avg_work_us"`
	MinWorkUS    int64   `csv:"min_work_us"`
	MaxWorkUS    int64   `csv:"max_work_us"`
	P95WorkUS    int64   `csv:"p95_work_us"`
	HeadroomFPS  float64 `csv:"headroom_fps"`
	FPS          float64 `csv:"fps"`
	PhysicsPct   float64 `csv:"physics_pct"`
	MirrorPct    float64 `csv:"mirror_pct"`
	RenderPct    float64 `csv:"render_pct"`
	GeneratePct  float64 `csv:"generate_pct"`
	TelemetryPct float64 `csv:"telemetry_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(windowEnd int64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:    windowEnd,
		AvgWorkUS:    s.AvgWork.Microseconds(),
		MinWorkUS:    s.MinWork.Microseconds(),
		MaxWorkUS:    s.MaxWork.Microseconds(),
		P95WorkUS:    s.P95Work.Microseconds(),
		HeadroomFPS:  s.Headroom,
		FPS:          s.FPS,
		PhysicsPct:   s.PhasePct[PhasePhysics],
		MirrorPct:    s.PhasePct[PhaseMirror],
		RenderPct:    s.PhasePct[PhaseRender],
		GeneratePct:  s.PhasePct[PhaseGenerate],
		TelemetryPct: s.PhasePct[PhaseTelemetry],
	}
}
