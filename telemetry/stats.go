package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated frame statistics for a window of frames.
type WindowStats struct {
	WindowStartFrame int64   `csv:"-"`
	WindowEndFrame   int64   `csv:"window_end"`
	SimTimeSec       float64 `csv:"sim_time"`

	// Loop activity during the window
	Frames        int     `csv:"frames"`
	Steps         int     `csv:"steps"`
	StepsPerFrame float64 `csv:"steps_per_frame"`
	DroppedSec    float64 `csv:"dropped_sec"`
	StepErrors    int     `csv:"step_errors"`
	Orphans       int     `csv:"orphans"`

	// Scene counts at window end
	Bodies    int `csv:"bodies"`
	Particles int `csv:"particles"`

	// Scene events during the window
	Spawns        int `csv:"spawns"`
	Despawns      int `csv:"despawns"`
	Regenerations int `csv:"regenerations"`

	// Frame delta distribution, milliseconds
	DeltaMeanMS float64 `csv:"delta_mean_ms"`
	DeltaStdMS  float64 `csv:"delta_std_ms"`
	DeltaP50MS  float64 `csv:"delta_p50_ms"`
	DeltaP95MS  float64 `csv:"delta_p95_ms"`
	DeltaMaxMS  float64 `csv:"delta_max_ms"`
	FPS         float64 `csv:"fps"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// DeltaStats summarizes a set of frame deltas.
type DeltaStats struct {
	Mean, Std, P50, P95, Max float64
}

// ComputeDeltaStats calculates mean, standard deviation, median, p95 and
// maximum. Std is the sample standard deviation and is 0 below two values.
func ComputeDeltaStats(values []float64) DeltaStats {
	n := len(values)
	if n == 0 {
		return DeltaStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var out DeltaStats
	if n < 2 {
		out.Mean = sorted[0]
	} else {
		out.Mean, out.Std = stat.MeanStdDev(sorted, nil)
	}
	out.P50 = Percentile(sorted, 0.50)
	out.P95 = Percentile(sorted, 0.95)
	out.Max = sorted[n-1]
	return out
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartFrame),
		slog.Int64("window_end", s.WindowEndFrame),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("frames", s.Frames),
		slog.Int("steps", s.Steps),
		slog.Float64("steps_per_frame", s.StepsPerFrame),
		slog.Float64("dropped_sec", s.DroppedSec),
		slog.Int("step_errors", s.StepErrors),
		slog.Int("orphans", s.Orphans),
		slog.Int("bodies", s.Bodies),
		slog.Int("particles", s.Particles),
		slog.Int("spawns", s.Spawns),
		slog.Int("despawns", s.Despawns),
		slog.Int("regenerations", s.Regenerations),
		slog.Float64("delta_mean_ms", s.DeltaMeanMS),
		slog.Float64("delta_std_ms", s.DeltaStdMS),
		slog.Float64("delta_p50_ms", s.DeltaP50MS),
		slog.Float64("delta_p95_ms", s.DeltaP95MS),
		slog.Float64("delta_max_ms", s.DeltaMaxMS),
		slog.Float64("fps", s.FPS),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndFrame,
		"sim_time", s.SimTimeSec,
		"frames", s.Frames,
		"steps", s.Steps,
		"dropped_sec", s.DroppedSec,
		"step_errors", s.StepErrors,
		"orphans", s.Orphans,
		"bodies", s.Bodies,
		"particles", s.Particles,
		"spawns", s.Spawns,
		"despawns", s.Despawns,
		"regenerations", s.Regenerations,
		"delta_p50_ms", s.DeltaP50MS,
		"delta_p95_ms", s.DeltaP95MS,
		"fps", s.FPS,
	)
}
