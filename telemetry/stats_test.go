package telemetry

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/starfield/simloop"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeDeltaStats(t *testing.T) {
	d := ComputeDeltaStats([]float64{5, 3, 1, 4, 2})

	assert.InDelta(t, 3, d.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(2.5), d.Std, 1e-9)
	assert.InDelta(t, 3, d.P50, 1e-9)
	assert.InDelta(t, 4.8, d.P95, 1e-9)
	assert.InDelta(t, 5, d.Max, 1e-9)
}

func TestComputeDeltaStatsSmall(t *testing.T) {
	assert.Equal(t, DeltaStats{}, ComputeDeltaStats(nil))

	d := ComputeDeltaStats([]float64{0.016})
	assert.InDelta(t, 0.016, d.Mean, 1e-12)
	assert.Zero(t, d.Std)
	assert.InDelta(t, 0.016, d.Max, 1e-12)
}

func frameStats(index int64, delta float64, steps int) simloop.FrameStats {
	return simloop.FrameStats{
		Frame: simloop.Frame{
			Index:   index,
			Delta:   delta,
			Steps:   steps,
			SimTime: float64(index+1) / 60,
		},
		Rendered: true,
	}
}

func TestCollectorWindows(t *testing.T) {
	c := NewCollector(60)

	for i := int64(0); i < 59; i++ {
		c.RecordFrame(frameStats(i, 0.02, 1))
		require.False(t, c.ShouldFlush())
	}
	failed := frameStats(59, 0.02, 0)
	failed.Err = errors.New("boom")
	failed.Dropped = 0.05
	failed.Orphans = 2
	c.RecordFrame(failed)
	c.RecordSpawn()
	c.RecordSpawn()
	c.RecordDespawn()
	c.RecordRegeneration()
	require.True(t, c.ShouldFlush())

	s := c.Flush(4, 1000)
	assert.Equal(t, int64(0), s.WindowStartFrame)
	assert.Equal(t, int64(59), s.WindowEndFrame)
	assert.InDelta(t, 1.0, s.SimTimeSec, 1e-9)
	assert.Equal(t, 60, s.Frames)
	assert.Equal(t, 59, s.Steps)
	assert.InDelta(t, 59.0/60, s.StepsPerFrame, 1e-9)
	assert.InDelta(t, 0.05, s.DroppedSec, 1e-12)
	assert.Equal(t, 1, s.StepErrors)
	assert.Equal(t, 2, s.Orphans)
	assert.Equal(t, 4, s.Bodies)
	assert.Equal(t, 1000, s.Particles)
	assert.Equal(t, 2, s.Spawns)
	assert.Equal(t, 1, s.Despawns)
	assert.Equal(t, 1, s.Regenerations)
	assert.InDelta(t, 20, s.DeltaMeanMS, 1e-9)
	assert.InDelta(t, 0, s.DeltaStdMS, 1e-9)
	assert.InDelta(t, 50, s.FPS, 1e-6)

	// Counters reset for the next window
	assert.False(t, c.ShouldFlush())
	c.RecordFrame(frameStats(60, 0.01, 1))
	s = c.Flush(4, 1000)
	assert.Equal(t, int64(60), s.WindowStartFrame)
	assert.Equal(t, 1, s.Frames)
	assert.Zero(t, s.Spawns)
	assert.Zero(t, s.StepErrors)
}

func TestCollectorMinimumWindow(t *testing.T) {
	c := NewCollector(0)
	assert.Equal(t, 1, c.WindowFrames())
	c.RecordFrame(frameStats(0, 0.016, 1))
	assert.True(t, c.ShouldFlush())
}
