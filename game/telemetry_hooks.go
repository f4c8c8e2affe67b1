package game

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/pthm-cable/starfield/simloop"
	"github.com/pthm-cable/starfield/telemetry"
)

// onFrame records every frame the loop ran and flushes full windows.
func (g *Game) onFrame(fs simloop.FrameStats) {
	g.collector.RecordFrame(fs)
	g.flushTelemetry()
}

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush() {
		return
	}

	stats := g.collector.Flush(len(g.spheres), g.field.Buffer().Len())
	perfStats := g.perfCollector.Stats()

	// Call stats callback if provided
	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	// Log stats if enabled (console output)
	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := g.outputManager.WriteFrames(stats); err != nil {
		slog.Error("failed to write frames", "error", err)
	}
	if err := g.outputManager.WritePerf(perfStats, stats.WindowEndFrame); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range g.bookmarkDetector.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if err := g.outputManager.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
		g.saveSnapshot(&bm)
	}
}

// saveSnapshot saves a bookmark snapshot if anywhere is configured for it.
func (g *Game) saveSnapshot(bookmark *telemetry.Bookmark) {
	if g.snapshotDir == "" && g.outputManager == nil {
		return
	}
	path, err := g.writeSnapshot(g.Snapshot(bookmark))
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "frame", g.loop.Frames())
}

// Snapshot captures the galaxy parameters and every sphere.
func (g *Game) Snapshot(bookmark *telemetry.Bookmark) *telemetry.Snapshot {
	s := &telemetry.Snapshot{
		Version:  telemetry.SnapshotVersion,
		Seed:     g.seed,
		Frame:    g.loop.Frames(),
		SimTime:  g.loop.SimTime(),
		Galaxy:   telemetry.NewGalaxyState(g.field.Parameters()),
		Bookmark: bookmark,
	}
	for _, h := range g.spheres {
		spec, ok := g.world.Spec(h)
		if !ok {
			continue
		}
		tr, _ := g.world.Transform(h)
		linear, angular, _ := g.world.Velocity(h)
		s.Bodies = append(s.Bodies, telemetry.NewBodyState(spec, tr, linear, angular))
	}
	return s
}

// Restore replaces the spheres and galaxy with a snapshot's. The galaxy is
// regenerated from the snapshot's seed, so a snapshot taken right after a
// generation reproduces the same particles.
func (g *Game) Restore(s *telemetry.Snapshot) error {
	params, err := s.Galaxy.Parameters()
	if err != nil {
		return fmt.Errorf("snapshot galaxy: %w", err)
	}
	// Check everything before the current scene is cleared
	for i, b := range s.Bodies {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("snapshot body %d: %w", i, err)
		}
	}

	if err := g.Reset(); err != nil {
		return err
	}
	for i, b := range s.Bodies {
		spec, angular := b.Spec()
		h, err := g.spawn(spec)
		if err != nil {
			return fmt.Errorf("snapshot body %d: %w", i, err)
		}
		if err := g.world.SetAngularVelocity(h, angular); err != nil {
			return fmt.Errorf("snapshot body %d: %w", i, err)
		}
	}

	err = g.regenerate(func() error {
		g.field.SetSource(rand.New(rand.NewSource(s.Seed)))
		return g.field.OnParametersChanged(params)
	})
	if err != nil {
		return err
	}
	g.seed = s.Seed
	slog.Info("snapshot restored", "bodies", len(s.Bodies), "frame", s.Frame)
	return nil
}

// writeSnapshot stores s in the snapshot directory, or under the output
// directory when none was given.
func (g *Game) writeSnapshot(s *telemetry.Snapshot) (string, error) {
	if g.snapshotDir != "" {
		return telemetry.SaveSnapshot(s, g.snapshotDir)
	}
	if g.outputManager == nil {
		return "", ErrNoOutput
	}
	return g.outputManager.WriteSnapshot(s)
}

// SaveSnapshot writes a snapshot of the scene to the snapshot directory, or
// to snapshots/ under the output directory.
func (g *Game) SaveSnapshot() (string, error) {
	return g.writeSnapshot(g.Snapshot(nil))
}

// ExportParticles writes the displayed galaxy to path as CSV. An empty path
// writes particles.csv in the output directory.
func (g *Game) ExportParticles(path string) error {
	if path != "" {
		return telemetry.ExportParticles(path, g.field.Buffer())
	}
	if g.outputManager == nil {
		return ErrNoOutput
	}
	return g.outputManager.WriteParticles(g.field.Buffer())
}
