package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/starfield/config"
	"github.com/pthm-cable/starfield/game"
	"github.com/pthm-cable/starfield/renderer"
	"github.com/pthm-cable/starfield/telemetry"
	"github.com/pthm-cable/starfield/ui"
)

func main() {
	os.Exit(run())
}

// run parses flags and runs the scene, returning the process exit code.
func run() int {
	// CLI flags
	configPath := flag.String("config", "", "Path to a YAML or TOML config (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for bookmark snapshots")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxFrames := flag.Int64("max-frames", 0, "Stop after N frames (0 = unlimited)")
	watch := flag.Bool("watch", false, "Reload the galaxy when the config file changes")
	export := flag.String("export", "", "Write the generated particles to this CSV file and exit")
	restore := flag.String("restore", "", "Start from a snapshot file")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	opts := game.Options{
		Config:      cfg,
		Seed:        rngSeed,
		LogStats:    *logStats,
		SnapshotDir: *snapshotDir,
		OutputDir:   *outputDir,
		Headless:    *headless || *export != "",
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if opts.Headless {
		return runHeadless(ctx, opts, *export, *restore, *maxFrames, *watch, *configPath)
	}
	return runWindow(ctx, opts, *restore, *maxFrames, *watch, *configPath)
}

// runHeadless steps the scene on a manual clock, one fixed step per frame.
func runHeadless(ctx context.Context, opts game.Options, export, restore string, maxFrames int64, watch bool, configPath string) int {
	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		slog.Error("failed to create scene", "error", err)
		return 1
	}
	defer g.Unload()

	if !restoreSnapshot(g, restore) {
		return 1
	}

	if export != "" {
		if err := g.ExportParticles(export); err != nil {
			slog.Error("export failed", "path", export, "error", err)
			return 1
		}
		slog.Info("particles exported", "path", export, "count", g.Field().Buffer().Len())
		return 0
	}

	if watch {
		go watchConfig(ctx, g, configPath)
	}

	slog.Info("starting headless simulation",
		"seed", g.Seed(),
		"max_frames", maxFrames,
	)

	if err := g.RunHeadless(ctx, maxFrames); err != nil {
		slog.Error("simulation halted", "error", err)
		return 1
	}
	if opts.OutputDir != "" {
		// Final particle state next to the run's CSV logs
		if err := g.ExportParticles(""); err != nil {
			slog.Error("failed to export particles", "error", err)
			return 1
		}
	}
	return 0
}

// runWindow opens a raylib window and renders the scene each display frame.
func runWindow(ctx context.Context, opts game.Options, restore string, maxFrames int64, watch bool, configPath string) int {
	cfg := opts.Config

	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagWindowHighdpi | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Starfield")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	scene := renderer.NewScene(cfg.CameraOptions(), cfg.Derived.Background)
	opts.Surface = scene

	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		slog.Error("failed to create scene", "error", err)
		return 1
	}
	defer g.Unload()

	if !restoreSnapshot(g, restore) {
		return 1
	}
	if watch {
		go watchConfig(ctx, g, configPath)
	}

	overlays := ui.NewOverlayRegistry()
	hud := ui.NewHUD()
	controls := ui.NewControlsPanel(0, 10, 280)
	stats := ui.NewStatsPanel(10, 100, 240)
	perf := ui.NewPerfPanel(10, 330)
	help := ui.NewHelpPanel(260, 100, 240)

	blocked := func(p rl.Vector2) bool {
		return overlays.IsEnabled(ui.OverlayControls) && controls.Contains(p)
	}

	for !rl.WindowShouldClose() && ctx.Err() == nil {
		overlays.HandleKeys()
		ui.HandleSceneKeys(g)
		scene.HandleInput(blocked)

		rl.BeginDrawing()

		// Runs at most one frame and draws the scene through the surface
		g.Update()

		screenW := int32(rl.GetScreenWidth())
		screenH := int32(rl.GetScreenHeight())
		if overlays.IsEnabled(ui.OverlayHUD) {
			hud.Draw(ui.NewHUDData(g))
			hud.DrawControls(screenH, "Drag: orbit | Wheel: zoom | Space: pause | N: sphere | R: reset | F1: keys")
		}
		if overlays.IsEnabled(ui.OverlayStats) {
			stats.Draw(g)
		}
		if overlays.IsEnabled(ui.OverlayPerf) {
			perf.Draw(g.PerfStats())
		}
		if overlays.IsEnabled(ui.OverlayHelp) {
			help.Draw(overlays)
		}
		if overlays.IsEnabled(ui.OverlayControls) {
			controls.SetPosition(screenW-290, 10)
			controls.Draw(g)
		}

		rl.EndDrawing()
		g.RecordPresent()

		if maxFrames > 0 && g.Frames() >= maxFrames {
			break
		}
	}
	return 0
}

func restoreSnapshot(g *game.Game, path string) bool {
	if path == "" {
		return true
	}
	s, err := telemetry.LoadSnapshot(path)
	if err != nil {
		slog.Error("failed to load snapshot", "path", path, "error", err)
		return false
	}
	if err := g.Restore(s); err != nil {
		slog.Error("failed to restore snapshot", "path", path, "error", err)
		return false
	}
	return true
}

// watchConfig forwards config file changes to the scene until ctx is done.
func watchConfig(ctx context.Context, g *game.Game, path string) {
	if path == "" {
		slog.Warn("-watch needs -config")
		return
	}
	err := config.Watch(ctx, path,
		func(c *config.Config) {
			if err := g.ApplyConfig(c); err != nil {
				slog.Warn("config change rejected", "error", err)
			}
		},
		nil,
	)
	if err != nil {
		slog.Error("config watcher stopped", "error", err)
	}
}
