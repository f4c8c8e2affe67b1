package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/starfield/galaxy"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 100000, cfg.Galaxy.Count)
	assert.Equal(t, 4, cfg.Galaxy.Branches)
	assert.Equal(t, "#ff6030", cfg.Galaxy.InsideColor)
	assert.InDelta(t, -2.82, cfg.Physics.Gravity.Y, 1e-12)
	assert.Len(t, cfg.Spawn.Spheres, 3)
	assert.Equal(t, 3, cfg.Loop.MaxStepsPerFrame)
	assert.Equal(t, 60, cfg.Derived.StatsFrames)

	p, err := cfg.GalaxyParameters()
	require.NoError(t, err)
	assert.Equal(t, float32(4), p.Radius)
	assert.Equal(t, "#1b3984", p.OutsideColor.Hex())
	assert.Equal(t, cfg.Derived.InsideColor, p.InsideColor)
}

func TestLoadYAMLOverridesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "starfield.yaml")
	require.NoError(t, os.WriteFile(path, []byte("galaxy:\n  branches: 7\n  inside_color: \"#00ff00\"\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Galaxy.Branches)
	assert.Equal(t, galaxy.Green, cfg.Derived.InsideColor)
	// Untouched keys keep their defaults
	assert.Equal(t, 100000, cfg.Galaxy.Count)
	assert.InDelta(t, 0.5, cfg.Spawn.Radius, 1e-12)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "starfield.toml")
	data := `
[galaxy]
count = 500
spin = -2.5

[physics.gravity]
y = -9.81

[loop]
max_steps_per_frame = 5
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Galaxy.Count)
	assert.InDelta(t, -2.5, cfg.Galaxy.Spin, 1e-12)
	assert.InDelta(t, -9.81, cfg.Physics.Gravity.Y, 1e-12)
	assert.Equal(t, 5, cfg.Loop.MaxStepsPerFrame)
	assert.Equal(t, 4, cfg.Galaxy.Branches)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero branches", "galaxy:\n  branches: 0\n"},
		{"bad color", "galaxy:\n  outside_color: blue-ish\n"},
		{"zero step", "loop:\n  fixed_step: 0\n"},
		{"no catch-up", "loop:\n  max_steps_per_frame: 0\n"},
		{"negative friction", "physics:\n  friction: -1\n"},
		{"not yaml", "galaxy: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGalaxyParametersRoundTrip(t *testing.T) {
	cfg := Default()
	p, err := cfg.GalaxyParameters()
	require.NoError(t, err)

	p.Branches = 9
	p.InsideColor = galaxy.White
	p.ScaleJitter = true
	cfg.SetGalaxyParameters(p)

	got, err := cfg.GalaxyParameters()
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, "#ffffff", cfg.Galaxy.InsideColor)
}

func TestPhysicsConfig(t *testing.T) {
	cfg := Default()
	pc := cfg.PhysicsConfig(1)
	assert.InDelta(t, -2.82, pc.Gravity.Y, 1e-12)
	assert.Nil(t, pc.Wind)

	cfg.Physics.Wind.Enabled = true
	pc = cfg.PhysicsConfig(1)
	require.NotNil(t, pc.Wind)
	assert.InDelta(t, -0.5, pc.Wind.Base.X, 1e-12)
}

func TestWriteYAMLReloads(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Galaxy.Spin = 3
	cfg.Camera.Distance = 12

	for _, name := range []string{"out.yaml", "out.toml"} {
		path := filepath.Join(dir, name)
		if filepath.Ext(name) == ".toml" {
			require.NoError(t, cfg.WriteTOML(path))
		} else {
			require.NoError(t, cfg.WriteYAML(path))
		}
		got, err := Load(path)
		require.NoError(t, err, name)
		assert.InDelta(t, 3, got.Galaxy.Spin, 1e-12, name)
		assert.InDelta(t, 12, got.Camera.Distance, 1e-12, name)
		assert.Equal(t, cfg.Galaxy.OutsideColor, got.Galaxy.OutsideColor, name)
	}
}

func TestCfgBeforeInitPanics(t *testing.T) {
	saved := global
	defer func() { global = saved }()

	global = nil
	assert.Panics(t, func() { Cfg() })
	require.NoError(t, Init(""))
	assert.NotNil(t, Cfg())
}

// startWatch runs Watch on path and returns channels of delivered configs
// and errors. The watcher stops when the test ends.
func startWatch(t *testing.T, path string) (<-chan *Config, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan *Config, 16)
	errs := make(chan error, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path,
			func(c *Config) {
				select {
				case changes <- c:
				default:
				}
			},
			func(err error) {
				select {
				case errs <- err:
				default:
				}
			})
	}()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return changes, errs
}

// waitForBranches rewrites path with write every interval until a config
// arrives, and fails if any delivered config is not the written one.
func waitForBranches(t *testing.T, changes <-chan *Config, errs <-chan error, want int, write func()) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	// Longer than the debounce, so repeated writes cannot starve the reload
	tick := time.NewTicker(3 * WatchDebounce)
	defer tick.Stop()
	write()
	for {
		select {
		case c := <-changes:
			require.Equal(t, want, c.Galaxy.Branches, "reload delivered a partial file")
			return
		case err := <-errs:
			t.Fatalf("reload error: %v", err)
		case <-tick.C:
			// The watcher may not have been registered for the first write
			write()
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.yaml")
	require.NoError(t, os.WriteFile(path, []byte("galaxy:\n  branches: 3\n"), 0644))

	changes, errs := startWatch(t, path)
	waitForBranches(t, changes, errs, 6, func() {
		require.NoError(t, os.WriteFile(path, []byte("galaxy:\n  branches: 6\n"), 0644))
	})
}

func TestWatchSkipsTruncatedSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.yaml")
	require.NoError(t, os.WriteFile(path, []byte("galaxy:\n  branches: 3\n"), 0644))

	changes, errs := startWatch(t, path)
	waitForBranches(t, changes, errs, 9, func() {
		// Truncate, pause well inside the debounce, then write the body
		require.NoError(t, os.WriteFile(path, nil, 0644))
		time.Sleep(WatchDebounce / 5)
		require.NoError(t, os.WriteFile(path, []byte("galaxy:\n  branches: 9\n"), 0644))
	})

	// A save that stops at truncation is never delivered as defaults
	require.NoError(t, os.WriteFile(path, nil, 0644))
	select {
	case c := <-changes:
		t.Fatalf("empty file reloaded as branches %d", c.Galaxy.Branches)
	case <-time.After(4 * WatchDebounce):
	}
}

func TestCameraOptions(t *testing.T) {
	opts := Default().CameraOptions()
	assert.Equal(t, float32(7), opts.Distance)
	assert.Equal(t, float32(75), opts.FOV)
	assert.Equal(t, float32(2), opts.MaxPixelRatio)
	assert.InDelta(t, 0.785, float64(opts.Yaw), 1e-6)
	assert.Equal(t, [3]float32{}, opts.Target)
}
