// Galaxy preview tool - top-down and edge-on density views with sliders.
//
// Usage: go run ./cmd/galaxypreview [-config starfield.yaml]
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"strings"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/starfield/config"
	"github.com/pthm-cable/starfield/galaxy"
)

const (
	windowWidth  = 1100
	windowHeight = 720
	previewSize  = 400
	gridSize     = 256
	panelX       = previewSize*2 + 30
	panelWidth   = windowWidth - panelX - 10
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML or TOML config (empty = use defaults)")
	seed := flag.Int64("seed", 1, "RNG seed")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	params, err := cfg.GalaxyParameters()
	if err != nil {
		slog.Error("invalid galaxy parameters", "error", err)
		os.Exit(1)
	}
	// Previews don't need the full count
	params.Count = min(params.Count, 50000)

	rl.InitWindow(windowWidth, windowHeight, "Galaxy Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	img := rl.GenImageColor(gridSize, gridSize, rl.Black)
	top := rl.LoadTextureFromImage(img)
	side := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	defer rl.UnloadTexture(top)
	defer rl.UnloadTexture(side)

	var status string
	needsRegen := true

	for !rl.WindowShouldClose() {
		if needsRegen {
			buf, err := galaxy.Generate(params, rand.New(rand.NewSource(*seed)))
			if err != nil {
				status = err.Error()
			} else {
				status = ""
				updateTexture(top, splat(buf, params.Radius, 0, 2))
				updateTexture(side, splat(buf, params.Radius, 0, 1))
			}
			needsRegen = false
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)

		drawPreview(top, 10, "Top (x/z)")
		drawPreview(side, previewSize+20, "Edge (x/y)")

		rl.DrawText(fmt.Sprintf("Particles: %d  Seed: %d", params.Count, *seed), 10, previewSize+50, 16, rl.Gray)
		if status != "" {
			rl.DrawText(status, 10, previewSize+70, 16, rl.Red)
		}

		// Control panel
		y := float32(10)
		rl.DrawText("Galaxy Parameters", panelX, int32(y), 20, rl.LightGray)
		y += 35

		next := params
		next.Count = int(slider(&y, "Count", fmt.Sprintf("%d", params.Count), float32(params.Count), 100, 50000))
		next.Size = slider(&y, "Size", fmt.Sprintf("%.3f", params.Size), params.Size, 0.001, 0.1)
		next.Radius = slider(&y, "Radius", fmt.Sprintf("%.2f", params.Radius), params.Radius, 0.5, 20)
		next.Branches = int(slider(&y, "Branches", fmt.Sprintf("%d", params.Branches), float32(params.Branches), 1, 20))
		next.Spin = slider(&y, "Spin", fmt.Sprintf("%+.2f", params.Spin), params.Spin, -5, 5)
		next.Randomness = slider(&y, "Randomness", fmt.Sprintf("%.3f", params.Randomness), params.Randomness, 0, 2)
		next.RandomnessPower = slider(&y, "Randomness power", fmt.Sprintf("%.2f", params.RandomnessPower), params.RandomnessPower, 1, 10)
		next.ScaleJitter = gui.CheckBox(rl.Rectangle{X: panelX, Y: y, Width: 16, Height: 16}, "Scale jitter by radius", params.ScaleJitter)
		y += 30
		if next != params {
			params = next
			needsRegen = true
		}

		if gui.Button(rl.Rectangle{X: panelX, Y: y, Width: 120, Height: 30}, "Random Seed") {
			*seed = int64(rl.GetRandomValue(0, 99999))
			needsRegen = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: y, Width: 120, Height: 30}, "Reset All") {
			params, _ = cfg.GalaxyParameters()
			params.Count = min(params.Count, 50000)
			needsRegen = true
		}
		y += 45

		// Output YAML
		snippet := galaxyYAML(cfg, params)
		rl.DrawText("YAML Config:", panelX, int32(y), 16, rl.LightGray)
		y += 25
		for _, line := range strings.Split(snippet, "\n") {
			rl.DrawText(line, panelX, int32(y), 14, rl.Gray)
			y += 16
		}

		rl.DrawText("Press C to copy YAML to clipboard", panelX, windowHeight-30, 12, rl.DarkGray)
		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(snippet)
		}

		rl.EndDrawing()
	}
}

func slider(y *float32, label, value string, v, lo, hi float32) float32 {
	rl.DrawText(label, panelX, int32(*y), 14, rl.Gray)
	*y += 18
	v = gui.SliderBar(rl.Rectangle{X: panelX, Y: *y, Width: panelWidth - 80, Height: 20}, "", "", v, min(lo, v), max(hi, v))
	rl.DrawText(value, int32(panelX+panelWidth-70), int32(*y+2), 16, rl.LightGray)
	*y += 35
	return v
}

func drawPreview(tex rl.Texture2D, x int32, label string) {
	rl.DrawTexturePro(
		tex,
		rl.Rectangle{X: 0, Y: 0, Width: gridSize, Height: gridSize},
		rl.Rectangle{X: float32(x), Y: 30, Width: previewSize, Height: previewSize},
		rl.Vector2{X: 0, Y: 0},
		0,
		rl.White,
	)
	rl.DrawRectangleLines(x, 30, previewSize, previewSize, rl.DarkGray)
	rl.DrawText(label, x, 10, 16, rl.Gray)
}

// galaxyYAML renders the galaxy section of cfg with params applied.
func galaxyYAML(cfg *config.Config, params galaxy.Parameters) string {
	c := *cfg
	c.SetGalaxyParameters(params)
	out, err := yaml.Marshal(map[string]config.GalaxyConfig{"galaxy": c.Galaxy})
	if err != nil {
		return err.Error()
	}
	return strings.TrimSpace(string(out))
}

// splat accumulates particle colors into a grid, projecting onto axes u and
// v (0 = x, 1 = y, 2 = z). The grid spans slightly more than the radius.
func splat(buf *galaxy.Buffer, radius float32, u, v int) []color.RGBA {
	acc := make([][3]float32, gridSize*gridSize)
	extent := max(radius*1.1, 0.1)
	for i := 0; i < buf.Len(); i++ {
		x, y, z := buf.Position(i)
		p := [3]float32{x, y, z}
		gx := int((p[u]/extent + 1) / 2 * gridSize)
		gy := int((p[v]/extent + 1) / 2 * gridSize)
		if gx < 0 || gx >= gridSize || gy < 0 || gy >= gridSize {
			continue
		}
		c := buf.Color(i)
		cell := &acc[gy*gridSize+gx]
		cell[0] += c.R
		cell[1] += c.G
		cell[2] += c.B
	}

	// Exposure tone map keeps dense cores from clipping flat
	pixels := make([]color.RGBA, len(acc))
	for i, a := range acc {
		pixels[i] = color.RGBA{
			R: expose(a[0]),
			G: expose(a[1]),
			B: expose(a[2]),
			A: 255,
		}
	}
	return pixels
}

func expose(v float32) uint8 {
	return uint8(255 * (1 - math.Exp(-float64(v)*0.5)))
}

// updateTexture updates the GPU texture from the pixel grid
func updateTexture(texture rl.Texture2D, pixels []color.RGBA) {
	rl.UpdateTexture(texture, pixels)
}
