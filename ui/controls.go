package ui

import (
	"fmt"
	"log/slog"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/starfield/galaxy"
	"github.com/pthm-cable/starfield/game"
)

// Slider ranges for the editable parameters.
const (
	maxCount      = 250000
	maxSize       = 0.1
	maxRadius     = 20
	maxBranches   = 20
	maxSpin       = 5
	maxRandomness = 2
	maxPower      = 10
)

// ControlsPanel edits galaxy parameters and drives scene actions.
//
// Slider edits are held until the mouse button is released, so a drag
// regenerates the galaxy once rather than every frame.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	height   int32

	pending galaxy.Parameters
	dirty   bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// Contains reports whether p lies over the panel.
func (c *ControlsPanel) Contains(p rl.Vector2) bool {
	return rl.CheckCollisionPointRec(p, rl.Rectangle{
		X: float32(c.x), Y: float32(c.y), Width: float32(c.width), Height: float32(c.height),
	})
}

// Draw renders the panel and applies whatever the user changed.
func (c *ControlsPanel) Draw(g *game.Game) {
	r := c.renderer
	padding := r.Theme.Padding
	if !c.dirty {
		c.pending = g.Parameters()
	}
	p := c.pending

	c.height = 560
	r.DrawPanel(c.x, c.y, c.width, c.height)

	x := float32(c.x + padding)
	y := float32(c.y + padding)
	w := float32(c.width - padding*2)

	rl.DrawText("Galaxy", int32(x), int32(y), 16, rl.White)
	y += 24

	p.Count = int(c.slider(x, &y, w, "Count", fmt.Sprintf("%d", p.Count), float32(p.Count), 0, maxCount))
	p.Size = c.slider(x, &y, w, "Size", fmt.Sprintf("%.3f", p.Size), p.Size, 0.001, maxSize)
	p.Radius = c.slider(x, &y, w, "Radius", fmt.Sprintf("%.2f", p.Radius), p.Radius, 0.01, maxRadius)
	p.Branches = int(c.slider(x, &y, w, "Branches", fmt.Sprintf("%d", p.Branches), float32(p.Branches), 1, maxBranches))
	p.Spin = c.slider(x, &y, w, "Spin", fmt.Sprintf("%+.2f", p.Spin), p.Spin, -maxSpin, maxSpin)
	p.Randomness = c.slider(x, &y, w, "Randomness", fmt.Sprintf("%.3f", p.Randomness), p.Randomness, 0, maxRandomness)
	p.RandomnessPower = c.slider(x, &y, w, "Randomness power", fmt.Sprintf("%.2f", p.RandomnessPower), p.RandomnessPower, 1, maxPower)

	p.ScaleJitter = gui.CheckBox(rl.Rectangle{X: x, Y: y, Width: 14, Height: 14}, "Scale jitter by radius", p.ScaleJitter)
	y += 24

	// Color pickers side by side; each draws a hue bar to its right
	pickerW := (w - 70) / 2
	rl.DrawText("Inside", int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
	rl.DrawText("Outside", int32(x+pickerW+35), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
	y += 16
	inside := gui.ColorPicker(rl.Rectangle{X: x, Y: y, Width: pickerW, Height: pickerW}, "", toRaylib(p.InsideColor))
	outside := gui.ColorPicker(rl.Rectangle{X: x + pickerW + 35, Y: y, Width: pickerW, Height: pickerW}, "", toRaylib(p.OutsideColor))
	p.InsideColor = fromRaylib(inside, p.InsideColor)
	p.OutsideColor = fromRaylib(outside, p.OutsideColor)
	y += pickerW + 16

	if p != c.pending {
		c.pending = p
		c.dirty = true
	}
	if c.dirty && !rl.IsMouseButtonDown(rl.MouseButtonLeft) {
		c.dirty = false
		if err := g.OnParametersChanged(c.pending); err != nil {
			slog.Warn("parameters rejected", "error", err)
		}
	}

	// Actions
	rl.DrawText("Scene", int32(x), int32(y), 16, rl.White)
	y += 24
	half := (w - 10) / 2
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: half, Height: 26}, "Create sphere") {
		if _, err := g.SpawnRandomSphere(); err != nil {
			slog.Warn("spawn failed", "error", err)
		}
	}
	if gui.Button(rl.Rectangle{X: x + half + 10, Y: y, Width: half, Height: 26}, "Reset") {
		if err := g.Reset(); err != nil {
			slog.Warn("reset failed", "error", err)
		}
	}
	y += 34
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: half, Height: 26}, "Regenerate") {
		if err := g.Regenerate(); err != nil {
			slog.Warn("regenerate failed", "error", err)
		}
	}
	if gui.Button(rl.Rectangle{X: x + half + 10, Y: y, Width: half, Height: 26}, toggleText(g.Paused(), "Resume", "Pause")) {
		g.TogglePause()
	}
}

// slider draws a labelled slider bar and advances y past it. The range
// widens to include v so a configured value outside it is not clamped.
func (c *ControlsPanel) slider(x float32, y *float32, w float32, label, value string, v, lo, hi float32) float32 {
	r := c.renderer
	rl.DrawText(label, int32(x), int32(*y), r.Theme.FontSize, r.Theme.LabelColor)
	*y += 14
	v = gui.SliderBar(rl.Rectangle{X: x, Y: *y, Width: w - 70, Height: 16}, "", "", v, min(lo, v), max(hi, v))
	rl.DrawText(value, int32(x+w-64), int32(*y+2), r.Theme.FontSize, r.Theme.ValueColor)
	*y += 24
	return v
}

// HelpPanel lists overlays and scene keys.
type HelpPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewHelpPanel creates a new help panel.
func NewHelpPanel(x, y, width int32) *HelpPanel {
	return &HelpPanel{renderer: NewRenderer(), x: x, y: y, width: width}
}

// SetPosition updates the panel position.
func (h *HelpPanel) SetPosition(x, y int32) {
	h.x = x
	h.y = y
}

// Draw renders the help panel.
func (h *HelpPanel) Draw(overlays *OverlayRegistry) {
	r := h.renderer
	padding := r.Theme.Padding
	lineHeight := r.Theme.LineHeight

	categories := overlays.Categories()
	totalItems := len(sceneKeys) + 1
	for _, cat := range categories {
		totalItems += len(overlays.ByCategory(cat)) + 1
	}
	panelHeight := int32(totalItems)*lineHeight + padding*3 + lineHeight

	r.DrawPanel(h.x, h.y, h.width, panelHeight)
	y := h.y + padding

	rl.DrawText("Keys", h.x+padding, y, 16, rl.White)
	y += lineHeight + 4

	for _, category := range categories {
		rl.DrawText(categoryLabel(category), h.x+padding, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
		y += lineHeight
		for _, desc := range overlays.ByCategory(category) {
			h.drawToggle(h.x+padding, y, desc.Name, desc.KeyLabel, overlays.IsEnabled(desc.ID), h.width-padding*2)
			y += lineHeight
		}
		y += 4
	}

	rl.DrawText("Scene", h.x+padding, y, r.Theme.HeaderFontSize, r.Theme.SectionHeader)
	y += lineHeight
	for _, k := range sceneKeys {
		h.drawToggle(h.x+padding, y, k.name, k.label, false, h.width-padding*2)
		y += lineHeight
	}
}

// drawToggle draws a single line with status dot, name and key.
func (h *HelpPanel) drawToggle(x, y int32, name, key string, enabled bool, width int32) {
	r := h.renderer

	statusColor := rl.Color{R: 80, G: 80, B: 80, A: 255}
	nameColor := r.Theme.LabelColor
	if enabled {
		statusColor = rl.Color{R: 100, G: 200, B: 100, A: 255}
		nameColor = rl.White
	}
	rl.DrawRectangle(x, y+2, 8, 8, statusColor)
	rl.DrawText(name, x+14, y, r.Theme.FontSize, nameColor)

	if key != "" {
		keyText := fmt.Sprintf("[%s]", key)
		keyWidth := rl.MeasureText(keyText, r.Theme.FontSize)
		rl.DrawText(keyText, x+width-keyWidth, y, r.Theme.FontSize, rl.Color{R: 150, G: 150, B: 150, A: 255})
	}
}

type sceneKey struct {
	key   int32
	label string
	name  string
}

var sceneKeys = []sceneKey{
	{rl.KeySpace, "Space", "Pause"},
	{rl.KeyN, "N", "Create sphere"},
	{rl.KeyR, "R", "Reset spheres"},
	{rl.KeyG, "G", "Regenerate galaxy"},
	{rl.KeyS, "S", "Save snapshot"},
	{rl.KeyHome, "Home", "Reset camera"},
}

// HandleSceneKeys applies the scene keyboard shortcuts.
func HandleSceneKeys(g *game.Game) {
	for _, k := range sceneKeys {
		if !rl.IsKeyPressed(k.key) {
			continue
		}
		var err error
		switch k.key {
		case rl.KeySpace:
			g.TogglePause()
		case rl.KeyN:
			_, err = g.SpawnRandomSphere()
		case rl.KeyR:
			err = g.Reset()
		case rl.KeyG:
			err = g.Regenerate()
		case rl.KeyS:
			var path string
			if path, err = g.SaveSnapshot(); err == nil {
				slog.Info("snapshot saved", "path", path)
			}
		}
		if err != nil {
			slog.Warn("scene action failed", "action", k.name, "error", err)
		}
	}
}

// categoryLabel returns a display label for a category.
func categoryLabel(cat string) string {
	switch cat {
	case "panels":
		return "Panels"
	case "debug":
		return "Debug"
	default:
		return cat
	}
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}

func toRaylib(c galaxy.Color) rl.Color {
	r, g, b, a := c.RGBA8()
	return rl.Color{R: r, G: g, B: b, A: a}
}

// fromRaylib converts a picked color, keeping prev when the 8-bit value is
// unchanged so float precision is not lost to rounding.
func fromRaylib(c rl.Color, prev galaxy.Color) galaxy.Color {
	if c == toRaylib(prev) {
		return prev
	}
	return galaxy.Color{R: float32(c.R) / 255, G: float32(c.G) / 255, B: float32(c.B) / 255}
}
