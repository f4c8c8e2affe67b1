package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/starfield/game"
	"github.com/pthm-cable/starfield/simloop"
	"github.com/pthm-cable/starfield/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title     string
	Particles int
	Spheres   int
	Frame     int64
	SimTime   float64
	FPS       int32
	State     simloop.State
	Paused    bool
}

// NewHUDData collects HUD values from a game.
func NewHUDData(g *game.Game) HUDData {
	return HUDData{
		Title:     "Starfield",
		Particles: g.Field().Buffer().Len(),
		Spheres:   len(g.Spheres()),
		Frame:     g.Frames(),
		SimTime:   g.SimTime(),
		FPS:       rl.GetFPS(),
		State:     g.State(),
		Paused:    g.Paused(),
	}
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD at the top left.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Particles: %d | Spheres: %d", data.Particles, data.Spheres),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Frame: %d | Sim: %.1fs | FPS: %d", data.Frame, data.SimTime, data.FPS),
		10, 55, 16, rl.LightGray,
	)

	switch {
	case data.State == simloop.Halted:
		rl.DrawText("HALTED - press R to reset", 10, 75, 16, rl.Red)
	case data.Paused:
		rl.DrawText("PAUSED", 10, 75, 16, rl.Yellow)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// perfPhases lists frame phases in display order.
var perfPhases = []string{
	telemetry.PhasePhysics,
	telemetry.PhaseMirror,
	telemetry.PhaseRender,
	telemetry.PhaseGenerate,
	telemetry.PhaseTelemetry,
}

// PerfPanel renders frame timing by phase.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), x: x, y: y}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x := p.x
	y := p.y

	rl.DrawText("Frame Timing", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Work: %s avg, %s p95", stats.AvgWork.Round(time.Microsecond), stats.P95Work.Round(time.Microsecond)), x, y, 14, rl.Yellow)
	y += 16
	rl.DrawText(fmt.Sprintf("Headroom: %.0f fps | Present: %.1f fps", stats.Headroom, stats.FPS), x, y, 12, rl.LightGray)
	y += 16

	for _, name := range perfPhases {
		avg := stats.PhaseAvg[name]
		pct := stats.PhasePct[name]

		color := rl.LightGray
		if pct > 50 {
			color = rl.Red
		} else if pct > 25 {
			color = rl.Orange
		}

		rl.DrawText(
			fmt.Sprintf("%-10s %8s %5.1f%%", name, avg.Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}

// StatsPanel renders scene values through field descriptors.
type StatsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	sections []SectionDescriptor
}

// NewStatsPanel creates a new scene stats panel.
func NewStatsPanel(x, y, width int32) *StatsPanel {
	return &StatsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		sections: statsSections(),
	}
}

// SetPosition updates the panel position.
func (s *StatsPanel) SetPosition(x, y int32) {
	s.x = x
	s.y = y
}

// Draw renders the panel for g.
func (s *StatsPanel) Draw(g *game.Game) {
	r := s.renderer
	padding := r.Theme.Padding

	// Height of the previous draw is unknown until laid out; size for all fields
	lines := int32(0)
	for _, sec := range s.sections {
		lines += int32(len(sec.Fields)) + 1
	}
	r.DrawPanel(s.x, s.y, s.width, lines*(r.Theme.LineHeight+2)+padding*2)

	y := s.y + padding
	for _, sec := range s.sections {
		y = r.DrawSection(s.x+padding, y, sec, g, s.width-padding*2)
	}
}

func statsSections() []SectionDescriptor {
	scene := func(d any) *game.Game { return d.(*game.Game) }
	return []SectionDescriptor{
		{
			ID:    "galaxy",
			Title: "Galaxy",
			Fields: []FieldDescriptor{
				{ID: "count", Label: "Count", Widget: WidgetText, TextGetter: func(d any) string {
					return fmt.Sprintf("%d", scene(d).Parameters().Count)
				}},
				{ID: "branches", Label: "Branches", Widget: WidgetText, TextGetter: func(d any) string {
					return fmt.Sprintf("%d", scene(d).Parameters().Branches)
				}},
				{ID: "spin", Label: "Spin", Widget: WidgetCenteredBar, Range: FieldRange{Min: -maxSpin, Max: maxSpin}, Getter: func(d any) float32 {
					return scene(d).Parameters().Spin
				}},
				{ID: "randomness", Label: "Randomness", Widget: WidgetBar, Range: DefaultRange(), Getter: func(d any) float32 {
					return scene(d).Parameters().Randomness
				}},
				{ID: "inside", Label: "Inside", Widget: WidgetColorSwatch, ColorGetter: func(d any) rl.Color {
					return toRaylib(scene(d).Parameters().InsideColor)
				}},
				{ID: "outside", Label: "Outside", Widget: WidgetColorSwatch, ColorGetter: func(d any) rl.Color {
					return toRaylib(scene(d).Parameters().OutsideColor)
				}},
				{ID: "generations", Label: "Generations", Widget: WidgetText, TextGetter: func(d any) string {
					return fmt.Sprintf("%d", scene(d).Field().Generations())
				}},
			},
		},
		{
			ID:    "physics",
			Title: "Physics",
			Fields: []FieldDescriptor{
				{ID: "bodies", Label: "Bodies", Widget: WidgetText, TextGetter: func(d any) string {
					return fmt.Sprintf("%d", scene(d).World().BodyCount())
				}},
				{ID: "steps", Label: "Steps", Widget: WidgetText, TextGetter: func(d any) string {
					return fmt.Sprintf("%d", scene(d).World().Steps())
				}},
				{ID: "state", Label: "Loop", Widget: WidgetText, TextGetter: func(d any) string {
					return scene(d).State().String()
				}},
				{ID: "seed", Label: "Seed", Widget: WidgetText, TextGetter: func(d any) string {
					return fmt.Sprintf("%d", scene(d).Seed())
				}},
			},
		},
	}
}
