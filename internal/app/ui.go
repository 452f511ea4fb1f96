package app

import (
	"fmt"
	"path"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/philipparndt/plyview/internal/scene"
	"github.com/philipparndt/plyview/pkg/analysis"
	"github.com/philipparndt/plyview/version"
)

var stateColors = map[scene.State]rl.Color{
	scene.Unloaded: rl.LightGray,
	scene.Loading:  rl.Yellow,
	scene.Ready:    rl.Green,
	scene.Failed:   rl.Red,
	scene.Invalid:  rl.Red,
}

// drawUI draws the status overlay and key help
func (app *App) drawUI() {
	x := int32(10)
	y := int32(10)
	fs := app.UI.fontSize
	lh := app.UI.lineHeight

	status := app.Scene.viewer.Status()
	title := status.Label
	if title == "" {
		title = "Item"
	}
	rl.DrawText(fmt.Sprintf("%s (%s)", title, status.Mode), x, y, fs, rl.Yellow)
	y += lh

	_, items := app.Scene.viewer.Snapshot()
	for i, slot := range status.Slots {
		line := fmt.Sprintf("  %s: %s", path.Base(slot.URL), slot.State)
		if slot.State == scene.Ready {
			line += fmt.Sprintf(" - %d vertices, %d faces", slot.Vertices, slot.Faces)
		}
		rl.DrawText(line, x, y, fs-2, stateColors[slot.State])
		y += lh
		if slot.Error != "" {
			rl.DrawText("    "+slot.Error, x, y, fs-4, rl.Red)
			y += lh
		}

		if slot.State == scene.Ready && i < len(items) {
			if entry := app.Meshes.get(items[i]); entry != nil {
				y = app.drawStats(entry.stats, x, y)
			}
		}
	}

	if !app.FileWatch.reloadedAt.IsZero() && time.Since(app.FileWatch.reloadedAt) < 2*time.Second {
		rl.DrawText("Reloaded", int32(rl.GetScreenWidth())-110, 20, fs, rl.Yellow)
	}

	if app.View.showHelp {
		y += lh
		rl.DrawText("View:", x, y, fs, rl.Yellow)
		y += lh
		for _, line := range []string{
			"  Home: Reset | T: Top | B: Bottom",
			"  1: Front | 2: Back | 3: Left | 4: Right",
			"  Left Drag: Rotate | Shift+Drag: Pan",
			"  Mouse Wheel: Zoom | Middle: Pan",
			"  Space: Auto-rotate | R: Reload",
			"  W: Wireframe | F: Fill | P: Points | X: Bounds",
			"  H: Hide help",
		} {
			rl.DrawText(line, x, y, fs-2, rl.LightGray)
			y += lh
		}
	}

	bottomY := int32(rl.GetScreenHeight()) - 30
	versionText := fmt.Sprintf("v%s", version.GetVersion())
	rl.DrawText(versionText, x, bottomY, 12, rl.Gray)
	fpsX := x + rl.MeasureText(versionText, 12) + 15
	rl.DrawText(fmt.Sprintf("FPS: %d", rl.GetFPS()), fpsX, bottomY, 12, rl.Lime)
}

func (app *App) drawStats(s *analysis.Stats, x, y int32) int32 {
	fs := app.UI.fontSize - 4
	lh := app.UI.lineHeight

	rl.DrawText(fmt.Sprintf("    Size: %.3f x %.3f x %.3f", s.Dimensions.X, s.Dimensions.Y, s.Dimensions.Z), x, y, fs, rl.White)
	y += lh
	if s.FaceCount > 0 {
		rl.DrawText(fmt.Sprintf("    Surface Area: %.3f | Edges: %d", s.SurfaceArea, s.EdgeCount), x, y, fs, rl.White)
		y += lh
	}
	if s.HasColors {
		rl.DrawText("    Mean Color: "+analysis.FormatColor(s.MeanColor), x, y, fs, rl.White)
		y += lh
	}
	return y
}
