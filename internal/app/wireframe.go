package app

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/philipparndt/plyview/pkg/analysis"
)

// drawWireframe draws every unique edge once
func (app *App) drawWireframe(stats *analysis.Stats) {
	wireframeColor := rl.NewColor(100, 100, 100, 200)
	for _, edge := range stats.Edges {
		rl.DrawLine3D(toRaylib(edge.Start), toRaylib(edge.End), wireframeColor)
	}
}
