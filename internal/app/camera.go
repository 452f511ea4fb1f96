package app

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/philipparndt/plyview/pkg/geometry"
	"github.com/philipparndt/plyview/pkg/viewer"
)

// toRaylibCamera converts the orbit camera into a raylib camera
func toRaylibCamera(cam viewer.Camera) rl.Camera3D {
	return rl.Camera3D{
		Position:   toRaylib(cam.Position),
		Target:     toRaylib(cam.Target),
		Up:         toRaylib(cam.Up),
		Fovy:       float32(cam.FOV * 180 / math.Pi),
		Projection: rl.CameraPerspective,
	}
}

func toRaylib(v geometry.Vector3) rl.Vector3 {
	return rl.Vector3{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}

// resetCameraView refits the camera on the content
func (app *App) resetCameraView() {
	app.Scene.viewer.ResetView()
}

// setCameraTopView looks straight down
func (app *App) setCameraTopView() {
	app.Scene.viewer.SetRotation(math.Pi/2, 0)
}

// setCameraBottomView looks straight up
func (app *App) setCameraBottomView() {
	app.Scene.viewer.SetRotation(-math.Pi/2, 0)
}

// setCameraFrontView looks along -Z
func (app *App) setCameraFrontView() {
	app.Scene.viewer.SetRotation(0, 0)
}

// setCameraBackView looks along +Z
func (app *App) setCameraBackView() {
	app.Scene.viewer.SetRotation(0, math.Pi)
}

// setCameraLeftView looks along +X
func (app *App) setCameraLeftView() {
	app.Scene.viewer.SetRotation(0, -math.Pi/2)
}

// setCameraRightView looks along -X
func (app *App) setCameraRightView() {
	app.Scene.viewer.SetRotation(0, math.Pi/2)
}
