package app

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// handleInput processes user input
func (app *App) handleInput() {
	v := app.Scene.viewer

	// Camera view preset shortcuts
	if rl.IsKeyPressed(rl.KeyHome) {
		app.resetCameraView()
	}
	if rl.IsKeyPressed(rl.KeyT) {
		app.setCameraTopView()
	}
	if rl.IsKeyPressed(rl.KeyB) {
		app.setCameraBottomView()
	}
	if rl.IsKeyPressed(rl.KeyOne) {
		app.setCameraFrontView()
	}
	if rl.IsKeyPressed(rl.KeyTwo) {
		app.setCameraBackView()
	}
	if rl.IsKeyPressed(rl.KeyThree) {
		app.setCameraLeftView()
	}
	if rl.IsKeyPressed(rl.KeyFour) {
		app.setCameraRightView()
	}

	if rl.IsMouseButtonPressed(rl.MouseLeftButton) {
		shiftPressed := rl.IsKeyDown(rl.KeyLeftShift) || rl.IsKeyDown(rl.KeyRightShift)
		app.Interaction.isPanning = shiftPressed
		app.Interaction.isRotating = !shiftPressed
	}
	if rl.IsMouseButtonReleased(rl.MouseLeftButton) {
		app.Interaction.isPanning = false
		app.Interaction.isRotating = false
	}

	delta := rl.GetMouseDelta()
	if delta.X != 0 || delta.Y != 0 {
		width := float64(rl.GetScreenWidth())
		height := float64(rl.GetScreenHeight())
		dx, dy := float64(delta.X), float64(delta.Y)

		// Pan with Shift + left drag or middle drag
		if (app.Interaction.isPanning && rl.IsMouseButtonDown(rl.MouseLeftButton)) || rl.IsMouseButtonDown(rl.MouseMiddleButton) {
			if width > 0 && height > 0 {
				v.Pan(dx/width, -dy/height)
			}
		} else if app.Interaction.isRotating && rl.IsMouseButtonDown(rl.MouseLeftButton) {
			v.Rotate(-dy*0.01, -dx*0.01)
		}
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		v.Zoom(-float64(wheel) * 0.05)
	}

	// Keyboard toggles
	if rl.IsKeyPressed(rl.KeySpace) {
		v.ToggleAutoRotate()
	}
	if rl.IsKeyPressed(rl.KeyW) {
		app.View.showWireframe = !app.View.showWireframe
	}
	if rl.IsKeyPressed(rl.KeyF) {
		app.View.showFilled = !app.View.showFilled
	}
	if rl.IsKeyPressed(rl.KeyP) {
		app.View.showPoints = !app.View.showPoints
	}
	if rl.IsKeyPressed(rl.KeyX) {
		app.View.showBounds = !app.View.showBounds
	}
	if rl.IsKeyPressed(rl.KeyH) {
		app.View.showHelp = !app.View.showHelp
	}
	if rl.IsKeyPressed(rl.KeyR) {
		app.FileWatch.needsReload.Store(true)
	}
}
