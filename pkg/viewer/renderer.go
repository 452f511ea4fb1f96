package viewer

import (
	"image"
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// Scene is what a Viewport draws and steers. Implementations must be safe
// for use from the render goroutine and the input goroutine at once.
type Scene interface {
	// Snapshot returns a copy of the camera and the current draw list
	Snapshot() (Camera, []DrawItem)
	Rotate(deltaX, deltaY float64)
	Pan(dx, dy float64)
	Zoom(delta float64)
	// Tick advances auto-rotation and reports whether a redraw is needed
	Tick(dt float64) bool
	ToggleAutoRotate() bool
}

// Viewport is an interactive fyne widget rendering a Scene
type Viewport struct {
	widget.BaseWidget
	scene      Scene
	raster     *canvas.Raster
	caption    *canvas.Text
	background color.Color
	width      float64
	height     float64
	panning    bool

	mu   sync.Mutex
	stop chan struct{}
}

// NewViewport creates a viewport for the scene with an optional caption
func NewViewport(scene Scene, caption string) *Viewport {
	v := &Viewport{
		scene:      scene,
		background: color.White,
	}
	v.raster = canvas.NewRaster(v.draw)
	v.caption = canvas.NewText(caption, color.RGBA{R: 40, G: 40, B: 40, A: 255})
	v.caption.TextSize = 12
	v.ExtendBaseWidget(v)
	return v
}

// SetBackground changes the clear color
func (v *Viewport) SetBackground(c color.Color) {
	v.background = c
	v.Redraw()
}

// Redraw schedules a new frame. Must be called on the fyne goroutine.
func (v *Viewport) Redraw() {
	v.raster.Refresh()
}

func (v *Viewport) draw(w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return image.NewNRGBA(image.Rect(0, 0, 1, 1))
	}
	cam, items := v.scene.Snapshot()
	return Render(&cam, items, Settings{
		Width:       w,
		Height:      h,
		Supersample: 1,
		Background:  v.background,
	})
}

// Start runs the auto-rotate loop until Stop is called
func (v *Viewport) Start() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stop != nil {
		return
	}
	stop := make(chan struct{})
	v.stop = stop

	go func() {
		const frame = time.Second / 30
		ticker := time.NewTicker(frame)
		defer ticker.Stop()

		last := time.Now()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				dt := now.Sub(last).Seconds()
				last = now
				if v.scene.Tick(dt) {
					fyne.Do(v.Redraw)
				}
			}
		}
	}()
}

// Stop ends the auto-rotate loop
func (v *Viewport) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stop != nil {
		close(v.stop)
		v.stop = nil
	}
}

// CreateRenderer creates the renderer for the widget
func (v *Viewport) CreateRenderer() fyne.WidgetRenderer {
	return &viewportRenderer{
		viewport: v,
		objects:  []fyne.CanvasObject{v.raster, v.caption},
	}
}

// MouseDown remembers whether the secondary button starts a pan
func (v *Viewport) MouseDown(event *desktop.MouseEvent) {
	v.panning = event.Button == desktop.MouseButtonSecondary
}

// MouseUp ends a pan
func (v *Viewport) MouseUp(*desktop.MouseEvent) {
	v.panning = false
}

// Dragged rotates the camera, or pans it while the secondary button is held
func (v *Viewport) Dragged(event *fyne.DragEvent) {
	dx, dy := float64(event.Dragged.DX), float64(event.Dragged.DY)
	if v.panning && v.width > 0 && v.height > 0 {
		v.scene.Pan(dx/v.width, -dy/v.height)
	} else {
		v.scene.Rotate(-dy*0.01, -dx*0.01)
	}
	v.Redraw()
}

// DragEnd handles the end of a drag event
func (v *Viewport) DragEnd() {
	v.panning = false
}

// Scrolled handles scroll events for zooming
func (v *Viewport) Scrolled(event *fyne.ScrollEvent) {
	v.scene.Zoom(-float64(event.Scrolled.DY) * 0.001)
	v.Redraw()
}

// DoubleTapped toggles auto-rotation
func (v *Viewport) DoubleTapped(*fyne.PointEvent) {
	v.scene.ToggleAutoRotate()
}

type viewportRenderer struct {
	viewport *Viewport
	objects  []fyne.CanvasObject
}

func (r *viewportRenderer) Layout(size fyne.Size) {
	r.viewport.width = float64(size.Width)
	r.viewport.height = float64(size.Height)

	r.viewport.raster.Resize(size)
	r.viewport.raster.Move(fyne.NewPos(0, 0))

	textSize := r.viewport.caption.MinSize()
	r.viewport.caption.Move(fyne.NewPos(6, size.Height-textSize.Height-4))
	r.viewport.caption.Resize(textSize)
}

func (r *viewportRenderer) MinSize() fyne.Size {
	return fyne.NewSize(200, 200)
}

func (r *viewportRenderer) Refresh() {
	r.viewport.raster.Refresh()
	r.viewport.caption.Refresh()
}

func (r *viewportRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *viewportRenderer) Destroy() {
	r.viewport.Stop()
}
