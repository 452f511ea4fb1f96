package scene

import (
	"context"
	"image"
	"sync"

	"github.com/philipparndt/plyview/pkg/display"
	"github.com/philipparndt/plyview/pkg/geometry"
	"github.com/philipparndt/plyview/pkg/viewer"
)

var placeholder = sync.OnceValues(display.Placeholder)

// Viewer is one mounted item: its slots and its own camera
type Viewer struct {
	index  int
	item   ViewItem
	mode   display.Mode
	config error

	mu     sync.Mutex
	slots  []*Slot
	camera *viewer.Camera
	// navigated is set by pan and zoom. Slots that become ready afterwards
	// keep the camera where the user put it; rotation alone does not count
	// since a fit keeps the view direction.
	navigated bool
}

func newViewer(index int, item ViewItem) *Viewer {
	v := &Viewer{
		index:  index,
		item:   item,
		mode:   item.Mode(),
		camera: viewer.NewCamera(geometry.UnitCube()),
	}

	colors, err := item.Validate()
	if err != nil {
		v.config = err
		return v
	}

	v.slots = make([]*Slot, len(item.URLs))
	for i, url := range item.URLs {
		v.slots[i] = &Slot{URL: url, Color: colors[i]}
	}
	v.fit()
	return v
}

// Index returns the position of the viewer in its batch
func (v *Viewer) Index() int {
	return v.index
}

// Item returns the item with defaults applied
func (v *Viewer) Item() ViewItem {
	return v.item
}

// Mode returns the display mode of all slots
func (v *Viewer) Mode() display.Mode {
	return v.mode
}

// Err returns the configuration error of an invalid viewer
func (v *Viewer) Err() error {
	return v.config
}

// Invalid reports whether the viewer renders nothing
func (v *Viewer) Invalid() bool {
	return v.config != nil
}

// Status returns a snapshot of all slots
func (v *Viewer) Status() ItemStatus {
	v.mu.Lock()
	defer v.mu.Unlock()

	st := ItemStatus{Index: v.index, Label: v.item.Label, Mode: v.mode.String()}
	if v.config != nil {
		st.Error = v.config.Error()
		for _, url := range v.item.URLs {
			st.Slots = append(st.Slots, SlotStatus{URL: url, State: Invalid, Error: st.Error, err: v.config})
		}
		return st
	}
	for _, s := range v.slots {
		st.Slots = append(st.Slots, s.status())
	}
	return st
}

// Bounds returns the union of ready geometry and placeholder bounds
func (v *Viewer) Bounds() geometry.BoundingBox {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bounds()
}

func (v *Viewer) bounds() geometry.BoundingBox {
	bounds := geometry.NewBoundingBox()
	for _, s := range v.slots {
		if s.state == Ready {
			bounds = bounds.Union(s.geometry.Bounds())
		} else {
			bounds = bounds.Union(geometry.UnitCube())
		}
	}
	return bounds
}

// fit frames the camera on the current content. Caller holds the lock or
// owns the viewer exclusively.
func (v *Viewer) fit() {
	v.camera.FitBounds(v.bounds(), viewer.DefaultMargin)
}

// Snapshot returns a copy of the camera and what to draw. Invalid viewers
// draw nothing; slots that are not ready draw the placeholder cube.
func (v *Viewer) Snapshot() (viewer.Camera, []viewer.DrawItem) {
	v.mu.Lock()
	defer v.mu.Unlock()

	cam := *v.camera
	if v.config != nil {
		return cam, nil
	}

	items := make([]viewer.DrawItem, 0, len(v.slots))
	for _, s := range v.slots {
		if s.state == Ready {
			items = append(items, viewer.DrawItem{Geometry: s.geometry, Material: s.material})
			continue
		}
		g, m := placeholder()
		items = append(items, viewer.DrawItem{Geometry: g, Material: m})
	}
	return cam, items
}

// Render draws the viewer headlessly with the item label as caption
func (v *Viewer) Render(settings viewer.Settings) *image.NRGBA {
	cam, items := v.Snapshot()
	if settings.Caption == "" {
		settings.Caption = v.item.Label
	}
	return viewer.Render(&cam, items, settings)
}

// Rotate orbits the camera
func (v *Viewer) Rotate(deltaX, deltaY float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.camera.Rotate(deltaX, deltaY)
}

// Pan shifts the camera target in the view plane
func (v *Viewer) Pan(dx, dy float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.camera.Pan(dx, dy)
	v.navigated = true
}

// Zoom changes the camera distance
func (v *Viewer) Zoom(delta float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.camera.Zoom(delta)
	v.navigated = true
}

// Tick advances auto-rotation by dt seconds
func (v *Viewer) Tick(dt float64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.config != nil {
		return false
	}
	return v.camera.Tick(dt)
}

// ToggleAutoRotate flips auto-rotation and returns the new setting
func (v *Viewer) ToggleAutoRotate() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.camera.AutoRotate = !v.camera.AutoRotate
	return v.camera.AutoRotate
}

// SetAutoRotate enables or disables auto-rotation
func (v *Viewer) SetAutoRotate(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.camera.AutoRotate = enabled
}

// SetRotation orients the camera and keeps its target and distance
func (v *Viewer) SetRotation(rotationX, rotationY float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.camera.RotationX = 0
	v.camera.RotationY = rotationY
	v.camera.Rotate(rotationX, 0)
}

// ResetView refits the camera on the current content from the front
func (v *Viewer) ResetView() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.camera.RotationX = 0
	v.camera.RotationY = 0
	v.navigated = false
	v.fit()
}

// start moves every slot to Loading under a context derived from parent
// and returns the slots to load
func (v *Viewer) start(parent context.Context) []*Slot {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, s := range v.slots {
		s.ctx, s.cancel = context.WithCancel(parent)
		s.state = Loading
	}
	return append([]*Slot(nil), v.slots...)
}

// complete applies a load result. It returns false when the slot's context
// is gone, in which case the result is dropped.
func (v *Viewer) complete(s *Slot, g *display.Geometry, err error) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if s.ctx == nil || s.ctx.Err() != nil || s.state != Loading {
		return false
	}

	if err != nil {
		s.state = Failed
		s.err = err
	} else {
		s.state = Ready
		s.geometry = g
		s.material = display.ResolveMaterial(g, s.Color, v.item.VertexColors(), v.item.PointSize)
		if !v.navigated {
			v.fit()
		}
	}
	s.cancel()
	return true
}

// stop cancels every in-flight load
func (v *Viewer) stop() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, s := range v.slots {
		if s.cancel != nil {
			s.cancel()
		}
	}
}
