package viewer

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/philipparndt/plyview/pkg/geometry"
)

// DefaultMargin is the fraction of the bounds added around fitted content
const DefaultMargin = 0.1

// DefaultAutoRotateSpeed is one orbit every 30 seconds, in radians per second
const DefaultAutoRotateSpeed = 2 * math.Pi / 30

// Camera represents an orbit camera looking at a target point
type Camera struct {
	Position  geometry.Vector3
	Target    geometry.Vector3
	Up        geometry.Vector3
	FOV       float64 // Field of view in radians
	Distance  float64
	RotationX float64 // Rotation around X axis (vertical)
	RotationY float64 // Rotation around Y axis (horizontal)

	AutoRotate      bool
	AutoRotateSpeed float64

	minDistance float64
}

// NewCamera creates a new camera positioned to view a bounding box
func NewCamera(bbox geometry.BoundingBox) *Camera {
	c := &Camera{
		Up:              geometry.NewVector3(0, 1, 0),
		FOV:             math.Pi / 4, // 45 degrees
		AutoRotate:      true,
		AutoRotateSpeed: DefaultAutoRotateSpeed,
	}
	c.FitBounds(bbox, DefaultMargin)
	return c
}

// FitBounds moves the camera so the bounding sphere of bbox, grown by margin,
// fills the field of view. Empty bounds fall back to the unit cube. The view
// direction is kept.
func (c *Camera) FitBounds(bbox geometry.BoundingBox, margin float64) {
	if bbox.IsEmpty() {
		bbox = geometry.UnitCube()
	}

	radius := bbox.Diagonal() / 2
	if radius <= 0 {
		radius = geometry.UnitCube().Diagonal() / 2
	}
	radius *= 1 + margin

	c.Target = bbox.Center()
	c.Distance = radius / math.Sin(c.FOV/2)
	c.minDistance = radius * 0.05
	c.UpdatePosition()
}

// UpdatePosition updates camera position based on rotation angles
func (c *Camera) UpdatePosition() {
	x := c.Distance * math.Cos(c.RotationX) * math.Sin(c.RotationY)
	y := c.Distance * math.Sin(c.RotationX)
	z := c.Distance * math.Cos(c.RotationX) * math.Cos(c.RotationY)

	c.Position = c.Target.Add(geometry.NewVector3(x, y, z))
}

// Rotate rotates the camera by the given angles
func (c *Camera) Rotate(deltaX, deltaY float64) {
	c.RotationX += deltaX
	c.RotationY += deltaY

	// Clamp X rotation to prevent gimbal lock
	maxAngle := math.Pi/2 - 0.1
	if c.RotationX > maxAngle {
		c.RotationX = maxAngle
	}
	if c.RotationX < -maxAngle {
		c.RotationX = -maxAngle
	}

	c.UpdatePosition()
}

// Zoom changes the camera distance by a relative amount
func (c *Camera) Zoom(delta float64) {
	c.Distance *= (1.0 + delta)
	if c.Distance < c.minDistance {
		c.Distance = c.minDistance
	}
	c.UpdatePosition()
}

// Pan shifts the target in the view plane. dx and dy are fractions of the
// viewport; positive dx moves the content right, positive dy moves it up.
func (c *Camera) Pan(dx, dy float64) {
	_, right, up := c.Basis()
	extent := 2 * c.Distance * math.Tan(c.FOV/2)

	offset := right.Mul(-dx * extent).Add(up.Mul(-dy * extent))
	c.Target = c.Target.Add(offset)
	c.UpdatePosition()
}

// Tick advances auto-rotation by dt seconds and reports whether the pose changed
func (c *Camera) Tick(dt float64) bool {
	if !c.AutoRotate || dt <= 0 {
		return false
	}
	c.RotationY += c.AutoRotateSpeed * dt
	c.RotationY = math.Mod(c.RotationY, 2*math.Pi)
	c.UpdatePosition()
	return true
}

// Basis returns the forward, right and up unit vectors of the view
func (c *Camera) Basis() (forward, right, up geometry.Vector3) {
	forward = c.Target.Sub(c.Position).Normalize()
	right = forward.Cross(c.Up).Normalize()
	up = right.Cross(forward).Normalize()
	return forward, right, up
}

// View returns the world to eye transform
func (c *Camera) View() mgl64.Mat4 {
	return mgl64.LookAtV(vec3(c.Position), vec3(c.Target), vec3(c.Up))
}

// Projection returns the perspective transform for the given aspect ratio
func (c *Camera) Projection(aspect float64) mgl64.Mat4 {
	return mgl64.Perspective(c.FOV, aspect, c.near(), c.far())
}

// Focal returns the distance in pixels of the image plane for a viewport height
func (c *Camera) Focal(height float64) float64 {
	return (height / 2) / math.Tan(c.FOV/2)
}

// Project projects a 3D point to screen coordinates. depth is the distance
// along the view direction; visible is false for points behind the near plane.
func (c *Camera) Project(point geometry.Vector3, width, height float64) (x, y, depth float64, visible bool) {
	eye := c.View().Mul4x1(vec3(point).Vec4(1))
	depth = -eye.Z()
	if depth <= c.near() {
		return 0, 0, depth, false
	}

	clip := c.Projection(width / height).Mul4x1(eye)
	ndc := clip.Mul(1 / clip.W())

	x = (ndc.X() + 1) / 2 * width
	y = (1 - ndc.Y()) / 2 * height
	return x, y, depth, true
}

func (c *Camera) near() float64 {
	return math.Max(c.Distance*0.01, 1e-6)
}

func (c *Camera) far() float64 {
	return c.Distance * 100
}

func vec3(v geometry.Vector3) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}
