package display

// Mode selects how a point set is turned into renderable geometry
type Mode int

const (
	// Points draws every position as a splat
	Points Mode = iota
	// Mesh draws the source faces, or the convex hull when there are none
	Mesh
	// Surface draws a height field triangulated over the XY plane
	Surface
)

// ResolveMode maps the item flags onto a single mode.
// Surface wins over Mesh, Mesh wins over Points.
func ResolveMode(renderMesh, renderSurface bool) Mode {
	switch {
	case renderSurface:
		return Surface
	case renderMesh:
		return Mesh
	default:
		return Points
	}
}

// Faceted reports whether geometry in this mode carries faces and normals
func (m Mode) Faceted() bool {
	return m == Mesh || m == Surface
}

func (m Mode) String() string {
	switch m {
	case Points:
		return "points"
	case Mesh:
		return "mesh"
	case Surface:
		return "surface"
	}
	return "unknown"
}

// ParseMode is the inverse of Mode.String
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "points", "":
		return Points, true
	case "mesh":
		return Mesh, true
	case "surface":
		return Surface, true
	}
	return Points, false
}
