package display

import (
	"github.com/philipparndt/plyview/pkg/geometry"
	"github.com/philipparndt/plyview/pkg/ply"
)

// Geometry is the renderable form of a point set.
//
// Positions and Colors alias the source buffers whenever the mode allows it.
// Hull meshes own a compacted copy of the hull vertices instead; Normalize
// keeps both in step.
type Geometry struct {
	Mode      Mode
	Positions []geometry.Vector3
	Colors    []ply.Color        // nil when the source has no colors
	Faces     []geometry.Face    // nil in Points mode, possibly empty when degenerate
	Normals   []geometry.Vector3 // set by Normalize for faceted modes

	// Source is the point set this geometry was built from
	Source *ply.PointSet

	// Degenerate holds the absorbed triangulation or hull error, if any
	Degenerate error
}

// Len returns the number of vertices
func (g *Geometry) Len() int {
	return len(g.Positions)
}

// HasColors reports whether the geometry carries per-vertex colors
func (g *Geometry) HasColors() bool {
	return g.Colors != nil && len(g.Colors) == len(g.Positions)
}

// HasFaces reports whether there is at least one face to draw
func (g *Geometry) HasFaces() bool {
	return len(g.Faces) > 0
}

// Bounds returns the axis-aligned bounding box of the positions
func (g *Geometry) Bounds() geometry.BoundingBox {
	return geometry.BoundsOf(g.Positions)
}

// SharesPositions reports whether the geometry uses the source position buffer
func (g *Geometry) SharesPositions() bool {
	if g.Source == nil {
		return false
	}
	return sameBuffer(g.Positions, g.Source.Positions)
}

func sameBuffer(a, b []geometry.Vector3) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == 0 && len(b) == 0
	}
	return &a[0] == &b[0]
}
