package ply

import (
	"fmt"

	"github.com/philipparndt/plyview/pkg/geometry"
)

// Color is a linear RGB color with components in [0, 1]
type Color struct {
	R, G, B float64
}

// PointSet is the parsed content of a PLY file: positions, optional
// per-vertex colors and optional triangle faces.
//
// A PointSet is created once per load and is not modified by the parser
// afterwards. Once handed to the display builder, the builder's geometry
// becomes the only owner of its buffers.
type PointSet struct {
	Name      string
	Positions []geometry.Vector3
	Colors    []Color         // nil or len(Positions)
	Faces     []geometry.Face // nil when the file has no face element
	Comments  []string
}

// NewPointSet creates a point set from positions only
func NewPointSet(positions []geometry.Vector3) *PointSet {
	return &PointSet{Positions: positions}
}

// Len returns the number of vertices
func (ps *PointSet) Len() int {
	return len(ps.Positions)
}

// HasColors reports whether the point set carries a color per vertex
func (ps *PointSet) HasColors() bool {
	return ps.Colors != nil && len(ps.Colors) == len(ps.Positions)
}

// HasFaces reports whether the source carried a face list
func (ps *PointSet) HasFaces() bool {
	return len(ps.Faces) > 0
}

// BoundingBox calculates the bounding box of all positions
func (ps *PointSet) BoundingBox() geometry.BoundingBox {
	return geometry.BoundsOf(ps.Positions)
}

// Validate checks the structural invariants of the point set
func (ps *PointSet) Validate() error {
	if ps.Colors != nil && len(ps.Colors) != len(ps.Positions) {
		return fmt.Errorf("color count %d does not match vertex count %d", len(ps.Colors), len(ps.Positions))
	}
	if !geometry.ValidFaces(ps.Faces, len(ps.Positions)) {
		return fmt.Errorf("face index out of range for %d vertices", len(ps.Positions))
	}
	return nil
}
