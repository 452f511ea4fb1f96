package display

import (
	"github.com/philipparndt/plyview/pkg/geometry"
)

// Options controls the normalization pass
type Options struct {
	// Center moves the bounding box center of the geometry to the origin
	Center bool
}

// DefaultOptions returns the options used when an item does not say otherwise
func DefaultOptions() Options {
	return Options{Center: true}
}

// Normalize recenters the geometry and computes vertex normals for faceted
// modes. It returns the bounds as they were before centering.
//
// When the geometry owns its own position buffer, the source positions are
// translated by the same offset so both stay aligned. Shared buffers are
// translated exactly once.
func Normalize(g *Geometry, opts Options) geometry.BoundingBox {
	bounds := g.Bounds()

	if opts.Center && !bounds.IsEmpty() {
		offset := bounds.Center().Mul(-1)
		if offset != (geometry.Vector3{}) {
			translate(g.Positions, offset)
			if g.Source != nil && !g.SharesPositions() {
				translate(g.Source.Positions, offset)
			}
		}
	}

	if g.Mode.Faceted() && g.HasFaces() {
		g.Normals = VertexNormals(g.Positions, g.Faces)
	} else {
		g.Normals = nil
	}
	return bounds
}

// VertexNormals returns the normalized sum of the unit normals of the faces
// adjacent to each vertex. Vertices without faces, or whose adjacent normals
// cancel out, get the zero vector.
func VertexNormals(positions []geometry.Vector3, faces []geometry.Face) []geometry.Vector3 {
	normals := make([]geometry.Vector3, len(positions))
	for _, f := range faces {
		n := geometry.FaceNormal(positions[f[0]], positions[f[1]], positions[f[2]])
		for _, idx := range f {
			normals[idx] = normals[idx].Add(n)
		}
	}
	for i := range normals {
		normals[i] = normals[i].Normalize()
	}
	return normals
}

func translate(points []geometry.Vector3, offset geometry.Vector3) {
	for i := range points {
		points[i] = points[i].Add(offset)
	}
}
