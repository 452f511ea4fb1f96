package display

import (
	"github.com/philipparndt/plyview/pkg/geometry"
	"github.com/philipparndt/plyview/pkg/ply"
)

// Build derives the display geometry for the given mode.
//
// Build never fails: degenerate input for Surface or Mesh yields an empty,
// non-nil face list and the absorbed error in Geometry.Degenerate.
func Build(ps *ply.PointSet, mode Mode) *Geometry {
	switch mode {
	case Surface:
		return buildSurface(ps)
	case Mesh:
		return buildMesh(ps)
	default:
		return &Geometry{
			Mode:      Points,
			Positions: ps.Positions,
			Colors:    sourceColors(ps),
			Source:    ps,
		}
	}
}

// buildSurface triangulates the XY projection and keeps z as height
func buildSurface(ps *ply.PointSet) *Geometry {
	g := &Geometry{
		Mode:      Surface,
		Positions: ps.Positions,
		Colors:    sourceColors(ps),
		Source:    ps,
	}

	faces, err := geometry.Triangulate(ps.Positions)
	if err != nil {
		g.Faces = []geometry.Face{}
		g.Degenerate = err
		return g
	}
	g.Faces = faces
	return g
}

// buildMesh uses the source faces when present and the convex hull otherwise
func buildMesh(ps *ply.PointSet) *Geometry {
	if ps.HasFaces() {
		return &Geometry{
			Mode:      Mesh,
			Positions: ps.Positions,
			Colors:    sourceColors(ps),
			Faces:     ps.Faces,
			Source:    ps,
		}
	}

	faces, err := geometry.ConvexHull(ps.Positions)
	if err != nil {
		return &Geometry{
			Mode:       Mesh,
			Positions:  ps.Positions,
			Colors:     sourceColors(ps),
			Faces:      []geometry.Face{},
			Source:     ps,
			Degenerate: err,
		}
	}

	return compactHull(ps, faces)
}

// compactHull copies the hull vertices into a buffer owned by the geometry
// and reindexes the faces into it. Interior points are dropped.
func compactHull(ps *ply.PointSet, faces []geometry.Face) *Geometry {
	remap := make(map[int]int)
	var positions []geometry.Vector3
	var colors []ply.Color
	hasColors := ps.HasColors()

	out := make([]geometry.Face, len(faces))
	for i, f := range faces {
		for k, idx := range f {
			mapped, ok := remap[idx]
			if !ok {
				mapped = len(positions)
				remap[idx] = mapped
				positions = append(positions, ps.Positions[idx])
				if hasColors {
					colors = append(colors, ps.Colors[idx])
				}
			}
			out[i][k] = mapped
		}
	}

	return &Geometry{
		Mode:      Mesh,
		Positions: positions,
		Colors:    colors,
		Faces:     out,
		Source:    ps,
	}
}

func sourceColors(ps *ply.PointSet) []ply.Color {
	if ps.HasColors() {
		return ps.Colors
	}
	return nil
}
