package geometry

import (
	"fmt"

	"github.com/fogleman/delaunay"
)

// Triangulate computes the 2D Delaunay triangulation of the points projected
// onto the XY plane. The Z component is ignored for the triangulation only,
// so the returned faces describe a height field over the original points.
// Face indices refer to the input slice and every face is wound
// counter-clockwise in XY, which makes the face normals point towards +Z.
//
// The result is deterministic for a given input.
func Triangulate(points []Vector3) (faces []Face, err error) {
	if len(points) < 3 {
		return nil, fmt.Errorf("%w: triangulation needs at least 3 points, got %d", ErrDegenerate, len(points))
	}

	flat := make([]Vector3, len(points))
	for i, p := range points {
		flat[i] = Vector3{X: p.X, Y: p.Y}
	}
	eps := tolerance(flat)
	if eps == 0 || !spansArea(flat, eps) {
		return nil, fmt.Errorf("%w: projected points are collinear", ErrDegenerate)
	}

	projected := make([]delaunay.Point, len(points))
	for i, p := range points {
		projected[i] = delaunay.Point{X: p.X, Y: p.Y}
	}

	defer func() {
		if r := recover(); r != nil {
			faces = nil
			err = fmt.Errorf("%w: delaunay failed: %v", ErrDegenerate, r)
		}
	}()

	tri, err := delaunay.Triangulate(projected)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerate, err)
	}

	faces = make([]Face, 0, len(tri.Triangles)/3)
	for i := 0; i+2 < len(tri.Triangles); i += 3 {
		f := Face{tri.Triangles[i], tri.Triangles[i+1], tri.Triangles[i+2]}
		if cross2D(points[f[0]], points[f[1]], points[f[2]]) < 0 {
			f[1], f[2] = f[2], f[1]
		}
		faces = append(faces, f)
	}
	if !ValidFaces(faces, len(points)) {
		return nil, fmt.Errorf("%w: triangulation referenced unknown points", ErrDegenerate)
	}
	return faces, nil
}

// cross2D is the Z component of (b-a) x (c-a)
func cross2D(a, b, c Vector3) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// spansArea reports whether the (z = 0) points contain three non-collinear members.
func spansArea(points []Vector3, eps float64) bool {
	i0, i1, ok := farthestPair(points, eps)
	if !ok {
		return false
	}
	p0 := points[i0]
	dir := points[i1].Sub(p0).Normalize()
	for _, p := range points {
		if p.Sub(p0).Cross(dir).Length() > eps {
			return true
		}
	}
	return false
}
