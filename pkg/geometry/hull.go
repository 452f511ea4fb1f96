package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/markus-wa/quickhull-go/v2"
)

// ErrDegenerate is returned when a point set cannot span the requested
// structure: fewer than 3 points or collinear points for a triangulation,
// fewer than 4 points or coplanar points for a hull.
var ErrDegenerate = errors.New("degenerate point set")

// hullEps is the relative plane distance handed to quickhull.
const hullEps = 1e-10

// relTolerance scales the degeneracy checks with the extent of the data.
const relTolerance = 1e-9

// ConvexHull computes the boundary triangles of the 3D convex hull of points.
// Face indices refer to the input slice, so the caller can keep using its own
// position buffer. Faces are wound counter-clockwise seen from outside.
func ConvexHull(points []Vector3) (faces []Face, err error) {
	if len(points) < 4 {
		return nil, fmt.Errorf("%w: convex hull needs at least 4 points, got %d", ErrDegenerate, len(points))
	}

	eps := tolerance(points)
	if eps == 0 {
		return nil, fmt.Errorf("%w: all %d points coincide", ErrDegenerate, len(points))
	}
	if !spansVolume(points, eps) {
		return nil, fmt.Errorf("%w: points are coplanar", ErrDegenerate)
	}

	cloud := make([]r3.Vector, len(points))
	for i, p := range points {
		cloud[i] = p.R3()
	}

	defer func() {
		if r := recover(); r != nil {
			faces = nil
			err = fmt.Errorf("%w: quickhull failed: %v", ErrDegenerate, r)
		}
	}()

	qh := new(quickhull.QuickHull)
	hull := qh.ConvexHull(cloud, true, true, hullEps)

	inside := centroid(points)
	faces = make([]Face, 0, len(hull.Indices)/3)
	for i := 0; i+2 < len(hull.Indices); i += 3 {
		f := Face{hull.Indices[i], hull.Indices[i+1], hull.Indices[i+2]}
		a, b, c := points[f[0]], points[f[1]], points[f[2]]
		if FaceNormal(a, b, c).Dot(a.Sub(inside)) < 0 {
			f[1], f[2] = f[2], f[1]
		}
		faces = append(faces, f)
	}
	if len(faces) < 4 || !ValidFaces(faces, len(points)) {
		return nil, fmt.Errorf("%w: hull produced %d faces", ErrDegenerate, len(faces))
	}
	return faces, nil
}

// centroid is the mean of the points, strictly inside a non-degenerate hull.
func centroid(points []Vector3) Vector3 {
	var sum Vector3
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1.0 / float64(len(points)))
}

// tolerance returns the absolute distance below which two features are
// considered identical for this point set. Zero means zero extent.
func tolerance(points []Vector3) float64 {
	extent := BoundsOf(points).Size().MaxComponent()
	return extent * relTolerance
}

// spansVolume reports whether the points contain four non-coplanar members.
func spansVolume(points []Vector3, eps float64) bool {
	i0, i1, ok := farthestPair(points, eps)
	if !ok {
		return false
	}
	p0 := points[i0]
	dir := points[i1].Sub(p0).Normalize()

	i2, best := -1, eps
	for i, p := range points {
		if d := p.Sub(p0).Cross(dir).Length(); d > best {
			i2, best = i, d
		}
	}
	if i2 < 0 {
		return false
	}

	normal := points[i1].Sub(p0).Cross(points[i2].Sub(p0)).Normalize()
	for _, p := range points {
		if math.Abs(p.Sub(p0).Dot(normal)) > eps {
			return true
		}
	}
	return false
}

// farthestPair picks the extreme points along the axis of largest spread.
func farthestPair(points []Vector3, eps float64) (int, int, bool) {
	size := BoundsOf(points).Size()
	axis := func(v Vector3) float64 { return v.X }
	switch {
	case size.Y >= size.X && size.Y >= size.Z:
		axis = func(v Vector3) float64 { return v.Y }
	case size.Z >= size.X && size.Z >= size.Y:
		axis = func(v Vector3) float64 { return v.Z }
	}

	lo, hi := 0, 0
	for i, p := range points {
		if axis(p) < axis(points[lo]) {
			lo = i
		}
		if axis(p) > axis(points[hi]) {
			hi = i
		}
	}
	if points[lo].Distance(points[hi]) <= eps {
		return 0, 0, false
	}
	return lo, hi, true
}
