package geometry

// Face is a triangle given by three vertex indices
type Face [3]int

// FaceNormal computes the unit normal of the triangle (a, b, c) with
// counter-clockwise winding. Degenerate triangles return the zero vector.
func FaceNormal(a, b, c Vector3) Vector3 {
	edge1 := b.Sub(a)
	edge2 := c.Sub(a)
	return edge1.Cross(edge2).Normalize()
}

// TriangleArea returns the surface area of the triangle (a, b, c)
func TriangleArea(a, b, c Vector3) float64 {
	return b.Sub(a).Cross(c.Sub(a)).Length() / 2.0
}

// ValidFaces reports whether every index of every face is within [0, n)
func ValidFaces(faces []Face, n int) bool {
	for _, f := range faces {
		for _, idx := range f {
			if idx < 0 || idx >= n {
				return false
			}
		}
	}
	return true
}
