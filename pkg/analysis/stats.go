package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/philipparndt/plyview/pkg/display"
	"github.com/philipparndt/plyview/pkg/geometry"
	"github.com/philipparndt/plyview/pkg/ply"
)

// EdgeInfo is one undirected edge of a triangle set
type EdgeInfo struct {
	A, B   int
	Start  geometry.Vector3
	End    geometry.Vector3
	Length float64
}

// Stats summarizes a point set or a display geometry
type Stats struct {
	BoundingBox     geometry.BoundingBox
	Dimensions      geometry.Vector3
	Volume          float64
	VertexCount     int
	FaceCount       int
	HasColors       bool
	MeanColor       ply.Color
	SurfaceArea     float64
	DegenerateFaces int
	EdgeCount       int
	MinEdgeLength   float64
	MaxEdgeLength   float64
	AvgEdgeLength   float64
	Edges           []EdgeInfo
}

// AnalyzePointSet summarizes a parsed file
func AnalyzePointSet(ps *ply.PointSet) *Stats {
	return analyze(ps.Positions, ps.Colors, ps.Faces)
}

// AnalyzeGeometry summarizes what a display mode produced
func AnalyzeGeometry(g *display.Geometry) *Stats {
	return analyze(g.Positions, g.Colors, g.Faces)
}

func analyze(positions []geometry.Vector3, colors []ply.Color, faces []geometry.Face) *Stats {
	s := &Stats{
		BoundingBox: geometry.BoundsOf(positions),
		VertexCount: len(positions),
		FaceCount:   len(faces),
		HasColors:   colors != nil,
	}
	if !s.BoundingBox.IsEmpty() {
		s.Dimensions = s.BoundingBox.Size()
		s.Volume = s.BoundingBox.Volume()
	}

	if len(colors) > 0 {
		var r, g, b float64
		for _, c := range colors {
			r += c.R
			g += c.G
			b += c.B
		}
		n := float64(len(colors))
		s.MeanColor = ply.Color{R: r / n, G: g / n, B: b / n}
	}

	seen := make(map[[2]int]bool)
	total := 0.0
	s.MinEdgeLength = math.MaxFloat64

	for _, f := range faces {
		a, b, c := positions[f[0]], positions[f[1]], positions[f[2]]
		area := geometry.TriangleArea(a, b, c)
		if area == 0 {
			s.DegenerateFaces++
		}
		s.SurfaceArea += area

		for _, e := range [][2]int{{f[0], f[1]}, {f[1], f[2]}, {f[2], f[0]}} {
			if e[0] > e[1] {
				e[0], e[1] = e[1], e[0]
			}
			if seen[e] {
				continue
			}
			seen[e] = true

			length := positions[e[0]].Distance(positions[e[1]])
			s.Edges = append(s.Edges, EdgeInfo{
				A:      e[0],
				B:      e[1],
				Start:  positions[e[0]],
				End:    positions[e[1]],
				Length: length,
			})
			total += length
			s.MinEdgeLength = math.Min(s.MinEdgeLength, length)
			s.MaxEdgeLength = math.Max(s.MaxEdgeLength, length)
		}
	}

	s.EdgeCount = len(s.Edges)
	if s.EdgeCount > 0 {
		s.AvgEdgeLength = total / float64(s.EdgeCount)
	} else {
		s.MinEdgeLength = 0
	}
	return s
}

// FindLongestEdges returns the n longest edges
func FindLongestEdges(s *Stats, n int) []EdgeInfo {
	return sortedEdges(s, n, func(a, b EdgeInfo) bool { return a.Length > b.Length })
}

// FindShortestEdges returns the n shortest edges
func FindShortestEdges(s *Stats, n int) []EdgeInfo {
	return sortedEdges(s, n, func(a, b EdgeInfo) bool { return a.Length < b.Length })
}

func sortedEdges(s *Stats, n int, less func(a, b EdgeInfo) bool) []EdgeInfo {
	edges := make([]EdgeInfo, len(s.Edges))
	copy(edges, s.Edges)
	sort.SliceStable(edges, func(i, j int) bool { return less(edges[i], edges[j]) })
	if n > len(edges) {
		n = len(edges)
	}
	return edges[:n]
}

// FindNearestVertex returns the index of the position closest to point, or
// -1 when there are none
func FindNearestVertex(positions []geometry.Vector3, point geometry.Vector3) (int, float64) {
	nearest := -1
	minDistance := math.MaxFloat64
	for i, p := range positions {
		if d := point.Distance(p); d < minDistance {
			minDistance = d
			nearest = i
		}
	}
	return nearest, minDistance
}

// FormatVector formats a 3D vector
func FormatVector(v geometry.Vector3) string {
	return fmt.Sprintf("(%.6f, %.6f, %.6f)", v.X, v.Y, v.Z)
}

// FormatColor formats a color as #rrggbb
func FormatColor(c ply.Color) string {
	to8 := func(v float64) int { return int(math.Round(math.Max(0, math.Min(1, v)) * 255)) }
	return fmt.Sprintf("#%02x%02x%02x", to8(c.R), to8(c.G), to8(c.B))
}
