package display

import (
	"github.com/philipparndt/plyview/pkg/geometry"
	"github.com/philipparndt/plyview/pkg/ply"
)

// PlaceholderColor is the flat color of the loading cube
var PlaceholderColor = ply.Color{R: 128.0 / 255, G: 128.0 / 255, B: 128.0 / 255}

// Placeholder returns a gray unit cube centered at the origin. It stands in
// for slots that have no geometry yet or failed to load.
func Placeholder() (*Geometry, Material) {
	box := geometry.UnitCube()
	corners := make([]geometry.Vector3, 0, 8)
	for i := 0; i < 8; i++ {
		corner := box.Min
		if i&1 != 0 {
			corner.X = box.Max.X
		}
		if i&2 != 0 {
			corner.Y = box.Max.Y
		}
		if i&4 != 0 {
			corner.Z = box.Max.Z
		}
		corners = append(corners, corner)
	}

	g := Build(ply.NewPointSet(corners), Mesh)
	Normalize(g, Options{})

	return g, Material{
		Color:       PlaceholderColor,
		FlatShading: true,
		Opacity:     1,
	}
}
