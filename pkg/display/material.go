package display

import (
	"fmt"
	"strings"

	"github.com/philipparndt/plyview/pkg/ply"
	"golang.org/x/image/colornames"
)

// Opacity applied to mesh and surface materials
const Opacity = 0.6

// Material describes how a geometry is shaded
type Material struct {
	Color        ply.Color // flat color, used when VertexColors is false
	VertexColors bool
	PointSize    float64
	// SizeAttenuation scales point splats with distance to the camera
	SizeAttenuation bool
	FlatShading     bool
	Opacity         float64
	DoubleSided     bool
}

// ResolveMaterial picks the material for a geometry. Vertex colors are only
// used when requested and actually present in the source.
func ResolveMaterial(g *Geometry, flat ply.Color, useVertexColors bool, pointSize float64) Material {
	hasColors := g.HasColors()
	m := Material{
		Color:        flat,
		VertexColors: useVertexColors && hasColors,
		PointSize:    pointSize,
		Opacity:      1,
	}

	if g.Mode.Faceted() {
		m.FlatShading = !hasColors
		m.Opacity = Opacity
		m.DoubleSided = true
	} else {
		m.SizeAttenuation = true
	}
	return m
}

// ColorAt returns the shading color of vertex i under the material
func (m Material) ColorAt(g *Geometry, i int) ply.Color {
	if m.VertexColors && i < len(g.Colors) {
		return g.Colors[i]
	}
	return m.Color
}

// ParseColor parses a CSS color name ("steelblue") or a #rgb, #rrggbb hex value
func ParseColor(s string) (ply.Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ply.Color{}, fmt.Errorf("empty color")
	}

	if s[0] == '#' {
		return parseHex(s[1:])
	}

	c, ok := colornames.Map[strings.ToLower(s)]
	if !ok {
		return ply.Color{}, fmt.Errorf("unknown color name %q", s)
	}
	return rgb8(int(c.R), int(c.G), int(c.B)), nil
}

func parseHex(x string) (ply.Color, error) {
	var r, g, b int
	switch len(x) {
	case 3:
		if _, err := fmt.Sscanf(x, "%1x%1x%1x", &r, &g, &b); err != nil {
			return ply.Color{}, fmt.Errorf("invalid hex color %q: %w", x, err)
		}
		r |= r << 4
		g |= g << 4
		b |= b << 4
	case 6:
		if _, err := fmt.Sscanf(x, "%02x%02x%02x", &r, &g, &b); err != nil {
			return ply.Color{}, fmt.Errorf("invalid hex color %q: %w", x, err)
		}
	default:
		return ply.Color{}, fmt.Errorf("invalid hex color %q", x)
	}
	return rgb8(r, g, b), nil
}

func rgb8(r, g, b int) ply.Color {
	return ply.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
}
