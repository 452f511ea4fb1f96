package scene

import (
	"github.com/philipparndt/plyview/pkg/display"
	"github.com/philipparndt/plyview/pkg/ply"
)

// ViewItem describes one viewer: the sources it layers into a single scene
// and how they are displayed
type ViewItem struct {
	URLs            []string `yaml:"urls" json:"urls"`
	Label           string   `yaml:"label" json:"label"`
	PointColors     []string `yaml:"pointColors,omitempty" json:"pointColors,omitempty"`
	UseVertexColors *bool    `yaml:"useVertexColors,omitempty" json:"useVertexColors,omitempty"`
	PointSize       float64  `yaml:"pointSize,omitempty" json:"pointSize,omitempty"`
	RenderMesh      bool     `yaml:"renderMesh,omitempty" json:"renderMesh,omitempty"`
	RenderSurface   bool     `yaml:"renderSurface,omitempty" json:"renderSurface,omitempty"`
	Center          *bool    `yaml:"center,omitempty" json:"center,omitempty"`
}

// Mode returns the display mode selected by the item flags
func (it ViewItem) Mode() display.Mode {
	return display.ResolveMode(it.RenderMesh, it.RenderSurface)
}

// Centered reports whether the item geometry is moved to the origin
func (it ViewItem) Centered() bool {
	return it.Center == nil || *it.Center
}

// VertexColors reports whether per-vertex colors are requested
func (it ViewItem) VertexColors() bool {
	return it.UseVertexColors != nil && *it.UseVertexColors
}

// Defaults holds the values applied to unset item fields. The grid and the
// single viewer disagree on vertex colors and point size, so both are kept.
type Defaults struct {
	UseVertexColors bool
	PointSize       float64
	// FillColors assigns steelblue to the first URL and gray to the rest
	// when an item has no colors
	FillColors bool
}

// GridDefaults are used for items shown in a grid
var GridDefaults = Defaults{
	UseVertexColors: false,
	PointSize:       0.002,
	FillColors:      true,
}

// ViewerDefaults are used for a single standalone viewer, which requires
// explicit colors
var ViewerDefaults = Defaults{
	UseVertexColors: true,
	PointSize:       0.0015,
	FillColors:      false,
}

// Apply returns a copy of the item with unset fields filled in
func (d Defaults) Apply(it ViewItem) ViewItem {
	if it.UseVertexColors == nil {
		v := d.UseVertexColors
		it.UseVertexColors = &v
	}
	if it.PointSize <= 0 {
		it.PointSize = d.PointSize
	}
	if it.PointColors == nil && d.FillColors {
		it.PointColors = make([]string, len(it.URLs))
		for i := range it.URLs {
			if i == 0 {
				it.PointColors[i] = "steelblue"
			} else {
				it.PointColors[i] = "gray"
			}
		}
	}
	return it
}

// Validate checks the item and parses its colors, one per URL
func (it ViewItem) Validate() ([]ply.Color, error) {
	if len(it.URLs) == 0 {
		return nil, &ConfigurationError{Label: it.Label, Reason: "no urls"}
	}
	if len(it.PointColors) != len(it.URLs) {
		return nil, &ConfigurationError{
			Label:  it.Label,
			Reason: "point color count does not match url count",
			Colors: len(it.PointColors),
			URLs:   len(it.URLs),
		}
	}

	colors := make([]ply.Color, len(it.PointColors))
	for i, name := range it.PointColors {
		c, err := display.ParseColor(name)
		if err != nil {
			return nil, &ConfigurationError{Label: it.Label, Reason: "invalid point color", Err: err}
		}
		colors[i] = c
	}
	return colors, nil
}
