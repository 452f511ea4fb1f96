package config

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"github.com/philipparndt/plyview/internal/scene"
	"github.com/philipparndt/plyview/pkg/display"
	"github.com/philipparndt/plyview/pkg/viewer"
	"gopkg.in/yaml.v3"
)

// DefaultCellSize is the edge length of one grid cell in pixels
const DefaultCellSize = 300

// Gallery is a grid of viewers with an optional heading and text
type Gallery struct {
	Heading  string           `yaml:"heading,omitempty"`
	Text     string           `yaml:"text,omitempty"`
	CellSize int              `yaml:"cellSize,omitempty"`
	Columns  int              `yaml:"columns,omitempty"`
	Items    []scene.ViewItem `yaml:"items"`
	Render   Render           `yaml:"render,omitempty"`

	// BaseDir resolves relative item URLs. It defaults to the directory of
	// the gallery file.
	BaseDir string `yaml:"baseDir,omitempty"`
}

// Render holds the headless output settings
type Render struct {
	Width       int    `yaml:"width,omitempty"`
	Height      int    `yaml:"height,omitempty"`
	Supersample int    `yaml:"supersample,omitempty"`
	Background  string `yaml:"background,omitempty"`
	Format      string `yaml:"format,omitempty"`
}

// Flags holds command line values that override the gallery file
type Flags struct {
	CellSize    int
	Columns     int
	Supersample int
	Background  string
	Format      string
	BaseDir     string
}

// Load reads a YAML gallery file
func Load(path string) (*Gallery, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open gallery: %w", err)
	}
	defer f.Close()

	g, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gallery %s: %w", path, err)
	}
	if g.BaseDir == "" {
		g.BaseDir = filepath.Dir(path)
	} else if !filepath.IsAbs(g.BaseDir) {
		g.BaseDir = filepath.Join(filepath.Dir(path), g.BaseDir)
	}
	return g, nil
}

// Decode parses a gallery document. Unknown keys are rejected.
func Decode(r io.Reader) (*Gallery, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var g Gallery
	if err := dec.Decode(&g); err != nil && err != io.EOF {
		return nil, err
	}
	return &g, nil
}

// Encode writes the gallery as YAML
func (g *Gallery) Encode(w io.Writer) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(g); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Resolve applies flag overrides and fills in defaults
func (g *Gallery) Resolve(flags Flags) {
	if flags.CellSize > 0 {
		g.CellSize = flags.CellSize
	}
	if flags.Columns > 0 {
		g.Columns = flags.Columns
	}
	if flags.Supersample > 0 {
		g.Render.Supersample = flags.Supersample
	}
	if flags.Background != "" {
		g.Render.Background = flags.Background
	}
	if flags.Format != "" {
		g.Render.Format = flags.Format
	}
	if flags.BaseDir != "" {
		g.BaseDir = flags.BaseDir
	}

	if g.CellSize <= 0 {
		g.CellSize = DefaultCellSize
	}
	if g.Render.Width <= 0 {
		g.Render.Width = g.CellSize
	}
	if g.Render.Height <= 0 {
		g.Render.Height = g.CellSize
	}
	if g.Render.Supersample <= 0 {
		g.Render.Supersample = 2
	}
	if g.Render.Background == "" {
		g.Render.Background = "white"
	}
	if g.Render.Format == "" {
		g.Render.Format = "png"
	}
	if g.Columns <= 0 {
		g.Columns = columnsFor(len(g.Items))
	}
}

// columnsFor picks a roughly square layout
func columnsFor(n int) int {
	cols := 1
	for cols*cols < n {
		cols++
	}
	return cols
}

// Settings converts the render section into viewer settings
func (r Render) Settings() (viewer.Settings, error) {
	bg, err := display.ParseColor(r.Background)
	if err != nil {
		return viewer.Settings{}, fmt.Errorf("invalid background: %w", err)
	}
	return viewer.Settings{
		Width:       r.Width,
		Height:      r.Height,
		Supersample: r.Supersample,
		Background: color.NRGBA{
			R: uint8(bg.R*255 + 0.5),
			G: uint8(bg.G*255 + 0.5),
			B: uint8(bg.B*255 + 0.5),
			A: 255,
		},
	}, nil
}

// OutputFormat parses the configured image format
func (r Render) OutputFormat() (viewer.Format, error) {
	return viewer.ParseFormat(r.Format)
}
