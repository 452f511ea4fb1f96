package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/philipparndt/plyview/internal/config"
	"github.com/philipparndt/plyview/internal/scene"
	"github.com/spf13/cobra"
)

// itemFlags are shared by every command that builds view items from files
type itemFlags struct {
	mesh         bool
	surface      bool
	colors       []string
	vertexColors bool
	pointSize    float64
	noCenter     bool
	label        string
}

func (f *itemFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.mesh, "mesh", "m", false, "Render as mesh (source faces, or the convex hull)")
	cmd.Flags().BoolVarP(&f.surface, "surface", "s", false, "Render as Delaunay surface over X/Y")
	cmd.Flags().StringSliceVarP(&f.colors, "color", "c", nil, "Point color per file (CSS name or #rrggbb)")
	cmd.Flags().BoolVar(&f.vertexColors, "vertex-colors", false, "Use per-vertex colors from the files")
	cmd.Flags().Float64Var(&f.pointSize, "point-size", 0, "Point size in world units")
	cmd.Flags().BoolVar(&f.noCenter, "no-center", false, "Keep the original coordinates")
	cmd.Flags().StringVarP(&f.label, "label", "l", "", "Item label")
}

// item builds one view item layering all urls
func (f *itemFlags) item(cmd *cobra.Command, urls []string) scene.ViewItem {
	it := scene.ViewItem{
		URLs:          urls,
		Label:         f.label,
		PointColors:   f.colors,
		PointSize:     f.pointSize,
		RenderMesh:    f.mesh,
		RenderSurface: f.surface,
	}
	if cmd.Flags().Changed("vertex-colors") {
		v := f.vertexColors
		it.UseVertexColors = &v
	}
	if f.noCenter {
		center := false
		it.Center = &center
	}
	return it
}

// items builds one view item per url, labelled with the file name
func (f *itemFlags) items(cmd *cobra.Command, urls []string) []scene.ViewItem {
	items := make([]scene.ViewItem, len(urls))
	for i, url := range urls {
		it := f.item(cmd, []string{url})
		if it.Label == "" {
			it.Label = strings.TrimSuffix(filepath.Base(url), filepath.Ext(url))
		}
		if i < len(f.colors) {
			it.PointColors = []string{f.colors[i]}
		} else {
			it.PointColors = nil
		}
		items[i] = it
	}
	return items
}

// loadGallery reads a gallery file, or builds one from the given PLY files.
// With overlay set, all files are layered into a single item.
func loadGallery(cmd *cobra.Command, args []string, flags *itemFlags, overlay bool) (*config.Gallery, error) {
	if len(args) == 1 && isGalleryFile(args[0]) {
		return config.Load(args[0])
	}
	for _, arg := range args {
		if isGalleryFile(arg) {
			return nil, fmt.Errorf("gallery file %s cannot be combined with other arguments", arg)
		}
	}

	g := &config.Gallery{}
	if overlay {
		g.Items = []scene.ViewItem{flags.item(cmd, args)}
	} else {
		g.Items = flags.items(cmd, args)
	}
	return g, nil
}

func isGalleryFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
