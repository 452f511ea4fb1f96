package app

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/philipparndt/plyview/pkg/analysis"
	"github.com/philipparndt/plyview/pkg/display"
	"github.com/philipparndt/plyview/pkg/geometry"
	"github.com/philipparndt/plyview/pkg/viewer"
)

// Light direction for baked lighting
var lightDir = geometry.NewVector3(-0.5, -1.0, -0.5).Normalize()

func newMeshCache() MeshCache {
	return MeshCache{
		entries:  make(map[meshKey]*meshEntry),
		material: rl.LoadMaterialDefault(),
	}
}

// sync uploads meshes for new faceted items and unloads the ones no longer
// drawn. Must run on the main thread.
func (c *MeshCache) sync(items []viewer.DrawItem) {
	for _, e := range c.entries {
		e.used = false
	}

	for _, item := range items {
		key := meshKey{geometry: item.Geometry, material: item.Material}
		if e, ok := c.entries[key]; ok {
			e.used = true
			continue
		}
		e := &meshEntry{stats: analysis.AnalyzeGeometry(item.Geometry), used: true}
		if item.Geometry.HasFaces() {
			e.mesh = geometryToRaylibMesh(item.Geometry, item.Material)
		}
		c.entries[key] = e
	}

	for key, e := range c.entries {
		if !e.used {
			e.unload()
			delete(c.entries, key)
		}
	}
}

func (c *MeshCache) get(item viewer.DrawItem) *meshEntry {
	return c.entries[meshKey{geometry: item.Geometry, material: item.Material}]
}

func (c *MeshCache) unloadAll() {
	for key, e := range c.entries {
		e.unload()
		delete(c.entries, key)
	}
}

func (e *meshEntry) unload() {
	if e.mesh.VertexCount > 0 {
		rl.UnloadMesh(&e.mesh)
	}
}

// meshArrays flattens faces into per-corner arrays with baked lighting.
// Double-sided materials get every triangle a second time with reversed
// winding.
func meshArrays(g *display.Geometry, m display.Material) (vertices, normals []float32, colors []uint8) {
	sides := 1
	if m.DoubleSided {
		sides = 2
	}
	corners := len(g.Faces) * 3 * sides
	vertices = make([]float32, 0, corners*3)
	normals = make([]float32, 0, corners*3)
	colors = make([]uint8, 0, corners*4)
	alpha := uint8(math.Round(m.Opacity * 255))

	emit := func(idx int, normal geometry.Vector3) {
		p := g.Positions[idx]
		vertices = append(vertices, float32(p.X), float32(p.Y), float32(p.Z))
		normals = append(normals, float32(normal.X), float32(normal.Y), float32(normal.Z))

		// Min 30% ambient, max 100% diffuse
		intensity := math.Max(0.3, math.Abs(normal.Dot(lightDir)))
		c := m.ColorAt(g, idx)
		colors = append(colors, shade(c.R, intensity), shade(c.G, intensity), shade(c.B, intensity), alpha)
	}

	for _, f := range g.Faces {
		a, b, c := g.Positions[f[0]], g.Positions[f[1]], g.Positions[f[2]]
		faceNormal := geometry.FaceNormal(a, b, c)
		normalAt := func(idx int) geometry.Vector3 {
			if m.FlatShading || g.Normals == nil {
				return faceNormal
			}
			return g.Normals[idx]
		}

		emit(f[0], normalAt(f[0]))
		emit(f[1], normalAt(f[1]))
		emit(f[2], normalAt(f[2]))
		if sides == 2 {
			emit(f[0], normalAt(f[0]).Mul(-1))
			emit(f[2], normalAt(f[2]).Mul(-1))
			emit(f[1], normalAt(f[1]).Mul(-1))
		}
	}
	return vertices, normals, colors
}

func shade(v, intensity float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v*intensity)) * 255))
}

// geometryToRaylibMesh uploads the faces of g with baked lighting
func geometryToRaylibMesh(g *display.Geometry, m display.Material) rl.Mesh {
	vertices, normals, colors := meshArrays(g, m)
	vertexCount := len(vertices) / 3

	mesh := rl.Mesh{
		VertexCount:   int32(vertexCount),
		TriangleCount: int32(vertexCount / 3),
	}
	if vertexCount == 0 {
		return mesh
	}

	texcoords := make([]float32, vertexCount*2)
	mesh.Vertices = &vertices[0]
	mesh.Normals = &normals[0]
	mesh.Texcoords = &texcoords[0]
	mesh.Colors = &colors[0]

	rl.UploadMesh(&mesh, false)
	return mesh
}

// drawItems draws opaque items first, then translucent faces without
// writing depth
func (app *App) drawItems(items []viewer.DrawItem) {
	var translucent []viewer.DrawItem
	for _, item := range items {
		if item.Material.Opacity < 1 {
			translucent = append(translucent, item)
			continue
		}
		app.drawItem(item)
	}

	if len(translucent) == 0 {
		return
	}
	rl.BeginBlendMode(rl.BlendAlpha)
	rl.DisableDepthMask()
	for _, item := range translucent {
		app.drawItem(item)
	}
	rl.EnableDepthMask()
	rl.EndBlendMode()
}

func (app *App) drawItem(item viewer.DrawItem) {
	g := item.Geometry
	entry := app.Meshes.get(item)

	if g.HasFaces() {
		if app.View.showFilled && entry != nil && entry.mesh.VertexCount > 0 {
			rl.DrawMesh(entry.mesh, app.Meshes.material, rl.MatrixIdentity())
		}
		if app.View.showWireframe && entry != nil {
			app.drawWireframe(entry.stats)
		}
	} else if app.View.showPoints {
		drawPoints(g, item.Material)
	}

	if app.View.showBounds {
		drawBounds(g.Bounds())
	}
}

// drawPoints draws one pixel per vertex; raylib has no sized points
func drawPoints(g *display.Geometry, m display.Material) {
	for i, p := range g.Positions {
		c := m.ColorAt(g, i)
		rl.DrawPoint3D(toRaylib(p), rl.NewColor(shade(c.R, 1), shade(c.G, 1), shade(c.B, 1), 255))
	}
}

func drawBounds(b geometry.BoundingBox) {
	if b.IsEmpty() {
		return
	}
	size := b.Size()
	rl.DrawCubeWires(toRaylib(b.Center()), float32(size.X), float32(size.Y), float32(size.Z), rl.NewColor(100, 100, 100, 255))
}
