package viewer

import (
	"image"
	"image/color"
	"math"
	"sort"
	"sync"

	"github.com/golang/freetype/truetype"
	"github.com/philipparndt/plyview/pkg/display"
	"github.com/philipparndt/plyview/pkg/geometry"
	"github.com/philipparndt/plyview/pkg/ply"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// DrawItem is one geometry with the material it is shaded with
type DrawItem struct {
	Geometry *display.Geometry
	Material display.Material
}

// Settings controls headless rendering
type Settings struct {
	Width       int
	Height      int
	Supersample int // render at this multiple of the output size, then downsample
	Background  color.Color
	Caption     string
}

// DefaultSettings returns a 300x300 white frame with 2x supersampling
func DefaultSettings() Settings {
	return Settings{
		Width:       300,
		Height:      300,
		Supersample: 2,
		Background:  color.White,
	}
}

const (
	ambient = 0.35
	diffuse = 0.65
)

// Render draws the items as seen from the camera into a new image
func Render(cam *Camera, items []DrawItem, s Settings) *image.NRGBA {
	ss := s.Supersample
	if ss < 1 {
		ss = 1
	}
	if s.Background == nil {
		s.Background = color.White
	}

	w, h := s.Width*ss, s.Height*ss
	fb := NewFrameBuffer(w, h, s.Background)

	// opaque first so translucent faces blend over them
	sorted := append([]DrawItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Material.Opacity > sorted[j].Material.Opacity
	})
	for _, item := range sorted {
		drawItem(fb, cam, item, float64(ss))
	}

	out := image.NewNRGBA(image.Rect(0, 0, s.Width, s.Height))
	if ss == 1 {
		draw.Draw(out, out.Bounds(), fb.Image, image.Point{}, draw.Src)
	} else {
		draw.CatmullRom.Scale(out, out.Bounds(), fb.Image, fb.Image.Bounds(), draw.Src, nil)
	}

	if s.Caption != "" {
		drawCaption(out, s.Caption)
	}
	return out
}

func drawItem(fb *FrameBuffer, cam *Camera, item DrawItem, scale float64) {
	g := item.Geometry
	if g == nil || g.Len() == 0 {
		return
	}
	if g.Mode.Faceted() && g.HasFaces() {
		drawFaces(fb, cam, item)
		return
	}
	drawPoints(fb, cam, item, scale)
}

// drawPoints splats every vertex. Faceted geometry without faces falls back here.
func drawPoints(fb *FrameBuffer, cam *Camera, item DrawItem, scale float64) {
	g, m := item.Geometry, item.Material
	width, height := float64(fb.Width), float64(fb.Height)
	focal := cam.Focal(height)

	for i, p := range g.Positions {
		x, y, z, ok := cam.Project(p, width, height)
		if !ok {
			continue
		}

		radius := m.PointSize * scale
		if m.SizeAttenuation {
			radius = m.PointSize * focal / z
		}
		radius = math.Max(radius, 0.5*scale)

		fb.SplatPoint(x, y, z, radius, toRGBA(m.ColorAt(g, i), 1))
	}
}

type projected struct {
	x, y, z float64
	ok      bool
}

type faceDepth struct {
	face  geometry.Face
	depth float64
}

func drawFaces(fb *FrameBuffer, cam *Camera, item DrawItem) {
	g, m := item.Geometry, item.Material
	width, height := float64(fb.Width), float64(fb.Height)

	screen := make([]projected, g.Len())
	for i, p := range g.Positions {
		x, y, z, ok := cam.Project(p, width, height)
		screen[i] = projected{x, y, z, ok}
	}

	faces := make([]faceDepth, 0, len(g.Faces))
	for _, f := range g.Faces {
		a, b, c := screen[f[0]], screen[f[1]], screen[f[2]]
		if !a.ok || !b.ok || !c.ok {
			continue
		}
		faces = append(faces, faceDepth{face: f, depth: (a.z + b.z + c.z) / 3})
	}

	// back to front for blending
	if m.Opacity < 1 {
		sort.SliceStable(faces, func(i, j int) bool {
			return faces[i].depth > faces[j].depth
		})
	}

	forward, right, up := cam.Basis()
	light := forward.Mul(-1).Add(up.Mul(0.5)).Add(right.Mul(0.3)).Normalize()

	for _, fd := range faces {
		f := fd.face
		normal := faceShadingNormal(g, m, f)
		if !m.DoubleSided && normal.Dot(forward) > 0 {
			continue
		}

		ndl := normal.Dot(light)
		if m.DoubleSided {
			ndl = math.Abs(ndl)
		}
		shade := ambient + diffuse*math.Max(0, ndl)

		base := averageColor(m.ColorAt(g, f[0]), m.ColorAt(g, f[1]), m.ColorAt(g, f[2]))
		col := toRGBA(ply.Color{R: base.R * shade, G: base.G * shade, B: base.B * shade}, 1)

		a, b, c := screen[f[0]], screen[f[1]], screen[f[2]]
		fb.FillTriangle(a.x, a.y, a.z, b.x, b.y, b.z, c.x, c.y, c.z, col, m.Opacity)
	}
}

func faceShadingNormal(g *display.Geometry, m display.Material, f geometry.Face) geometry.Vector3 {
	if !m.FlatShading && len(g.Normals) == g.Len() {
		n := g.Normals[f[0]].Add(g.Normals[f[1]]).Add(g.Normals[f[2]]).Normalize()
		if n != (geometry.Vector3{}) {
			return n
		}
	}
	return geometry.FaceNormal(g.Positions[f[0]], g.Positions[f[1]], g.Positions[f[2]])
}

func averageColor(a, b, c ply.Color) ply.Color {
	return ply.Color{
		R: (a.R + b.R + c.R) / 3,
		G: (a.G + b.G + c.G) / 3,
		B: (a.B + b.B + c.B) / 3,
	}
}

func toRGBA(c ply.Color, alpha float64) color.RGBA {
	return color.RGBA{
		R: unit8(c.R),
		G: unit8(c.G),
		B: unit8(c.B),
		A: unit8(alpha),
	}
}

func unit8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// truetype faces cache glyphs and must not be shared between goroutines
var (
	captionOnce sync.Once
	captionMu   sync.Mutex
	captionFace font.Face
)

// loadCaptionFace parses Go Regular at 12pt, falling back to the bitmap font
func loadCaptionFace() font.Face {
	captionOnce.Do(func() {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			captionFace = basicfont.Face7x13
			return
		}
		captionFace = truetype.NewFace(f, &truetype.Options{Size: 12, DPI: 72, Hinting: font.HintingFull})
	})
	return captionFace
}

// drawCaption writes the label into the bottom left corner
func drawCaption(img draw.Image, caption string) {
	face := loadCaptionFace()
	captionMu.Lock()
	defer captionMu.Unlock()

	bounds := img.Bounds()
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 40, G: 40, B: 40, A: 255}),
		Face: face,
		Dot:  fixed.P(bounds.Min.X+6, bounds.Max.Y-6),
	}
	d.DrawString(caption)
}

// Compose lays out equally sized cells in a grid with the given column count
func Compose(cells []image.Image, columns, cellSize int, background color.Color) *image.NRGBA {
	if columns < 1 {
		columns = 1
	}
	rows := (len(cells) + columns - 1) / columns
	if rows == 0 {
		rows = 1
	}

	out := image.NewNRGBA(image.Rect(0, 0, columns*cellSize, rows*cellSize))
	draw.Draw(out, out.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	for i, cell := range cells {
		if cell == nil {
			continue
		}
		x := (i % columns) * cellSize
		y := (i / columns) * cellSize
		r := image.Rect(x, y, x+cellSize, y+cellSize)
		draw.Draw(out, r, cell, cell.Bounds().Min, draw.Over)
	}
	return out
}
