package viewer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/HugoSmits86/nativewebp"
	"github.com/philipparndt/plyview/pkg/display"
	"github.com/philipparndt/plyview/pkg/geometry"
	"github.com/philipparndt/plyview/pkg/ply"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

func pointItem(p geometry.Vector3, c ply.Color) DrawItem {
	g := display.Build(ply.NewPointSet([]geometry.Vector3{p}), display.Points)
	return DrawItem{
		Geometry: g,
		Material: display.ResolveMaterial(g, c, false, 0.1),
	}
}

func placeholderItem() DrawItem {
	g, m := display.Placeholder()
	return DrawItem{Geometry: g, Material: m}
}

func TestRenderEmpty(t *testing.T) {
	cam := NewCamera(geometry.UnitCube())
	img := Render(cam, nil, Settings{Width: 20, Height: 10, Supersample: 1, Background: color.White})

	assert.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())
	assert.Equal(t, white, img.NRGBAAt(3, 3))
}

func TestRenderPoint(t *testing.T) {
	cam := NewCamera(geometry.UnitCube())
	cam.AutoRotate = false

	item := pointItem(geometry.Vector3{}, ply.Color{R: 1})
	img := Render(cam, []DrawItem{item}, Settings{Width: 50, Height: 50, Supersample: 1, Background: color.White})

	assert.Equal(t, color.NRGBA{R: 255, A: 255}, img.NRGBAAt(25, 25))
	assert.Equal(t, white, img.NRGBAAt(5, 5))
}

func TestRenderPlaceholder(t *testing.T) {
	cam := NewCamera(geometry.UnitCube())
	img := Render(cam, []DrawItem{placeholderItem()}, Settings{Width: 300, Height: 300, Supersample: 1, Background: color.White})

	center := img.NRGBAAt(150, 150)
	assert.NotEqual(t, white, center)
	assert.Equal(t, center.R, center.G)
	assert.Equal(t, center.G, center.B)
	assert.Equal(t, white, img.NRGBAAt(2, 2))
}

func TestRenderDepthOrder(t *testing.T) {
	cam := NewCamera(geometry.UnitCube())

	near := pointItem(geometry.NewVector3(0, 0, 0.4), ply.Color{G: 1})
	far := pointItem(geometry.NewVector3(0, 0, -0.4), ply.Color{B: 1})

	for _, items := range [][]DrawItem{{near, far}, {far, near}} {
		img := Render(cam, items, Settings{Width: 50, Height: 50, Supersample: 1})
		assert.Equal(t, color.NRGBA{G: 255, A: 255}, img.NRGBAAt(25, 25))
	}
}

func TestRenderTranslucentSurface(t *testing.T) {
	ps := ply.NewPointSet([]geometry.Vector3{
		{X: -0.5, Y: -0.5}, {X: 0.5, Y: -0.5}, {X: 0.5, Y: 0.5}, {X: -0.5, Y: 0.5},
	})
	g := display.Build(ps, display.Surface)
	display.Normalize(g, display.DefaultOptions())
	item := DrawItem{Geometry: g, Material: display.ResolveMaterial(g, ply.Color{R: 1}, false, 0.002)}

	cam := NewCamera(geometry.UnitCube())
	img := Render(cam, []DrawItem{item}, Settings{Width: 60, Height: 60, Supersample: 1, Background: color.White})

	center := img.NRGBAAt(30, 30)
	assert.Greater(t, center.R, center.G)
	assert.Less(t, center.G, uint8(255))
	assert.Greater(t, center.G, uint8(0))
}

func TestRenderSupersampleAndCaption(t *testing.T) {
	cam := NewCamera(geometry.UnitCube())
	items := []DrawItem{placeholderItem()}

	plain := Render(cam, items, Settings{Width: 120, Height: 80, Supersample: 3, Background: color.White})
	assert.Equal(t, image.Rect(0, 0, 120, 80), plain.Bounds())

	captioned := Render(cam, items, Settings{Width: 120, Height: 80, Supersample: 3, Background: color.White, Caption: "bunny"})
	assert.NotEqual(t, plain.Pix, captioned.Pix)
}

func TestFrameBufferDepthTest(t *testing.T) {
	fb := NewFrameBuffer(10, 10, color.Black)
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	fb.FillTriangle(0, 0, 5, 9, 0, 5, 0, 9, 5, red, 1)
	fb.FillTriangle(0, 0, 9, 9, 0, 9, 0, 9, 9, blue, 1)
	assert.Equal(t, red, fb.Image.RGBAAt(1, 1))

	fb.FillTriangle(0, 0, 1, 9, 0, 1, 0, 9, 1, blue, 0.5)
	got := fb.Image.RGBAAt(1, 1)
	assert.InDelta(t, 128, int(got.R), 1)
	assert.InDelta(t, 128, int(got.B), 1)
	assert.Equal(t, 5.0, fb.ZBuf[1*10+1])
}

func TestFrameBufferDrawLine(t *testing.T) {
	fb := NewFrameBuffer(5, 5, color.Black)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	fb.DrawLine(-2, 2, 8, 2, white)
	for x := 0; x < 5; x++ {
		assert.Equal(t, white, fb.Image.RGBAAt(x, 2))
	}
	assert.Equal(t, color.RGBA{A: 255}, fb.Image.RGBAAt(2, 1))
}

func TestCompose(t *testing.T) {
	red := image.NewUniform(color.NRGBA{R: 255, A: 255})
	cell := func(c image.Image) image.Image {
		img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
		for y := 0; y < 10; y++ {
			for x := 0; x < 10; x++ {
				img.Set(x, y, c.At(0, 0))
			}
		}
		return img
	}

	out := Compose([]image.Image{nil, nil, cell(red)}, 2, 10, color.White)

	assert.Equal(t, image.Rect(0, 0, 20, 20), out.Bounds())
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, out.NRGBAAt(5, 15))
	assert.Equal(t, white, out.NRGBAAt(15, 15))
}

func TestEncode(t *testing.T) {
	img := Render(NewCamera(geometry.UnitCube()), []DrawItem{placeholderItem()}, Settings{Width: 32, Height: 24, Supersample: 1})

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, FormatPNG))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	buf.Reset()
	require.NoError(t, Encode(&buf, img, FormatWebP))
	decoded, err = nativewebp.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	assert.Error(t, Encode(&buf, img, Format("gif")))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("WEBP")
	require.NoError(t, err)
	assert.Equal(t, FormatWebP, f)
	assert.Equal(t, "image/webp", f.ContentType())

	f, err = ParseFormat(".png")
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, f)

	_, err = ParseFormat("jpeg")
	assert.Error(t, err)
}
