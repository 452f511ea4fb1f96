package viewer

import (
	"image"
	"image/color"
	"math"
)

// FrameBuffer is an opaque color target with a depth buffer. Smaller depth
// values are closer to the camera.
type FrameBuffer struct {
	Image  *image.RGBA
	ZBuf   []float64
	Width  int
	Height int
}

// NewFrameBuffer allocates a frame buffer cleared to the background color
func NewFrameBuffer(width, height int, background color.Color) *FrameBuffer {
	fb := &FrameBuffer{
		Image:  image.NewRGBA(image.Rect(0, 0, width, height)),
		ZBuf:   make([]float64, width*height),
		Width:  width,
		Height: height,
	}
	fb.Clear(background)
	return fb
}

// Clear fills the image with the background and resets the depth buffer
func (fb *FrameBuffer) Clear(background color.Color) {
	bg := color.RGBAModel.Convert(background).(color.RGBA)
	bg.A = 255
	for i := 0; i < len(fb.Image.Pix); i += 4 {
		fb.Image.Pix[i] = bg.R
		fb.Image.Pix[i+1] = bg.G
		fb.Image.Pix[i+2] = bg.B
		fb.Image.Pix[i+3] = bg.A
	}
	for i := range fb.ZBuf {
		fb.ZBuf[i] = math.Inf(1)
	}
}

// plot writes one pixel after the depth test. Translucent pixels are blended
// over the existing color and leave the depth buffer untouched.
func (fb *FrameBuffer) plot(x, y int, z float64, col color.RGBA, alpha float64) {
	if x < 0 || y < 0 || x >= fb.Width || y >= fb.Height {
		return
	}
	idx := y*fb.Width + x
	if z >= fb.ZBuf[idx] {
		return
	}

	if alpha >= 1 {
		fb.ZBuf[idx] = z
		fb.Image.SetRGBA(x, y, col)
		return
	}

	off := idx * 4
	pix := fb.Image.Pix
	pix[off] = blend(pix[off], col.R, alpha)
	pix[off+1] = blend(pix[off+1], col.G, alpha)
	pix[off+2] = blend(pix[off+2], col.B, alpha)
}

func blend(dst, src uint8, alpha float64) uint8 {
	return uint8(float64(dst)*(1-alpha) + float64(src)*alpha + 0.5)
}

// SplatPoint draws a square point of the given pixel radius with depth testing
func (fb *FrameBuffer) SplatPoint(x, y, z, radius float64, col color.RGBA) {
	if radius < 0.5 {
		radius = 0.5
	}
	x0 := int(math.Floor(x - radius + 0.5))
	x1 := int(math.Floor(x + radius - 0.5))
	y0 := int(math.Floor(y - radius + 0.5))
	y1 := int(math.Floor(y + radius - 0.5))
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}

	for py := y0; py <= y1; py++ {
		for px := x0; px <= x1; px++ {
			fb.plot(px, py, z, col, 1)
		}
	}
}

// FillTriangle fills a triangle with depth testing using a scanline algorithm
func (fb *FrameBuffer) FillTriangle(x1, y1, z1, x2, y2, z2, x3, y3, z3 float64, col color.RGBA, alpha float64) {
	vertices := [3][3]float64{
		{x1, y1, z1},
		{x2, y2, z2},
		{x3, y3, z3},
	}

	// Sort vertices by Y coordinate (top to bottom)
	if vertices[0][1] > vertices[1][1] {
		vertices[0], vertices[1] = vertices[1], vertices[0]
	}
	if vertices[1][1] > vertices[2][1] {
		vertices[1], vertices[2] = vertices[2], vertices[1]
	}
	if vertices[0][1] > vertices[1][1] {
		vertices[0], vertices[1] = vertices[1], vertices[0]
	}

	x1, y1, z1 = vertices[0][0], vertices[0][1], vertices[0][2]
	x2, y2, z2 = vertices[1][0], vertices[1][1], vertices[1][2]
	x3, y3, z3 = vertices[2][0], vertices[2][1], vertices[2][2]

	yStart := int(math.Max(0, math.Ceil(y1)))
	yEnd := int(math.Min(float64(fb.Height-1), math.Floor(y3)))

	for y := yStart; y <= yEnd; y++ {
		fy := float64(y)

		// Long edge 1-3 always spans the scanline
		t := 0.0
		if y3 != y1 {
			t = (fy - y1) / (y3 - y1)
		}
		xa, za := x1+t*(x3-x1), z1+t*(z3-z1)

		// Short edge depends on which half we are in
		var xb, zb float64
		if fy < y2 {
			t = 0
			if y2 != y1 {
				t = (fy - y1) / (y2 - y1)
			}
			xb, zb = x1+t*(x2-x1), z1+t*(z2-z1)
		} else {
			t = 0
			if y3 != y2 {
				t = (fy - y2) / (y3 - y2)
			}
			xb, zb = x2+t*(x3-x2), z2+t*(z3-z2)
		}

		if xa > xb {
			xa, xb = xb, xa
			za, zb = zb, za
		}

		xStart := int(math.Max(0, math.Ceil(xa)))
		xEnd := int(math.Min(float64(fb.Width-1), math.Floor(xb)))
		for x := xStart; x <= xEnd; x++ {
			s := 0.0
			if xb != xa {
				s = (float64(x) - xa) / (xb - xa)
			}
			fb.plot(x, y, za+s*(zb-za), col, alpha)
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm. The line is drawn on
// top of everything already in the buffer.
func (fb *FrameBuffer) DrawLine(x1, y1, x2, y2 int, col color.RGBA) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)

	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}

	err := dx - dy
	for {
		if x1 >= 0 && x1 < fb.Width && y1 >= 0 && y1 < fb.Height {
			fb.Image.SetRGBA(x1, y1, col)
		}

		if x1 == x2 && y1 == y2 {
			break
		}

		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
