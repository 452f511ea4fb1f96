package ply

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/philipparndt/plyview/pkg/geometry"
)

// ParseError reports a malformed PLY stream
type ParseError struct {
	Line int // header line, 0 for body errors
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	msg := "ply: " + e.Msg
	if e.Line > 0 {
		msg = fmt.Sprintf("ply: line %d: %s", e.Line, e.Msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseFile reads a PLY file from disk
func ParseFile(filename string) (*PointSet, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	ps, err := Parse(file)
	if err != nil {
		return nil, err
	}
	ps.Name = filepath.Base(filename)
	return ps, nil
}

// Parse decodes an ASCII or binary PLY stream into a PointSet.
// Polygons with more than three corners are split into a triangle fan.
func Parse(reader io.Reader) (*PointSet, error) {
	br := bufio.NewReader(reader)

	hdr, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	var values valueReader
	switch hdr.format {
	case formatASCII:
		scanner := bufio.NewScanner(br)
		scanner.Split(bufio.ScanWords)
		values = &asciiReader{scanner: scanner}
	case formatBinaryLittleEndian:
		values = &binaryReader{r: br, order: binary.LittleEndian}
	case formatBinaryBigEndian:
		values = &binaryReader{r: br, order: binary.BigEndian}
	}

	ps := &PointSet{Comments: hdr.comments}
	seenVertex := false
	for i := range hdr.elements {
		el := &hdr.elements[i]
		switch el.name {
		case "vertex":
			if err := readVertices(values, el, ps); err != nil {
				return nil, err
			}
			seenVertex = true
		case "face":
			if !seenVertex {
				return nil, &ParseError{Msg: "face element before vertex element"}
			}
			if err := readFaces(values, el, ps); err != nil {
				return nil, err
			}
		default:
			if err := skipElement(values, el); err != nil {
				return nil, err
			}
		}
	}

	if !seenVertex {
		return nil, &ParseError{Msg: "missing vertex element"}
	}
	return ps, nil
}

func readVertices(values valueReader, el *element, ps *PointSet) error {
	ix, iy, iz := el.index("x"), el.index("y"), el.index("z")
	if ix < 0 || iy < 0 || iz < 0 {
		return &ParseError{Msg: "vertex element lacks x/y/z properties"}
	}
	ir := el.index("red", "r", "diffuse_red")
	ig := el.index("green", "g", "diffuse_green")
	ib := el.index("blue", "b", "diffuse_blue")
	hasColor := ir >= 0 && ig >= 0 && ib >= 0

	ps.Positions = make([]geometry.Vector3, 0, preallocated(el.count))
	if hasColor {
		ps.Colors = make([]Color, 0, preallocated(el.count))
	}

	row := make([]float64, len(el.props))
	for v := 0; v < el.count; v++ {
		for p, prop := range el.props {
			if prop.list {
				if err := skipList(values, prop); err != nil {
					return vertexError(v, err)
				}
				continue
			}
			val, err := values.read(prop.typ)
			if err != nil {
				return vertexError(v, err)
			}
			row[p] = val
		}

		ps.Positions = append(ps.Positions, geometry.NewVector3(row[ix], row[iy], row[iz]))
		if hasColor {
			ps.Colors = append(ps.Colors, Color{
				R: unitColor(row[ir], el.props[ir].typ),
				G: unitColor(row[ig], el.props[ig].typ),
				B: unitColor(row[ib], el.props[ib].typ),
			})
		}
	}
	return nil
}

func readFaces(values valueReader, el *element, ps *PointSet) error {
	idx := el.index("vertex_indices", "vertex_index")
	if idx < 0 || !el.props[idx].list {
		return skipElement(values, el)
	}

	n := len(ps.Positions)
	ps.Faces = make([]geometry.Face, 0, preallocated(el.count))
	var corners []int
	for f := 0; f < el.count; f++ {
		for p, prop := range el.props {
			if p != idx {
				if err := skipProperty(values, prop); err != nil {
					return faceError(f, err)
				}
				continue
			}

			count, err := values.read(prop.countType)
			if err != nil {
				return faceError(f, err)
			}
			corners = corners[:0]
			for k := 0; k < int(count); k++ {
				val, err := values.read(prop.typ)
				if err != nil {
					return faceError(f, err)
				}
				vi := int(val)
				if vi < 0 || vi >= n {
					return &ParseError{Msg: fmt.Sprintf("face %d: vertex index %d out of range [0, %d)", f, vi, n)}
				}
				corners = append(corners, vi)
			}
		}

		for k := 1; k+1 < len(corners); k++ {
			ps.Faces = append(ps.Faces, geometry.Face{corners[0], corners[k], corners[k+1]})
		}
	}
	return nil
}

// maxPrealloc bounds the capacity reserved from a header count. Larger
// elements grow as their rows are actually read.
const maxPrealloc = 1 << 16

func preallocated(count int) int {
	return min(count, maxPrealloc)
}

func skipElement(values valueReader, el *element) error {
	for i := 0; i < el.count; i++ {
		for _, prop := range el.props {
			if err := skipProperty(values, prop); err != nil {
				return &ParseError{Msg: fmt.Sprintf("element %s %d", el.name, i), Err: err}
			}
		}
	}
	return nil
}

func skipProperty(values valueReader, prop property) error {
	if prop.list {
		return skipList(values, prop)
	}
	_, err := values.read(prop.typ)
	return err
}

func skipList(values valueReader, prop property) error {
	count, err := values.read(prop.countType)
	if err != nil {
		return err
	}
	for k := 0; k < int(count); k++ {
		if _, err := values.read(prop.typ); err != nil {
			return err
		}
	}
	return nil
}

func unitColor(v float64, t scalarType) float64 {
	return math.Max(0, math.Min(1, v/t.colorScale()))
}

func vertexError(v int, err error) error {
	return &ParseError{Msg: fmt.Sprintf("vertex %d", v), Err: err}
}

func faceError(f int, err error) error {
	return &ParseError{Msg: fmt.Sprintf("face %d", f), Err: err}
}

// errTruncated reports a body that ends before the header said it would
var errTruncated = errors.New("unexpected end of data")

type valueReader interface {
	read(t scalarType) (float64, error)
}

type asciiReader struct {
	scanner *bufio.Scanner
}

func (a *asciiReader) read(t scalarType) (float64, error) {
	if !a.scanner.Scan() {
		if err := a.scanner.Err(); err != nil {
			return 0, err
		}
		return 0, errTruncated
	}
	token := a.scanner.Text()
	if t.isFloat() {
		return strconv.ParseFloat(token, 64)
	}
	v, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0, err
	}
	return float64(v), nil
}

type binaryReader struct {
	r     io.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (b *binaryReader) read(t scalarType) (float64, error) {
	size := t.size()
	if _, err := io.ReadFull(b.r, b.buf[:size]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, errTruncated
		}
		return 0, err
	}

	data := b.buf[:size]
	switch t {
	case typeInt8:
		return float64(int8(data[0])), nil
	case typeUint8:
		return float64(data[0]), nil
	case typeInt16:
		return float64(int16(b.order.Uint16(data))), nil
	case typeUint16:
		return float64(b.order.Uint16(data)), nil
	case typeInt32:
		return float64(int32(b.order.Uint32(data))), nil
	case typeUint32:
		return float64(b.order.Uint32(data)), nil
	case typeFloat32:
		return float64(math.Float32frombits(b.order.Uint32(data))), nil
	case typeFloat64:
		return math.Float64frombits(b.order.Uint64(data)), nil
	}
	return 0, fmt.Errorf("invalid scalar type %d", t)
}
