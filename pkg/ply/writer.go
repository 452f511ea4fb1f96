package ply

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// WriteASCII encodes the point set as an ASCII PLY stream
func WriteASCII(w io.Writer, ps *PointSet) error {
	return write(w, ps, formatASCII)
}

// WriteBinary encodes the point set as a little endian binary PLY stream
func WriteBinary(w io.Writer, ps *PointSet) error {
	return write(w, ps, formatBinaryLittleEndian)
}

func write(w io.Writer, ps *PointSet, f format) error {
	if err := ps.Validate(); err != nil {
		return fmt.Errorf("failed to write ply: %w", err)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "ply")
	fmt.Fprintf(bw, "format %s 1.0\n", f)
	for _, c := range ps.Comments {
		fmt.Fprintf(bw, "comment %s\n", c)
	}
	fmt.Fprintf(bw, "element vertex %d\n", len(ps.Positions))
	fmt.Fprintln(bw, "property float x")
	fmt.Fprintln(bw, "property float y")
	fmt.Fprintln(bw, "property float z")
	if ps.HasColors() {
		fmt.Fprintln(bw, "property uchar red")
		fmt.Fprintln(bw, "property uchar green")
		fmt.Fprintln(bw, "property uchar blue")
	}
	if ps.Faces != nil {
		fmt.Fprintf(bw, "element face %d\n", len(ps.Faces))
		fmt.Fprintln(bw, "property list uchar int vertex_indices")
	}
	fmt.Fprintln(bw, "end_header")

	if f == formatASCII {
		writeASCIIBody(bw, ps)
	} else if err := writeBinaryBody(bw, ps); err != nil {
		return fmt.Errorf("failed to write ply body: %w", err)
	}
	return bw.Flush()
}

func writeASCIIBody(w *bufio.Writer, ps *PointSet) {
	colors := ps.HasColors()
	for i, p := range ps.Positions {
		fmt.Fprintf(w, "%g %g %g", float32(p.X), float32(p.Y), float32(p.Z))
		if colors {
			c := ps.Colors[i]
			fmt.Fprintf(w, " %d %d %d", colorByte(c.R), colorByte(c.G), colorByte(c.B))
		}
		fmt.Fprintln(w)
	}
	for _, f := range ps.Faces {
		fmt.Fprintf(w, "3 %d %d %d\n", f[0], f[1], f[2])
	}
}

func writeBinaryBody(w io.Writer, ps *PointSet) error {
	colors := ps.HasColors()
	for i, p := range ps.Positions {
		if err := binary.Write(w, binary.LittleEndian, [3]float32{float32(p.X), float32(p.Y), float32(p.Z)}); err != nil {
			return err
		}
		if colors {
			c := ps.Colors[i]
			if _, err := w.Write([]byte{colorByte(c.R), colorByte(c.G), colorByte(c.B)}); err != nil {
				return err
			}
		}
	}
	for _, f := range ps.Faces {
		if _, err := w.Write([]byte{3}); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, [3]int32{int32(f[0]), int32(f[1]), int32(f[2])}); err != nil {
			return err
		}
	}
	return nil
}

func colorByte(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
