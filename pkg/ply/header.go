package ply

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

type format int

const (
	formatASCII format = iota
	formatBinaryLittleEndian
	formatBinaryBigEndian
)

func (f format) String() string {
	switch f {
	case formatASCII:
		return "ascii"
	case formatBinaryLittleEndian:
		return "binary_little_endian"
	case formatBinaryBigEndian:
		return "binary_big_endian"
	}
	return "unknown"
}

// scalarType is a PLY scalar property type
type scalarType int

const (
	typeInvalid scalarType = iota
	typeInt8
	typeUint8
	typeInt16
	typeUint16
	typeInt32
	typeUint32
	typeFloat32
	typeFloat64
)

var scalarTypes = map[string]scalarType{
	"char": typeInt8, "int8": typeInt8,
	"uchar": typeUint8, "uint8": typeUint8,
	"short": typeInt16, "int16": typeInt16,
	"ushort": typeUint16, "uint16": typeUint16,
	"int": typeInt32, "int32": typeInt32,
	"uint": typeUint32, "uint32": typeUint32,
	"float": typeFloat32, "float32": typeFloat32,
	"double": typeFloat64, "float64": typeFloat64,
}

// size returns the encoded width in bytes
func (t scalarType) size() int {
	switch t {
	case typeInt8, typeUint8:
		return 1
	case typeInt16, typeUint16:
		return 2
	case typeInt32, typeUint32, typeFloat32:
		return 4
	case typeFloat64:
		return 8
	}
	return 0
}

func (t scalarType) isFloat() bool {
	return t == typeFloat32 || t == typeFloat64
}

// colorScale is the value that maps to full intensity for integer colors
func (t scalarType) colorScale() float64 {
	switch t {
	case typeUint16, typeInt16:
		return 65535
	case typeFloat32, typeFloat64:
		return 1
	}
	return 255
}

type property struct {
	name      string
	typ       scalarType
	list      bool
	countType scalarType
}

type element struct {
	name  string
	count int
	props []property
}

// index returns the position of the first property with one of the names, or -1
func (e *element) index(names ...string) int {
	for i, p := range e.props {
		for _, n := range names {
			if p.name == n {
				return i
			}
		}
	}
	return -1
}

type header struct {
	format   format
	elements []element
	comments []string
}

// readHeader consumes the header up to and including the end_header line,
// leaving the reader positioned at the first body byte.
func readHeader(r *bufio.Reader) (*header, error) {
	magic, err := r.ReadString('\n')
	if err != nil || strings.TrimSpace(magic) != "ply" {
		return nil, &ParseError{Line: 1, Msg: "missing ply magic"}
	}

	h := &header{format: -1}
	for line := 2; ; line++ {
		raw, err := r.ReadString('\n')
		if err != nil {
			return nil, &ParseError{Line: line, Msg: "unexpected end of header", Err: err}
		}
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "format":
			if len(fields) < 3 {
				return nil, &ParseError{Line: line, Msg: "malformed format line"}
			}
			switch fields[1] {
			case "ascii":
				h.format = formatASCII
			case "binary_little_endian":
				h.format = formatBinaryLittleEndian
			case "binary_big_endian":
				h.format = formatBinaryBigEndian
			default:
				return nil, &ParseError{Line: line, Msg: fmt.Sprintf("unsupported format %q", fields[1])}
			}
			if fields[2] != "1.0" {
				return nil, &ParseError{Line: line, Msg: fmt.Sprintf("unsupported version %q", fields[2])}
			}

		case "comment":
			h.comments = append(h.comments, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "comment")))

		case "obj_info":
			// ignored

		case "element":
			if len(fields) != 3 {
				return nil, &ParseError{Line: line, Msg: "malformed element line"}
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return nil, &ParseError{Line: line, Msg: fmt.Sprintf("invalid element count %q", fields[2])}
			}
			h.elements = append(h.elements, element{name: fields[1], count: count})

		case "property":
			if len(h.elements) == 0 {
				return nil, &ParseError{Line: line, Msg: "property before any element"}
			}
			prop, err := parseProperty(fields)
			if err != nil {
				return nil, &ParseError{Line: line, Msg: err.Error()}
			}
			el := &h.elements[len(h.elements)-1]
			el.props = append(el.props, prop)

		case "end_header":
			if h.format < 0 {
				return nil, &ParseError{Line: line, Msg: "missing format line"}
			}
			return h, nil

		default:
			return nil, &ParseError{Line: line, Msg: fmt.Sprintf("unknown header keyword %q", fields[0])}
		}
	}
}

func parseProperty(fields []string) (property, error) {
	if len(fields) >= 2 && fields[1] == "list" {
		if len(fields) != 5 {
			return property{}, fmt.Errorf("malformed list property")
		}
		countType, ok := scalarTypes[fields[2]]
		if !ok || countType.isFloat() {
			return property{}, fmt.Errorf("invalid list count type %q", fields[2])
		}
		typ, ok := scalarTypes[fields[3]]
		if !ok {
			return property{}, fmt.Errorf("invalid list item type %q", fields[3])
		}
		return property{name: fields[4], typ: typ, list: true, countType: countType}, nil
	}

	if len(fields) != 3 {
		return property{}, fmt.Errorf("malformed property")
	}
	typ, ok := scalarTypes[fields[1]]
	if !ok {
		return property{}, fmt.Errorf("invalid property type %q", fields[1])
	}
	return property{name: fields[2], typ: typ}, nil
}
