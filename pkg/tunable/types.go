package tunable

import (
	"fmt"
	"strings"
)

// ElemType is the element type of a parameter's storage.
type ElemType int

const (
	// Invalid is the zero ElemType and never describes a parameter.
	Invalid ElemType = iota
	Float64
	Float32
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
)

var elemTypeNames = map[ElemType]string{
	Float64: "double",
	Float32: "single",
	Int8:    "int8",
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
}

// String returns the canonical name of the element type.
func (t ElemType) String() string {
	if name, ok := elemTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ElemType(%d)", int(t))
}

// Valid reports whether t is a known element type.
func (t ElemType) Valid() bool {
	_, ok := elemTypeNames[t]
	return ok
}

// Size returns the storage size of one element in bytes.
func (t ElemType) Size() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

// ParseElemType parses an element type name. Besides the canonical names
// "float64", "float32", "double" and "single" are accepted.
func ParseElemType(s string) (ElemType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "double", "float64", "real":
		return Float64, nil
	case "single", "float32", "float":
		return Float32, nil
	case "int8":
		return Int8, nil
	case "uint8":
		return Uint8, nil
	case "int16":
		return Int16, nil
	case "uint16":
		return Uint16, nil
	case "int32":
		return Int32, nil
	case "uint32":
		return Uint32, nil
	}
	return Invalid, Errorf(ClassInvalidArgument, "unknown element type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t ElemType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, Errorf(ClassInvalidArgument, "invalid element type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ElemType) UnmarshalText(b []byte) error {
	parsed, err := ParseElemType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Dims holds the row and column counts of a parameter. A scalar is 1x1.
type Dims struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// Len returns the number of elements.
func (d Dims) Len() int {
	return d.Rows * d.Cols
}

// IsScalar reports whether d describes a single element.
func (d Dims) IsScalar() bool {
	return d.Rows == 1 && d.Cols == 1
}

// IsVector reports whether exactly one of the dimensions is 1 and the other
// is larger.
func (d Dims) IsVector() bool {
	return (d.Rows == 1) != (d.Cols == 1)
}

// IsMatrix reports whether both dimensions are larger than 1.
func (d Dims) IsMatrix() bool {
	return d.Rows > 1 && d.Cols > 1
}

func (d Dims) String() string {
	return fmt.Sprintf("%dx%d", d.Rows, d.Cols)
}

// Layout is the element order of a matrix in model storage.
type Layout int

const (
	// RowMajor stores rows contiguously.
	RowMajor Layout = iota
	// ColumnMajor stores columns contiguously.
	ColumnMajor
)

func (l Layout) String() string {
	if l == ColumnMajor {
		return "column-major"
	}
	return "row-major"
}
