package tunable

import (
	"fmt"
	"strings"
)

// Value is the exchange format for parameter reads and writes: a scalar,
// vector or row-major matrix of one element type, or a composite of named
// members.
//
// Values returned by read operations are freshly allocated and owned by the
// caller. Values passed to write operations are only borrowed.
type Value struct {
	// Type records the element type the data originates from or is meant for.
	Type ElemType `json:"type,omitempty"`

	// Rows and Cols give the shape of Data. Both are zero for composites.
	Rows int `json:"rows,omitempty"`
	Cols int `json:"cols,omitempty"`

	// Data holds Rows*Cols elements in row-major order.
	Data []float64 `json:"data,omitempty"`

	// Members holds the named members of a composite value.
	Members []Member `json:"members,omitempty"`
}

// Member is a named member of a composite Value.
type Member struct {
	Name  string `json:"name"`
	Value *Value `json:"value"`
}

// Scalar returns a 1x1 value.
func Scalar(t ElemType, v float64) *Value {
	return &Value{Type: t, Rows: 1, Cols: 1, Data: []float64{v}}
}

// Vector returns a 1xN value holding a copy of data.
func Vector(t ElemType, data []float64) *Value {
	return &Value{Type: t, Rows: 1, Cols: len(data), Data: append([]float64(nil), data...)}
}

// Matrix returns a value built from rows, which must all have the same length.
func Matrix(t ElemType, rows [][]float64) (*Value, error) {
	v := &Value{Type: t, Rows: len(rows)}
	for i, row := range rows {
		if i == 0 {
			v.Cols = len(row)
		} else if len(row) != v.Cols {
			return nil, Errorf(ClassTypeMismatch, "row %d has %d columns, expected %d", i, len(row), v.Cols)
		}
		v.Data = append(v.Data, row...)
	}
	return v, nil
}

// Struct returns a composite value with the given members.
func Struct(members ...Member) *Value {
	return &Value{Members: members}
}

// IsStruct reports whether v is a composite.
func (v *Value) IsStruct() bool {
	return v != nil && v.Members != nil
}

// Dims returns the shape of v.
func (v *Value) Dims() Dims {
	return Dims{Rows: v.Rows, Cols: v.Cols}
}

// At returns the element at row r and column c.
func (v *Value) At(r, c int) float64 {
	return v.Data[r*v.Cols+c]
}

// Member returns the member with the given name. Dotted names descend into
// nested composites.
func (v *Value) Member(name string) (*Value, bool) {
	if v == nil {
		return nil, false
	}
	head, rest, nested := strings.Cut(name, ".")
	for _, m := range v.Members {
		if m.Name != head {
			continue
		}
		if !nested {
			return m.Value, m.Value != nil
		}
		return m.Value.Member(rest)
	}
	return nil, false
}

// Clone returns a deep copy of v.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	c := &Value{Type: v.Type, Rows: v.Rows, Cols: v.Cols}
	if v.Data != nil {
		c.Data = append([]float64(nil), v.Data...)
	}
	if v.Members != nil {
		c.Members = make([]Member, len(v.Members))
		for i, m := range v.Members {
			c.Members[i] = Member{Name: m.Name, Value: m.Value.Clone()}
		}
	}
	return c
}

func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	if v.IsStruct() {
		parts := make([]string, len(v.Members))
		for i, m := range v.Members {
			parts[i] = m.Name + ": " + m.Value.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	if v.Rows == 1 && v.Cols == 1 && len(v.Data) == 1 {
		return fmt.Sprintf("%g", v.Data[0])
	}
	var b strings.Builder
	b.WriteByte('[')
	for r := 0; r < v.Rows; r++ {
		if r > 0 {
			b.WriteString("; ")
		}
		for c := 0; c < v.Cols; c++ {
			if c > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%g", v.At(r, c))
		}
	}
	b.WriteByte(']')
	return b.String()
}
