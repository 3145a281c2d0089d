package tunable

import (
	"strings"
)

// GetScalar returns the value of a scalar parameter widened to float64.
//
// On any failure GetScalar returns 0.0 and reports the failure only to the
// log, so a failure cannot be told apart from a stored zero. Use
// LookupScalar when the distinction matters.
func (h *Handle) GetScalar(name string) float64 {
	v, err := h.LookupScalar(name)
	if err != nil {
		return 0
	}
	return v
}

// LookupScalar returns the value of a scalar parameter widened to float64.
func (h *Handle) LookupScalar(name string) (float64, error) {
	const op = "get_scalar"
	d, err := h.resolve(name)
	if err != nil {
		return 0, h.fail(op, err)
	}
	if !d.dims.IsScalar() {
		return 0, h.fail(op, Errorf(ClassTypeMismatch, "parameter is %s, not scalar", d.dims).WithParam(name))
	}
	return d.ref.Load(d.typ, 0), nil
}

// GetVector returns a fresh copy of all elements of a parameter, in
// row-major order, converted to float64.
func (h *Handle) GetVector(name string) ([]float64, error) {
	d, err := h.resolve(name)
	if err != nil {
		return nil, h.fail("get_vector", err)
	}
	return readData(d), nil
}

// GetStructured returns a fresh Value reproducing a parameter's element type
// and shape. For a struct parent the result is a composite holding all leaves
// below it, nested along the dotted names.
func (h *Handle) GetStructured(name string) (*Value, error) {
	const op = "get_structured"
	if d, err := h.resolve(name); err == nil {
		return readLeaf(d), nil
	}
	leaves := h.Leaves(name)
	if len(leaves) == 0 {
		return nil, h.fail(op, Errorf(ClassNotFound, "no such tunable parameter").WithParam(name))
	}

	root := &Value{Members: []Member{}}
	for _, d := range leaves {
		parts := strings.Split(strings.TrimPrefix(d.name, name+"."), ".")
		node := root
		for _, part := range parts[:len(parts)-1] {
			node = childStruct(node, part)
		}
		node.Members = append(node.Members, Member{Name: parts[len(parts)-1], Value: readLeaf(d)})
	}
	return root, nil
}

// SetScalar writes v, narrowed to the element type, into a scalar parameter.
func (h *Handle) SetScalar(name string, v float64) error {
	const op = "set_scalar"
	d, err := h.resolve(name)
	if err != nil {
		return h.fail(op, err)
	}
	if !d.dims.IsScalar() {
		return h.fail(op, Errorf(ClassTypeMismatch, "parameter is %s, not scalar", d.dims).WithParam(name))
	}
	d.ref.Store(d.typ, 0, v)
	return nil
}

// SetVector writes values, given in row-major order, into a parameter. The
// number of values must equal the parameter's element count; otherwise
// nothing is written.
func (h *Handle) SetVector(name string, values []float64) error {
	const op = "set_vector"
	d, err := h.resolve(name)
	if err != nil {
		return h.fail(op, err)
	}
	if len(values) != d.dims.Len() {
		return h.fail(op, Errorf(ClassTypeMismatch, "got %d values, parameter is %s", len(values), d.dims).WithParam(name))
	}
	writeData(d, values)
	return nil
}

// SetStructured writes v into a parameter. For a struct parent, v must be a
// composite; each leaf below the parent is written from the member at the
// same relative path. The first failing member aborts the remaining writes.
func (h *Handle) SetStructured(name string, v *Value) error {
	const op = "set_structured"
	if v == nil {
		return h.fail(op, Errorf(ClassInvalidArgument, "nil value").WithParam(name))
	}
	if d, err := h.resolve(name); err == nil {
		if err := writeLeaf(d, v); err != nil {
			return h.fail(op, err)
		}
		return nil
	}

	leaves := h.Leaves(name)
	if len(leaves) == 0 {
		return h.fail(op, Errorf(ClassNotFound, "no such tunable parameter").WithParam(name))
	}
	if !v.IsStruct() {
		return h.fail(op, Errorf(ClassTypeMismatch, "struct parameter needs a composite value").WithParam(name))
	}
	for _, d := range leaves {
		rel := strings.TrimPrefix(d.name, name+".")
		member, ok := v.Member(rel)
		if !ok {
			return h.fail(op, Errorf(ClassTypeMismatch, "value has no member %q", rel).WithParam(d.name))
		}
		if err := writeLeaf(d, member); err != nil {
			return h.fail(op, err)
		}
	}
	return nil
}

// Fits reports whether v can be written to d without reshaping: the shapes
// are equal, or d is a vector and v holds the same number of elements in a
// single row or column.
func (d *Descriptor) Fits(v *Value) bool {
	if v == nil || v.IsStruct() || len(v.Data) != v.Rows*v.Cols {
		return false
	}
	if v.Rows == d.dims.Rows && v.Cols == d.dims.Cols {
		return true
	}
	return d.dims.IsVector() && (v.Rows == 1 || v.Cols == 1) && v.Rows*v.Cols == d.dims.Len()
}

func childStruct(node *Value, name string) *Value {
	for _, m := range node.Members {
		if m.Name == name {
			return m.Value
		}
	}
	child := &Value{Members: []Member{}}
	node.Members = append(node.Members, Member{Name: name, Value: child})
	return child
}

func readLeaf(d *Descriptor) *Value {
	return &Value{
		Type: d.typ,
		Rows: d.dims.Rows,
		Cols: d.dims.Cols,
		Data: readData(d),
	}
}

func readData(d *Descriptor) []float64 {
	out := make([]float64, d.dims.Len())
	for i := range out {
		out[i] = d.ref.Load(d.typ, d.index(i))
	}
	return out
}

func writeLeaf(d *Descriptor, v *Value) *Error {
	if !d.Fits(v) {
		shape := "nil"
		switch {
		case v.IsStruct():
			shape = "composite"
		case v != nil:
			shape = v.Dims().String()
		}
		return Errorf(ClassTypeMismatch, "value is %s, parameter is %s", shape, d.dims).WithParam(d.name)
	}
	writeData(d, v.Data)
	return nil
}

func writeData(d *Descriptor, values []float64) {
	for i, x := range values {
		d.ref.Store(d.typ, d.index(i), x)
	}
}
