package tunable

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// Ref is a non-owning reference to the storage of one parameter inside a
// model instance's parameter block.
//
// A Ref never keeps the model alive on its own terms: it is valid only while
// the model instance that produced the mapping metadata is alive, regardless
// of the lifetime of the Handle it was obtained from.
type Ref struct {
	block []byte
	off   int
}

// MakeRef returns a reference to the given offset within block.
func MakeRef(block []byte, off int) Ref {
	return Ref{block: block, off: off}
}

// IsZero reports whether r refers to nothing.
func (r Ref) IsZero() bool {
	return r.block == nil
}

// Offset returns the byte offset within the referenced block.
func (r Ref) Offset() int {
	return r.off
}

// Same reports whether r and o refer to the same location.
func (r Ref) Same(o Ref) bool {
	return unsafe.SliceData(r.block) == unsafe.SliceData(o.block) && r.off == o.off
}

// Load reads element i of type t and widens it to float64.
func (r Ref) Load(t ElemType, i int) float64 {
	p := r.off + i*t.Size()
	b := r.block
	switch t {
	case Float64:
		return math.Float64frombits(binary.NativeEndian.Uint64(b[p:]))
	case Float32:
		return float64(math.Float32frombits(binary.NativeEndian.Uint32(b[p:])))
	case Int8:
		return float64(int8(b[p]))
	case Uint8:
		return float64(b[p])
	case Int16:
		return float64(int16(binary.NativeEndian.Uint16(b[p:])))
	case Uint16:
		return float64(binary.NativeEndian.Uint16(b[p:]))
	case Int32:
		return float64(int32(binary.NativeEndian.Uint32(b[p:])))
	case Uint32:
		return float64(binary.NativeEndian.Uint32(b[p:]))
	}
	return 0
}

// Store narrows v to type t and writes it as element i.
//
// Integer destinations truncate toward zero and then wrap to the
// destination width; no range check is performed.
func (r Ref) Store(t ElemType, i int, v float64) {
	p := r.off + i*t.Size()
	b := r.block
	switch t {
	case Float64:
		binary.NativeEndian.PutUint64(b[p:], math.Float64bits(v))
	case Float32:
		binary.NativeEndian.PutUint32(b[p:], math.Float32bits(float32(v)))
	case Int8, Uint8:
		b[p] = byte(truncate(v))
	case Int16, Uint16:
		binary.NativeEndian.PutUint16(b[p:], uint16(truncate(v)))
	case Int32, Uint32:
		binary.NativeEndian.PutUint32(b[p:], uint32(truncate(v)))
	}
}

// truncate converts v toward zero. NaN maps to 0 and values beyond the int64
// range saturate, so that the following wrap to a narrower width is
// deterministic.
func truncate(v float64) int64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	}
	return int64(v)
}
