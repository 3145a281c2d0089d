package tunable

import (
	"strings"
)

// MappingInfo is the externally generated description of a model's tunable
// parameters. It is read-only input to Begin.
type MappingInfo struct {
	// Block is the model instance's parameter storage. It is referenced, never
	// copied or owned.
	Block []byte

	// Params lists the top-level parameter entries in declaration order.
	Params []ParamEntry
}

// ParamEntry describes one parameter of the mapping metadata. An entry with
// Members is a composite (struct) whose member offsets are relative to the
// entry's own offset.
type ParamEntry struct {
	Name   string
	Type   ElemType
	Offset int
	Rows   int
	Cols   int
	Layout Layout

	// Size optionally declares the byte extent of a composite. When set,
	// members must lie within it.
	Size int

	Members []ParamEntry
}

// IsStruct reports whether e is a composite entry.
func (e ParamEntry) IsStruct() bool {
	return len(e.Members) > 0 || (e.Type == Invalid && e.Rows == 0 && e.Cols == 0)
}

// Descriptor identifies one leaf tunable parameter. Its shape and location
// are fixed when the Handle is built.
type Descriptor struct {
	name   string
	typ    ElemType
	dims   Dims
	layout Layout
	ref    Ref
}

// Name returns the flattened, dotted name of the parameter.
func (d *Descriptor) Name() string { return d.name }

// Type returns the element type of the parameter's storage.
func (d *Descriptor) Type() ElemType { return d.typ }

// Dims returns the row and column counts.
func (d *Descriptor) Dims() Dims { return d.dims }

// Layout returns the storage order of the parameter's elements.
func (d *Descriptor) Layout() Layout { return d.layout }

// Ref returns the non-owning reference to the parameter's storage.
func (d *Descriptor) Ref() Ref { return d.ref }

// index maps a row-major element index to its storage index.
func (d *Descriptor) index(i int) int {
	if d.layout == RowMajor || d.dims.Rows == 1 || d.dims.Cols == 1 {
		return i
	}
	r, c := i/d.dims.Cols, i%d.dims.Cols
	return c*d.dims.Rows + r
}

// flattener turns the entry tree into a flat, declaration-ordered list of
// leaf descriptors.
type flattener struct {
	block  []byte
	leaves []*Descriptor
	seen   map[string]bool
}

// flattenMapping validates mmi and returns its leaves. Any inconsistency fails
// the whole construction.
func flattenMapping(mmi *MappingInfo) ([]*Descriptor, error) {
	f := &flattener{
		block: mmi.Block,
		seen:  make(map[string]bool),
	}
	if err := f.walk(mmi.Params, "", 0, len(mmi.Block)); err != nil {
		return nil, err
	}
	return f.leaves, nil
}

func (f *flattener) walk(entries []ParamEntry, prefix string, base, limit int) error {
	for _, e := range entries {
		if e.Name == "" || strings.Contains(e.Name, ".") {
			return Errorf(ClassInvalidMetadata, "invalid parameter name %q", e.Name).WithParam(prefix + e.Name)
		}
		name := e.Name
		if prefix != "" {
			name = prefix + "." + e.Name
		}
		if e.Offset < 0 {
			return Errorf(ClassInvalidMetadata, "negative offset %d", e.Offset).WithParam(name)
		}
		if e.Offset > limit-base {
			return Errorf(ClassInvalidMetadata, "offset %d exceeds bound %d", base+e.Offset, limit).WithParam(name)
		}
		off := base + e.Offset

		if e.IsStruct() {
			if len(e.Members) == 0 {
				return Errorf(ClassInvalidMetadata, "struct has no members").WithParam(name)
			}
			if f.seen[name] {
				return Errorf(ClassInvalidMetadata, "duplicate parameter").WithParam(name)
			}
			f.seen[name] = true
			end := limit
			if e.Size > 0 {
				if e.Size > limit-off {
					return Errorf(ClassInvalidMetadata, "struct size %d at offset %d exceeds bound %d", e.Size, off, limit).WithParam(name)
				}
				end = off + e.Size
			}
			if err := f.walk(e.Members, name, off, end); err != nil {
				return err
			}
			continue
		}

		if !e.Type.Valid() {
			return Errorf(ClassInvalidMetadata, "unknown element type %d", int(e.Type)).WithParam(name)
		}
		if e.Rows < 1 || e.Cols < 1 {
			return Errorf(ClassInvalidMetadata, "invalid dimensions %dx%d", e.Rows, e.Cols).WithParam(name)
		}
		// compared by division so that huge dimensions cannot overflow
		if e.Rows > (limit-off)/e.Cols/e.Type.Size() {
			return Errorf(ClassInvalidMetadata, "%dx%d %s at offset %d exceeds bound %d", e.Rows, e.Cols, e.Type, off, limit).WithParam(name)
		}
		if f.seen[name] {
			return Errorf(ClassInvalidMetadata, "duplicate parameter").WithParam(name)
		}
		f.seen[name] = true

		f.leaves = append(f.leaves, &Descriptor{
			name:   name,
			typ:    e.Type,
			dims:   Dims{Rows: e.Rows, Cols: e.Cols},
			layout: e.Layout,
			ref:    MakeRef(f.block, off),
		})
	}
	return nil
}
