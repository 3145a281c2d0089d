package config

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// CUEStore serves entries from a CUE document. Constraints and references
// are evaluated first; any field that does not evaluate to a concrete value
// is present but malformed.
type CUEStore struct {
	value cue.Value
	root  map[string]any
}

// NewCUEStore compiles source and snapshots its concrete fields. filename
// is used in error positions only.
func NewCUEStore(source, filename string) (*CUEStore, error) {
	ctx := cuecontext.New()
	val := ctx.CompileString(source, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE: %s", cueErrorDetails(err))
	}

	decoded, err := cueToGo(val)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate CUE: %w", err)
	}
	root, ok := decoded.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("CUE document must be a struct")
	}
	return &CUEStore{value: val, root: root}, nil
}

// Lookup implements Store.
func (s *CUEStore) Lookup(key string) (any, bool) {
	return lookupNested(s.root, key)
}

// Keys returns the dotted paths of all non-struct fields.
func (s *CUEStore) Keys() []string {
	return nestedKeys(s.root, "", nil)
}

// Value returns the compiled CUE value.
func (s *CUEStore) Value() cue.Value {
	return s.value
}

// cueToGo converts a CUE value into the entry shapes the bridge accepts.
// Struct fields that fail to convert become invalidEntry markers so the
// rest of the document stays usable.
func cueToGo(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		out := make(map[string]any)
		for iter.Next() {
			name := iter.Selector().Unquoted()
			child, err := cueToGo(iter.Value())
			if err != nil {
				out[name] = invalidEntry{err: err}
				continue
			}
			out[name] = child
		}
		return out, nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		var out []any
		for iter.Next() {
			item, err := cueToGo(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		return v.Float64()
	case cue.StringKind:
		return v.String()
	case cue.BoolKind:
		return v.Bool()
	case cue.NullKind:
		return nil, nil
	default:
		if err := v.Err(); err != nil {
			return nil, fmt.Errorf("%s", cueErrorDetails(err))
		}
		return nil, fmt.Errorf("value at %s is not concrete", v.Path())
	}
}

func cueErrorDetails(err error) string {
	var msg string
	for i, e := range errors.Errors(err) {
		if i > 0 {
			msg += "; "
		}
		msg += errors.Details(e, nil)
	}
	if msg == "" {
		return err.Error()
	}
	return msg
}
