package config

import (
	"context"
	"fmt"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// DefaultScriptTimeout bounds the execution of a parameter script.
const DefaultScriptTimeout = 10 * time.Second

// StarlarkStore serves the global variables of a Starlark parameter script.
// Dicts and structs nest like YAML mappings; globals starting with an
// underscore are private to the script.
type StarlarkStore struct {
	root map[string]any
}

// NewStarlarkStore runs script with input predeclared and snapshots its
// globals. The script is cancelled after DefaultScriptTimeout or when ctx
// is done.
func NewStarlarkStore(ctx context.Context, script string, input map[string]any) (*StarlarkStore, error) {
	return newStarlarkStore(ctx, script, input, DefaultScriptTimeout)
}

func newStarlarkStore(ctx context.Context, script string, input map[string]any, timeout time.Duration) (*StarlarkStore, error) {
	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	thread := &starlark.Thread{
		Name:  "tunekit",
		Print: func(_ *starlark.Thread, _ string) {},
	}

	type result struct {
		root map[string]any
		err  error
	}
	done := make(chan result, 1)
	go func() {
		root, err := execScript(thread, script, input)
		done <- result{root: root, err: err}
	}()

	select {
	case <-evalCtx.Done():
		thread.Cancel(evalCtx.Err().Error())
		<-done
		return nil, fmt.Errorf("starlark execution timeout after %v", timeout)
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return &StarlarkStore{root: r.root}, nil
	}
}

// Lookup implements Store.
func (s *StarlarkStore) Lookup(key string) (any, bool) {
	return lookupNested(s.root, key)
}

// Keys returns the dotted paths of all non-dict globals.
func (s *StarlarkStore) Keys() []string {
	return nestedKeys(s.root, "", nil)
}

func execScript(thread *starlark.Thread, script string, input map[string]any) (map[string]any, error) {
	predeclared := starlark.StringDict{
		"struct":   starlarkstruct.Default,
		"linspace": starlark.NewBuiltin("linspace", builtinLinspace),
		"fill":     starlark.NewBuiltin("fill", builtinFill),
	}
	for key, val := range input {
		sv, err := toStarlarkValue(val)
		if err != nil {
			return nil, fmt.Errorf("failed to convert input %s: %w", key, err)
		}
		predeclared[key] = sv
	}

	globals, err := starlark.ExecFile(thread, "params.star", script, predeclared)
	if err != nil {
		return nil, fmt.Errorf("starlark execution failed: %w", err)
	}

	root := make(map[string]any)
	for name, val := range globals {
		if name[0] == '_' {
			continue
		}
		if _, ok := val.(starlark.Callable); ok {
			continue
		}
		goVal, err := fromStarlarkValue(val)
		if err != nil {
			root[name] = invalidEntry{err: fmt.Errorf("global %s: %w", name, err)}
			continue
		}
		root[name] = goVal
	}
	return root, nil
}

func toStarlarkValue(v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case string:
		return starlark.String(val), nil
	case []float64:
		list := make([]starlark.Value, len(val))
		for i, x := range val {
			list[i] = starlark.Float(x)
		}
		return starlark.NewList(list), nil
	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil
	case map[string]any:
		dict := starlark.NewDict(len(val))
		for k, item := range val {
			sv, err := toStarlarkValue(item)
			if err != nil {
				return nil, err
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

func fromStarlarkValue(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return nil, fmt.Errorf("integer too large")
		}
		return float64(i), nil
	case starlark.Float:
		return float64(val), nil
	case starlark.String:
		return string(val), nil
	case starlark.Indexable:
		// lists and tuples
		list := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := fromStarlarkValue(val.Index(i))
			if err != nil {
				return nil, err
			}
			list[i] = item
		}
		return list, nil
	case *starlark.Dict:
		dict := make(map[string]any)
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string")
			}
			value, err := fromStarlarkValue(item[1])
			if err != nil {
				return nil, err
			}
			dict[string(key)] = value
		}
		return dict, nil
	case *starlarkstruct.Struct:
		dict := make(map[string]any)
		for _, name := range val.AttrNames() {
			attr, err := val.Attr(name)
			if err != nil {
				continue
			}
			value, err := fromStarlarkValue(attr)
			if err != nil {
				return nil, err
			}
			dict[name] = value
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported starlark type: %s", v.Type())
	}
}

// builtinLinspace implements linspace(start, stop, n): n evenly spaced
// floats from start to stop inclusive.
func builtinLinspace(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var start, stop float64
	var n int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 3, &start, &stop, &n); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("%s: n must be positive", b.Name())
	}
	out := make([]starlark.Value, n)
	for i := range out {
		if n == 1 {
			out[i] = starlark.Float(start)
			continue
		}
		out[i] = starlark.Float(start + (stop-start)*float64(i)/float64(n-1))
	}
	return starlark.NewList(out), nil
}

// builtinFill implements fill(rows, cols, value): a rows x cols list of
// lists holding value.
func builtinFill(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var rows, cols int
	var value float64
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 3, &rows, &cols, &value); err != nil {
		return nil, err
	}
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("%s: dimensions must be positive", b.Name())
	}
	out := make([]starlark.Value, rows)
	for r := range out {
		row := make([]starlark.Value, cols)
		for c := range row {
			row[c] = starlark.Float(value)
		}
		out[r] = starlark.NewList(row)
	}
	return starlark.NewList(out), nil
}
