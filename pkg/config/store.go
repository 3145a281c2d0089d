package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store is a hierarchical, string-keyed configuration store. Keys are
// dotted paths; Lookup reports whether the key is present and, if so,
// returns its raw entry for conversion.
type Store interface {
	Lookup(key string) (any, bool)
}

// Keyed is implemented by stores that can enumerate their leaf keys.
type Keyed interface {
	Keys() []string
}

// MapStore is a flat store keyed by full dotted names.
type MapStore map[string]any

// Lookup implements Store.
func (m MapStore) Lookup(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// Keys returns the store's keys in lexical order.
func (m MapStore) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// invalidEntry marks a key that is present but whose content could not be
// decoded by the store itself. Converting it always fails.
type invalidEntry struct {
	err error
}

// LoadFile reads a parameter file and returns a store for it, chosen by
// extension: .yaml/.yml, .cue or .star.
func LoadFile(ctx context.Context, path string) (Store, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return NewYAMLStore(content)
	case ".cue":
		return NewCUEStore(string(content), path)
	case ".star":
		return NewStarlarkStore(ctx, string(content), nil)
	default:
		return nil, fmt.Errorf("unsupported parameter file type: %s", path)
	}
}

// lookupNested resolves a dotted key in a tree of string-keyed maps. At each
// level the longest literal key matching a prefix of the remaining path
// wins, so both {"a": {"b": 1}} and {"a.b": 1} answer "a.b".
func lookupNested(node map[string]any, key string) (any, bool) {
	if v, ok := node[key]; ok {
		return v, true
	}
	for i := len(key) - 1; i > 0; i-- {
		if key[i] != '.' {
			continue
		}
		child, ok := node[key[:i]].(map[string]any)
		if !ok {
			continue
		}
		if v, ok := lookupNested(child, key[i+1:]); ok {
			return v, true
		}
	}
	return nil, false
}

// nestedKeys returns the dotted paths of all non-map values below node.
func nestedKeys(node map[string]any, prefix string, out []string) []string {
	names := make([]string, 0, len(node))
	for k := range node {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := node[k].(map[string]any); ok {
			out = nestedKeys(child, key, out)
			continue
		}
		out = append(out, key)
	}
	return out
}
