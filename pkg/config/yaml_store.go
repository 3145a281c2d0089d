package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAMLStore serves entries from a YAML document. Nested mappings are
// addressed with dotted keys.
type YAMLStore struct {
	root map[string]any
}

// NewYAMLStore parses content into a store. An empty document yields an
// empty store.
func NewYAMLStore(content []byte) (*YAMLStore, error) {
	var raw any
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if raw == nil {
		return &YAMLStore{root: map[string]any{}}, nil
	}
	m, ok := normalizeYAML(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("YAML document must be a mapping, got %T", raw)
	}
	return &YAMLStore{root: m}, nil
}

// Lookup implements Store.
func (s *YAMLStore) Lookup(key string) (any, bool) {
	return lookupNested(s.root, key)
}

// Keys returns the dotted paths of all scalar and list entries.
func (s *YAMLStore) Keys() []string {
	return nestedKeys(s.root, "", nil)
}

// normalizeYAML turns map[any]any nodes, produced for non-string keys, into
// map[string]any so dotted lookups work on numeric keys too.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			val[k] = normalizeYAML(child)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[fmt.Sprint(k)] = normalizeYAML(child)
		}
		return out
	case []any:
		for i, child := range val {
			val[i] = normalizeYAML(child)
		}
		return val
	default:
		return v
	}
}
