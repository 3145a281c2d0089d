package config

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tunekit/tunekit/pkg/tunable"
)

func TestToValue(t *testing.T) {
	h := newTestHandle(t)
	table, _ := h.Resolve("table")
	flags, _ := h.Resolve("flags")
	gain, _ := h.Resolve("gain")

	tests := []struct {
		name  string
		entry any
		d     *tunable.Descriptor
		want  []float64
	}{
		{name: "float", entry: 0.5, d: gain, want: []float64{0.5}},
		{name: "int", entry: 3, d: gain, want: []float64{3}},
		{name: "bool", entry: true, d: gain, want: []float64{1}},
		{name: "padded text", entry: "  2.5\n", d: gain, want: []float64{2.5}},
		{name: "text row", entry: "1 0 1", d: flags, want: []float64{1, 0, 1}},
		{name: "comma row", entry: "1, 0, 1", d: flags, want: []float64{1, 0, 1}},
		{name: "column list", entry: []any{[]any{1}, []any{2}, []any{3}}, d: flags, want: []float64{1, 2, 3}},
		{name: "text matrix", entry: "1 2 3\n4 5 6", d: table, want: []float64{1, 2, 3, 4, 5, 6}},
		{name: "semicolon matrix", entry: "1 2 3; 4 5 6", d: table, want: []float64{1, 2, 3, 4, 5, 6}},
		{name: "nested lists", entry: []any{[]any{1, 2, 3}, []any{4, 5, 6}}, d: table, want: []float64{1, 2, 3, 4, 5, 6}},
		{name: "flat into matrix", entry: []any{1, 2, 3, 4, 5, 6}, d: table, want: []float64{1, 2, 3, 4, 5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ToValue(tt.entry, tt.d)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(v.Data, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, v.Data)
			}
			if v.Type != tt.d.Type() {
				t.Errorf("expected type %s, got %s", tt.d.Type(), v.Type)
			}
		})
	}
}

func TestToValue_Failures(t *testing.T) {
	h := newTestHandle(t)
	table, _ := h.Resolve("table")
	gain, _ := h.Resolve("gain")

	tests := []struct {
		name  string
		entry any
		d     *tunable.Descriptor
	}{
		{name: "word", entry: "fast", d: gain},
		{name: "empty text", entry: "   ", d: gain},
		{name: "vector into scalar", entry: []any{1, 2}, d: gain},
		{name: "wrong count", entry: "1 2 3 4 5", d: table},
		{name: "transposed", entry: "1 2\n3 4\n5 6", d: table},
		{name: "ragged", entry: "1 2 3\n4 5", d: table},
		{name: "mapping", entry: map[string]any{"a": 1}, d: gain},
		{name: "nil", entry: nil, d: gain},
		{name: "empty list", entry: []any{}, d: gain},
		{name: "store error", entry: invalidEntry{err: errors.New("not concrete")}, d: gain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToValue(tt.entry, tt.d)
			if !errors.Is(err, tunable.ErrConversionFailure) {
				t.Errorf("expected conversion_failure, got %v", err)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	m, _ := tunable.Matrix(tunable.Float64, [][]float64{{1, 0.5}, {-2, 1e-9}})
	if got := FormatValue(m); got != "1 0.5\n-2 1e-09" {
		t.Errorf("unexpected text %q", got)
	}
	if got := FormatValue(tunable.Scalar(tunable.Int8, -4)); got != "-4" {
		t.Errorf("unexpected text %q", got)
	}
}
