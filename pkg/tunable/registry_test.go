package tunable

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

// newTestMapping returns metadata for a block holding:
//
//	gain      double  1x1  @0
//	count     int16   1x1  @8
//	flags     uint8   1x3  @10
//	table     single  2x3  @16
//	ctrl      struct       @40 {kp double @0, ki single @8, lim struct @12 {lo int32 @0, hi int32 @4}}
//	cm        double  2x2  @64 column-major
func newTestMapping() *MappingInfo {
	return &MappingInfo{
		Block: make([]byte, 96),
		Params: []ParamEntry{
			{Name: "gain", Type: Float64, Offset: 0, Rows: 1, Cols: 1},
			{Name: "count", Type: Int16, Offset: 8, Rows: 1, Cols: 1},
			{Name: "flags", Type: Uint8, Offset: 10, Rows: 1, Cols: 3},
			{Name: "table", Type: Float32, Offset: 16, Rows: 2, Cols: 3},
			{
				Name:   "ctrl",
				Offset: 40,
				Size:   20,
				Members: []ParamEntry{
					{Name: "kp", Type: Float64, Offset: 0, Rows: 1, Cols: 1},
					{Name: "ki", Type: Float32, Offset: 8, Rows: 1, Cols: 1},
					{
						Name:   "lim",
						Offset: 12,
						Members: []ParamEntry{
							{Name: "lo", Type: Int32, Offset: 0, Rows: 1, Cols: 1},
							{Name: "hi", Type: Int32, Offset: 4, Rows: 1, Cols: 1},
						},
					},
				},
			},
			{Name: "cm", Type: Float64, Offset: 64, Rows: 2, Cols: 2, Layout: ColumnMajor},
		},
	}
}

func newTestHandle(t *testing.T) *Handle {
	t.Helper()

	h, err := Begin("TestModel", newTestMapping())
	if err != nil {
		t.Fatalf("failed to begin: %v", err)
	}
	if h == nil {
		t.Fatal("expected a handle, got nil")
	}
	t.Cleanup(h.End)
	return h
}

func TestBegin_NoTunables(t *testing.T) {
	for name, mmi := range map[string]*MappingInfo{
		"nil metadata": nil,
		"no params":    {Block: make([]byte, 16)},
	} {
		t.Run(name, func(t *testing.T) {
			h, err := Begin("Empty", mmi)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if h != nil {
				t.Fatalf("expected nil handle, got %v", h)
			}

			names := h.ListAll()
			if names == nil || len(names) != 0 {
				t.Errorf("expected empty non-nil list, got %#v", names)
			}
			if h.Len() != 0 {
				t.Errorf("expected 0 params, got %d", h.Len())
			}
			if _, err := h.Resolve("x"); !IsNotFound(err) {
				t.Errorf("expected not_found, got %v", err)
			}
			h.End()
		})
	}
}

func TestBegin_InvalidMetadata(t *testing.T) {
	tests := []struct {
		name   string
		params []ParamEntry
	}{
		{
			name:   "offset beyond block",
			params: []ParamEntry{{Name: "a", Type: Float64, Offset: 12, Rows: 1, Cols: 1}},
		},
		{
			name:   "negative offset",
			params: []ParamEntry{{Name: "a", Type: Float64, Offset: -1, Rows: 1, Cols: 1}},
		},
		{
			name:   "dotted name",
			params: []ParamEntry{{Name: "a.b", Type: Float64, Rows: 1, Cols: 1}},
		},
		{
			name:   "zero dimensions",
			params: []ParamEntry{{Name: "a", Type: Float64, Rows: 0, Cols: 1}},
		},
		{
			name:   "unknown type",
			params: []ParamEntry{{Name: "a", Type: ElemType(99), Rows: 1, Cols: 1}},
		},
		{
			name: "duplicate name",
			params: []ParamEntry{
				{Name: "a", Type: Uint8, Rows: 1, Cols: 1},
				{Name: "a", Type: Uint8, Offset: 1, Rows: 1, Cols: 1},
			},
		},
		{
			name: "struct extent beyond block",
			params: []ParamEntry{{
				Name: "s", Offset: 8, Size: 16,
				Members: []ParamEntry{{Name: "x", Type: Uint8, Rows: 1, Cols: 1}},
			}},
		},
		{
			name: "member beyond struct extent",
			params: []ParamEntry{{
				Name: "s", Size: 4,
				Members: []ParamEntry{{Name: "x", Type: Float64, Rows: 1, Cols: 1}},
			}},
		},
		{
			name: "leaf clashes with struct",
			params: []ParamEntry{
				{Name: "s", Type: Uint8, Rows: 1, Cols: 1},
				{Name: "s", Members: []ParamEntry{{Name: "x", Type: Uint8, Offset: 1, Rows: 1, Cols: 1}}},
			},
		},
		{
			name:   "empty struct",
			params: []ParamEntry{{Name: "s"}},
		},
		{
			name:   "dimensions overflow",
			params: []ParamEntry{{Name: "huge", Type: Int8, Rows: 1 << 40, Cols: 1 << 23}},
		},
		{
			name:   "offset overflow",
			params: []ParamEntry{{Name: "a", Type: Uint8, Offset: math.MaxInt, Rows: 1, Cols: 1}},
		},
		{
			name: "struct size overflow",
			params: []ParamEntry{{
				Name: "s", Offset: 1, Size: math.MaxInt,
				Members: []ParamEntry{{Name: "x", Type: Uint8, Rows: 1, Cols: 1}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := Begin("Bad", &MappingInfo{Block: make([]byte, 16), Params: tt.params})
			if err == nil {
				t.Fatal("expected an error")
			}
			if h != nil {
				t.Errorf("expected nil handle on failure")
			}
			if !errors.Is(err, ErrInvalidMetadata) {
				t.Errorf("expected invalid_metadata, got %v", err)
			}
		})
	}
}

func TestListAll_FlattenedLeaves(t *testing.T) {
	h := newTestHandle(t)

	want := []string{"gain", "count", "flags", "table", "ctrl.kp", "ctrl.ki", "ctrl.lim.lo", "ctrl.lim.hi", "cm"}
	got := h.ListAll()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if h.Len() != len(want) {
		t.Errorf("expected Len %d, got %d", len(want), h.Len())
	}

	for _, name := range got {
		d, err := h.Resolve(name)
		if err != nil {
			t.Errorf("failed to resolve %s: %v", name, err)
			continue
		}
		if d.Name() != name {
			t.Errorf("resolved %s to %s", name, d.Name())
		}
	}

	// The returned slice belongs to the caller.
	got[0] = "mutated"
	if h.ListAll()[0] != "gain" {
		t.Error("ListAll exposed internal state")
	}
}

func TestResolve_ExactMatchOnly(t *testing.T) {
	h := newTestHandle(t)

	for _, name := range []string{"ctrl", "ctrl.lim", "gai", "Gain", "ctrl.k", ""} {
		if _, err := h.Resolve(name); !IsNotFound(err) {
			t.Errorf("expected %q not to resolve, got %v", name, err)
		}
	}
}

func TestLeaves_Prefix(t *testing.T) {
	h := newTestHandle(t)

	names := func(ds []*Descriptor) []string {
		out := make([]string, len(ds))
		for i, d := range ds {
			out[i] = d.Name()
		}
		return out
	}

	if got := names(h.Leaves("ctrl")); !reflect.DeepEqual(got, []string{"ctrl.kp", "ctrl.ki", "ctrl.lim.lo", "ctrl.lim.hi"}) {
		t.Errorf("unexpected leaves for ctrl: %v", got)
	}
	if got := names(h.Leaves("ctrl.lim")); !reflect.DeepEqual(got, []string{"ctrl.lim.lo", "ctrl.lim.hi"}) {
		t.Errorf("unexpected leaves for ctrl.lim: %v", got)
	}
	if got := names(h.Leaves("gain")); !reflect.DeepEqual(got, []string{"gain"}) {
		t.Errorf("unexpected leaves for gain: %v", got)
	}
	if got := h.Leaves("ctr"); got != nil {
		t.Errorf("expected no leaves for partial prefix, got %v", names(got))
	}

	if !h.IsStructPrefix("ctrl.lim") {
		t.Error("expected ctrl.lim to be a struct prefix")
	}
	if h.IsStructPrefix("gain") {
		t.Error("leaf must not be a struct prefix")
	}
}

func TestDescriptor_Shape(t *testing.T) {
	h := newTestHandle(t)

	d, err := h.Resolve("table")
	if err != nil {
		t.Fatalf("failed to resolve: %v", err)
	}
	if d.Type() != Float32 {
		t.Errorf("expected single, got %s", d.Type())
	}
	if d.Dims() != (Dims{Rows: 2, Cols: 3}) {
		t.Errorf("expected 2x3, got %s", d.Dims())
	}
	if d.Ref().Offset() != 16 {
		t.Errorf("expected offset 16, got %d", d.Ref().Offset())
	}

	lo, _ := h.Resolve("ctrl.lim.lo")
	if lo.Ref().Offset() != 52 {
		t.Errorf("expected nested offset 52, got %d", lo.Ref().Offset())
	}
}

func TestEnd_ReleasesTable(t *testing.T) {
	h, err := Begin("TestModel", newTestMapping())
	if err != nil {
		t.Fatalf("failed to begin: %v", err)
	}
	h.End()

	if h.Len() != 0 {
		t.Errorf("expected empty registry after End, got %d", h.Len())
	}
	if _, err := h.Resolve("gain"); !IsNotFound(err) {
		t.Errorf("expected not_found after End, got %v", err)
	}
}

func TestBegin_UniqueIDs(t *testing.T) {
	a := newTestHandle(t)
	b := newTestHandle(t)
	if a.ID() == b.ID() {
		t.Error("expected distinct handle ids")
	}
	if a.Model() != "TestModel" {
		t.Errorf("expected model name TestModel, got %s", a.Model())
	}
}
