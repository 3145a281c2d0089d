package dict

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tunekit/tunekit/pkg/tunable"
)

type recordingDict struct {
	defined []Quantity
	err     error
}

func (r *recordingDict) Define(q Quantity) error {
	if r.err != nil {
		return r.err
	}
	r.defined = append(r.defined, q)
	return nil
}

func newTestHandle(t *testing.T) *tunable.Handle {
	t.Helper()

	h, err := tunable.Begin("TestModel", &tunable.MappingInfo{
		Block: make([]byte, 32),
		Params: []tunable.ParamEntry{
			{Name: "gain", Type: tunable.Float64, Offset: 0, Rows: 1, Cols: 1},
			{Name: "count", Type: tunable.Int16, Offset: 8, Rows: 1, Cols: 1},
			{Name: "flags", Type: tunable.Uint8, Offset: 10, Rows: 1, Cols: 3},
			{
				Name:   "ctrl",
				Offset: 16,
				Members: []tunable.ParamEntry{
					{Name: "kp", Type: tunable.Float64, Offset: 0, Rows: 1, Cols: 1},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("failed to begin: %v", err)
	}
	t.Cleanup(h.End)
	return h
}

func TestExportScalar(t *testing.T) {
	h := newTestHandle(t)
	rec := &recordingDict{}
	e := NewExporter(rec)

	if err := e.ExportScalar(h, "ctrl.kp", tunable.Float64, "Ctrl.Kp", "1", AccessOutput); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.defined) != 1 {
		t.Fatalf("expected 1 registration, got %d", len(rec.defined))
	}
	q := rec.defined[0]
	if q.Name != "Ctrl.Kp" || q.Unit != "1" || q.Access != AccessOutput {
		t.Errorf("unexpected quantity: %+v", q)
	}
	if !q.Continuous || q.Monotonic {
		t.Errorf("expected continuous non-monotonic quantity, got %+v", q)
	}

	if err := h.SetScalar("ctrl.kp", 2.5); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	if q.Value() != 2.5 {
		t.Errorf("expected quantity to follow model memory, got %v", q.Value())
	}
}

func TestExportScalar_DefaultsName(t *testing.T) {
	h := newTestHandle(t)
	rec := &recordingDict{}

	if err := NewExporter(rec).ExportScalarLegacy(h, "count", tunable.Int16, "", "-"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.defined[0].Name != "count" {
		t.Errorf("expected name count, got %q", rec.defined[0].Name)
	}
	if rec.defined[0].Access != AccessInput {
		t.Errorf("expected input access, got %s", rec.defined[0].Access)
	}
}

func TestExportScalar_Failures(t *testing.T) {
	h := newTestHandle(t)

	tests := []struct {
		name  string
		param string
		typ   tunable.ElemType
		class tunable.ErrorClass
	}{
		{"non-scalar", "flags", tunable.Uint8, tunable.ClassTypeMismatch},
		{"struct", "ctrl", tunable.Float64, tunable.ClassNotFound},
		{"type mismatch", "gain", tunable.Float32, tunable.ClassTypeMismatch},
		{"unknown", "nope", tunable.Float64, tunable.ClassNotFound},
		{"invalid type", "gain", tunable.Invalid, tunable.ClassInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingDict{}
			err := NewExporter(rec).ExportScalar(h, tt.param, tt.typ, "", "", AccessInput)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := tunable.ClassOf(err); got != tt.class {
				t.Errorf("expected class %s, got %s", tt.class, got)
			}
			if len(rec.defined) != 0 {
				t.Errorf("expected no registration, got %d", len(rec.defined))
			}
		})
	}
}

func TestExportScalar_NilHandle(t *testing.T) {
	rec := &recordingDict{}

	if err := NewExporter(rec).ExportScalar(nil, "gain", tunable.Float32, "", "m", AccessCompute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.defined) != 1 {
		t.Fatalf("expected 1 registration, got %d", len(rec.defined))
	}
	q := rec.defined[0]
	if q.Type != tunable.Float32 {
		t.Errorf("expected single, got %s", q.Type)
	}
	if q.Ref.IsZero() {
		t.Error("expected placeholder address, got zero ref")
	}
}

func TestExportScalar_DictionaryRejects(t *testing.T) {
	h := newTestHandle(t)
	rec := &recordingDict{err: errors.New("full")}

	err := NewExporter(rec).ExportScalar(h, "gain", tunable.Float64, "", "", AccessInput)
	if tunable.ClassOf(err) != tunable.ClassInvalidArgument {
		t.Errorf("expected invalid_argument, got %v", err)
	}
}

func TestAddressOf(t *testing.T) {
	h := newTestHandle(t)
	gain, _ := h.Resolve("gain")

	if ref := AddressOf(h, "gain", tunable.Float64); !ref.Same(gain.Ref()) {
		t.Error("expected address of gain")
	}

	for _, name := range []string{"nope", "flags", "ctrl"} {
		if ref := AddressOf(h, name, tunable.Float64); ref.IsZero() {
			t.Errorf("expected placeholder for %q, got zero ref", name)
		}
	}
	if ref := AddressOf(nil, "gain", tunable.Float64); ref.IsZero() {
		t.Error("expected placeholder for nil handle, got zero ref")
	}
}

func TestDeclQuants(t *testing.T) {
	block := make([]byte, 16)
	entries := []QuantEntry{
		{Name: "a", Type: tunable.Float64, Ref: tunable.MakeRef(block, 0)},
		{Name: "b", Type: tunable.Int32, Ref: tunable.MakeRef(block, 8), Access: AccessOutput},
		{Name: "a", Type: tunable.Float64},
	}
	d := NewMemoryDictionary()

	if failures := NewExporter(d).DeclQuants(entries); failures != 1 {
		t.Errorf("expected 1 failure, got %d", failures)
	}
	if d.Len() != 2 {
		t.Fatalf("expected 2 quantities, got %d", d.Len())
	}
	if names := d.Names(); !reflect.DeepEqual(names, []string{"a", "b"}) {
		t.Errorf("expected declaration order [a b], got %v", names)
	}
	if q, ok := d.Lookup("b"); !ok || q.Access != AccessOutput || !q.Continuous || q.Monotonic {
		t.Errorf("unexpected quantity b: %+v", q)
	}

	entries[0].Ref.Store(tunable.Float64, 0, 3.5)
	entries[1].Ref.Store(tunable.Int32, 0, -7)
	values := d.Values()
	if values["a"] != 3.5 || values["b"] != -7 {
		t.Errorf("unexpected values: %v", values)
	}

	ResetQuants(entries)
	values = d.Values()
	if values["a"] != 0 || values["b"] != 0 {
		t.Errorf("expected zeroed values, got %v", values)
	}
}

func TestParseAccessPoint(t *testing.T) {
	tests := []struct {
		in   string
		want AccessPoint
		ok   bool
	}{
		{"", AccessInput, true},
		{"in", AccessInput, true},
		{"Output", AccessOutput, true},
		{"out", AccessOutput, true},
		{"compute", AccessCompute, true},
		{"none", AccessNone, true},
		{"later", 0, false},
	}

	for _, tt := range tests {
		got, err := ParseAccessPoint(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseAccessPoint(%q): unexpected error state %v", tt.in, err)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseAccessPoint(%q): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}
