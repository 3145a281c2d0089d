package tunable

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestScalarRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		param string
		set   float64
		want  float64
	}{
		{name: "double exact", param: "gain", set: 0.123456789, want: 0.123456789},
		{name: "single narrows", param: "ctrl.ki", set: 0.1, want: float64(float32(0.1))},
		{name: "int16 truncates toward zero", param: "count", set: -1.7, want: -1},
		{name: "int16 wraps", param: "count", set: 40000, want: 40000 - 65536},
		{name: "int32 keeps large values", param: "ctrl.lim.hi", set: 2147483647, want: 2147483647},
		{name: "int32 wraps", param: "ctrl.lim.lo", set: 2147483648, want: -2147483648},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandle(t)
			if err := h.SetScalar(tt.param, tt.set); err != nil {
				t.Fatalf("failed to set: %v", err)
			}
			if got := h.GetScalar(tt.param); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestGetScalar_FailureReturnsZero(t *testing.T) {
	h := newTestHandle(t)

	// A failed lookup is indistinguishable from a stored zero on this
	// channel; LookupScalar carries the status.
	if got := h.GetScalar("missing"); got != 0 {
		t.Errorf("expected 0.0, got %v", got)
	}
	if _, err := h.LookupScalar("missing"); !IsNotFound(err) {
		t.Errorf("expected not_found, got %v", err)
	}

	if got := h.GetScalar("flags"); got != 0 {
		t.Errorf("expected 0.0 for non-scalar, got %v", got)
	}
	if _, err := h.LookupScalar("flags"); !IsTypeMismatch(err) {
		t.Errorf("expected type_mismatch, got %v", err)
	}

	var absent *Handle
	if got := absent.GetScalar("gain"); got != 0 {
		t.Errorf("expected 0.0 from nil handle, got %v", got)
	}
}

func TestSetScalar_NonScalar(t *testing.T) {
	h := newTestHandle(t)

	err := h.SetScalar("table", 1)
	if !IsTypeMismatch(err) {
		t.Fatalf("expected type_mismatch, got %v", err)
	}
	var te *Error
	if !errors.As(err, &te) || te.Operation != "set_scalar" || te.Param != "table" {
		t.Errorf("expected operation and param context, got %+v", te)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	h := newTestHandle(t)

	if err := h.SetVector("flags", []float64{1, 2, 255}); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	got, err := h.GetVector("flags")
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if !reflect.DeepEqual(got, []float64{1, 2, 255}) {
		t.Errorf("unexpected values: %v", got)
	}

	// Matrices accept row-major data of matching length.
	table := []float64{1, 2, 3, 4, 5, 6}
	if err := h.SetVector("table", table); err != nil {
		t.Fatalf("failed to set table: %v", err)
	}
	got, _ = h.GetVector("table")
	if !reflect.DeepEqual(got, table) {
		t.Errorf("unexpected table: %v", got)
	}

	// Results are fresh copies.
	got[0] = 99
	again, _ := h.GetVector("table")
	if again[0] != 1 {
		t.Error("GetVector returned shared storage")
	}
}

func TestSetVector_LengthMismatch(t *testing.T) {
	h := newTestHandle(t)

	if err := h.SetVector("flags", []float64{7, 8, 9}); err != nil {
		t.Fatalf("failed to set: %v", err)
	}

	for _, values := range [][]float64{{1, 2}, {1, 2, 3, 4}, nil} {
		if err := h.SetVector("flags", values); !IsTypeMismatch(err) {
			t.Errorf("expected type_mismatch for %v, got %v", values, err)
		}
	}

	got, _ := h.GetVector("flags")
	if !reflect.DeepEqual(got, []float64{7, 8, 9}) {
		t.Errorf("stored value changed after rejected write: %v", got)
	}
}

func TestGetVector_NotFound(t *testing.T) {
	h := newTestHandle(t)

	got, err := h.GetVector("nope")
	if got != nil {
		t.Errorf("expected nil result, got %v", got)
	}
	if !IsNotFound(err) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestColumnMajorLayout(t *testing.T) {
	h := newTestHandle(t)

	m, _ := Matrix(Float64, [][]float64{{1, 2}, {3, 4}})
	if err := h.SetStructured("cm", m); err != nil {
		t.Fatalf("failed to set: %v", err)
	}

	d, _ := h.Resolve("cm")
	raw := []float64{d.Ref().Load(Float64, 0), d.Ref().Load(Float64, 1), d.Ref().Load(Float64, 2), d.Ref().Load(Float64, 3)}
	if !reflect.DeepEqual(raw, []float64{1, 3, 2, 4}) {
		t.Errorf("expected column-major storage [1 3 2 4], got %v", raw)
	}

	v, err := h.GetStructured("cm")
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if v.At(0, 1) != 2 || v.At(1, 0) != 3 {
		t.Errorf("expected row-major presentation, got %v", v)
	}
}

func TestGetStructured_Leaf(t *testing.T) {
	h := newTestHandle(t)
	_ = h.SetVector("table", []float64{1, 2, 3, 4, 5, 6})

	v, err := h.GetStructured("table")
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if v.Type != Float32 || v.Rows != 2 || v.Cols != 3 {
		t.Errorf("expected single 2x3, got %s %dx%d", v.Type, v.Rows, v.Cols)
	}
	if v.At(1, 2) != 6 {
		t.Errorf("expected 6 at (1,2), got %v", v.At(1, 2))
	}
	if v.IsStruct() {
		t.Error("leaf value must not be a composite")
	}
}

func TestGetStructured_StructPrefix(t *testing.T) {
	h := newTestHandle(t)
	_ = h.SetScalar("ctrl.kp", 2.5)
	_ = h.SetScalar("ctrl.ki", 0.5)
	_ = h.SetScalar("ctrl.lim.lo", -10)
	_ = h.SetScalar("ctrl.lim.hi", 10)

	v, err := h.GetStructured("ctrl")
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if !v.IsStruct() || len(v.Members) != 3 {
		t.Fatalf("expected composite with 3 members, got %v", v)
	}
	order := []string{v.Members[0].Name, v.Members[1].Name, v.Members[2].Name}
	if !reflect.DeepEqual(order, []string{"kp", "ki", "lim"}) {
		t.Errorf("unexpected member order %v", order)
	}

	hi, ok := v.Member("lim.hi")
	if !ok || hi.Data[0] != 10 || hi.Type != Int32 {
		t.Errorf("unexpected lim.hi: %v", hi)
	}

	if _, err := h.GetStructured("ctr"); !IsNotFound(err) {
		t.Errorf("expected not_found for partial prefix, got %v", err)
	}
}

func TestSetStructured_StructPrefix(t *testing.T) {
	h := newTestHandle(t)

	value := Struct(
		Member{Name: "kp", Value: Scalar(Float64, 1.5)},
		Member{Name: "ki", Value: Scalar(Float64, 0.25)},
		Member{Name: "lim", Value: Struct(
			Member{Name: "lo", Value: Scalar(Float64, -3)},
			Member{Name: "hi", Value: Scalar(Float64, 3)},
		)},
	)
	if err := h.SetStructured("ctrl", value); err != nil {
		t.Fatalf("failed to set: %v", err)
	}

	for name, want := range map[string]float64{"ctrl.kp": 1.5, "ctrl.ki": 0.25, "ctrl.lim.lo": -3, "ctrl.lim.hi": 3} {
		if got := h.GetScalar(name); got != want {
			t.Errorf("%s: expected %v, got %v", name, want, got)
		}
	}

	// A nested prefix writes only its own leaves.
	if err := h.SetStructured("ctrl.lim", Struct(
		Member{Name: "lo", Value: Scalar(Int32, -7)},
		Member{Name: "hi", Value: Scalar(Int32, 7)},
	)); err != nil {
		t.Fatalf("failed to set nested struct: %v", err)
	}
	if h.GetScalar("ctrl.lim.hi") != 7 || h.GetScalar("ctrl.kp") != 1.5 {
		t.Error("nested struct write touched the wrong leaves")
	}
}

func TestSetStructured_AbortsOnMemberFailure(t *testing.T) {
	h := newTestHandle(t)
	_ = h.SetScalar("ctrl.lim.lo", 5)

	value := Struct(
		Member{Name: "kp", Value: Scalar(Float64, 9)},
		// ki missing
		Member{Name: "lim", Value: Struct(
			Member{Name: "lo", Value: Scalar(Float64, -1)},
			Member{Name: "hi", Value: Scalar(Float64, 1)},
		)},
	)
	err := h.SetStructured("ctrl", value)
	if !IsTypeMismatch(err) {
		t.Fatalf("expected type_mismatch, got %v", err)
	}

	if h.GetScalar("ctrl.kp") != 9 {
		t.Error("expected the member before the failure to be written")
	}
	if h.GetScalar("ctrl.lim.lo") != 5 {
		t.Error("expected members after the failure to be left untouched")
	}
}

func TestSetStructured_ShapeRules(t *testing.T) {
	h := newTestHandle(t)

	col := &Value{Type: Float64, Rows: 3, Cols: 1, Data: []float64{4, 5, 6}}
	if err := h.SetStructured("flags", col); err != nil {
		t.Errorf("expected column vector to fit 1x3 parameter, got %v", err)
	}

	bad := []*Value{
		Vector(Float64, []float64{1, 2}),
		Scalar(Float64, 1),
		{Type: Float64, Rows: 3, Cols: 2, Data: []float64{1, 2, 3, 4, 5, 6}},
		Struct(Member{Name: "x", Value: Scalar(Float64, 1)}),
		{Type: Float64, Rows: 1, Cols: 3, Data: []float64{1}},
	}
	for _, v := range bad {
		if err := h.SetStructured("table", v); !IsTypeMismatch(err) {
			t.Errorf("expected type_mismatch for %v, got %v", v, err)
		}
	}

	if err := h.SetStructured("ctrl", Scalar(Float64, 1)); !IsTypeMismatch(err) {
		t.Errorf("expected type_mismatch for scalar onto struct, got %v", err)
	}
	if err := h.SetStructured("gain", nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected invalid_argument for nil value, got %v", err)
	}
	if err := h.SetStructured("nope", Scalar(Float64, 1)); !IsNotFound(err) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestFloatSpecialValues(t *testing.T) {
	h := newTestHandle(t)

	_ = h.SetScalar("gain", math.Inf(1))
	if !math.IsInf(h.GetScalar("gain"), 1) {
		t.Error("expected +Inf to survive a double round trip")
	}

	_ = h.SetScalar("count", math.NaN())
	if h.GetScalar("count") != 0 {
		t.Error("expected NaN to narrow to 0 for integer storage")
	}
}
