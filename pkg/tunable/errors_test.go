package tunable

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_IsMatchesClass(t *testing.T) {
	err := Errorf(ClassTypeMismatch, "value is 1x2, parameter is 1x3").WithParam("flags").WithOperation("set_vector")

	if !errors.Is(err, ErrTypeMismatch) {
		t.Error("expected errors.Is to match the class sentinel")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is not to match another class")
	}

	wrapped := fmt.Errorf("reading config: %w", err)
	if ClassOf(wrapped) != ClassTypeMismatch {
		t.Errorf("expected class through wrapping, got %q", ClassOf(wrapped))
	}
	if ClassOf(errors.New("plain")) != "" {
		t.Error("expected empty class for foreign errors")
	}
}

func TestError_Message(t *testing.T) {
	cause := errors.New("strconv: bad digit")
	err := NewError(ClassConversionFailure, "cannot convert entry", cause).WithParam("kappa")

	msg := err.Error()
	for _, part := range []string{"conversion_failure", "cannot convert entry", "strconv: bad digit", "param=kappa"} {
		if !strings.Contains(msg, part) {
			t.Errorf("expected %q in %q", part, msg)
		}
	}
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
}

func TestParseElemType(t *testing.T) {
	tests := map[string]ElemType{
		"double":  Float64,
		"float64": Float64,
		"Single":  Float32,
		"int8":    Int8,
		"uint8":   Uint8,
		"int16":   Int16,
		"uint16":  Uint16,
		"int32":   Int32,
		" uint32": Uint32,
	}
	for in, want := range tests {
		got, err := ParseElemType(in)
		if err != nil {
			t.Errorf("%q: unexpected error %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("%q: expected %s, got %s", in, want, got)
		}
	}

	if _, err := ParseElemType("complex128"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected invalid_argument, got %v", err)
	}
}
