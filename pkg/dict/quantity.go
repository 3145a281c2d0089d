package dict

import (
	"fmt"
	"strings"

	"github.com/tunekit/tunekit/pkg/tunable"
)

// AccessPoint is the stage of the host's execution pipeline at which a
// quantity's value is sampled.
type AccessPoint int

const (
	// AccessInput samples before the model step. It is the default.
	AccessInput AccessPoint = iota
	// AccessOutput samples after the model step.
	AccessOutput
	// AccessCompute samples during the host's compute phase.
	AccessCompute
	// AccessNone disables direct value access.
	AccessNone
)

var accessNames = [...]string{
	AccessInput:   "input",
	AccessOutput:  "output",
	AccessCompute: "compute",
	AccessNone:    "none",
}

func (a AccessPoint) String() string {
	if a < 0 || int(a) >= len(accessNames) {
		return fmt.Sprintf("AccessPoint(%d)", int(a))
	}
	return accessNames[a]
}

// ParseAccessPoint parses an access point name. The empty string is
// AccessInput.
func ParseAccessPoint(s string) (AccessPoint, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "in" {
		return AccessInput, nil
	}
	if s == "out" {
		return AccessOutput, nil
	}
	for i, name := range accessNames {
		if name == s {
			return AccessPoint(i), nil
		}
	}
	return 0, tunable.Errorf(tunable.ClassInvalidArgument, "unknown access point %q", s)
}

// Quantity is one registration with a dictionary: a named, typed view onto
// a scalar in model memory.
type Quantity struct {
	Name       string
	Unit       string
	Type       tunable.ElemType
	Ref        tunable.Ref
	Access     AccessPoint
	Continuous bool
	Monotonic  bool
}

// Value reads the quantity's current value.
func (q Quantity) Value() float64 {
	if q.Ref.IsZero() {
		return 0
	}
	return q.Ref.Load(q.Type, 0)
}

// Dictionary is the host's named-value store. Registrations happen during
// initialisation; the exporter never reads back from it.
type Dictionary interface {
	Define(q Quantity) error
}

// QuantEntry declares a quantity for bulk declaration with DeclQuants.
type QuantEntry struct {
	Name   string
	Unit   string
	Type   tunable.ElemType
	Ref    tunable.Ref
	Access AccessPoint
}
