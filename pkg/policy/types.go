package policy

import (
	"fmt"
	"strings"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for warnings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError is for errors that should block operations.
	SeverityError Severity = "error"

	// SeverityCritical is for critical violations that must be addressed immediately.
	SeverityCritical Severity = "critical"
)

// Blocks reports whether a violation of severity s rejects a write.
func (s Severity) Blocks() bool {
	return s == SeverityError || s == SeverityCritical
}

// Policy represents a policy rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code. The package must define a
	// "deny" set.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Metadata contains additional policy metadata.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Change is the input a policy sees for one parameter write.
type Change struct {
	// Model is the model the parameter belongs to.
	Model string `json:"model"`

	// Param is the dotted parameter name.
	Param string `json:"param"`

	// Type is the element type name of the parameter.
	Type string `json:"type"`

	Rows int `json:"rows"`
	Cols int `json:"cols"`

	// Data holds the proposed elements in row-major order. Non-finite
	// elements are replaced by zero and counted in NonFinite.
	Data []float64 `json:"data"`

	// Current holds the stored elements, if known.
	Current []float64 `json:"current,omitempty"`

	// NonFinite counts NaN and infinite elements of the proposed value.
	NonFinite int `json:"non_finite"`

	// Source names where the change comes from, e.g. "config" or "cli".
	Source string `json:"source,omitempty"`
}

// Limit constrains the values of one parameter. It is exposed to policies
// as data.tunekit.limits[param].
type Limit struct {
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	MaxStep *float64 `json:"max_step,omitempty" yaml:"max_step,omitempty"`
	Locked  bool     `json:"locked,omitempty" yaml:"locked,omitempty"`
}

func (l Limit) data() map[string]any {
	out := map[string]any{"locked": l.Locked}
	if l.Min != nil {
		out["min"] = *l.Min
	}
	if l.Max != nil {
		out["max"] = *l.Max
	}
	if l.MaxStep != nil {
		out["max_step"] = *l.MaxStep
	}
	return out
}

// Violation represents a single policy violation.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Param is the parameter the violation refers to.
	Param string `json:"param,omitempty"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`
}

// ViolationError rejects a write that violated at least one blocking
// policy.
type ViolationError struct {
	Violations []Violation
}

func (e *ViolationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = fmt.Sprintf("%s: %s", v.Policy, v.Message)
	}
	return "policy violation: " + strings.Join(msgs, "; ")
}
