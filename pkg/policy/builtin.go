package policy

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		finiteValuesPolicy(),
		parameterLimitsPolicy(),
		stepLimitPolicy(),
	}
}

// finiteValuesPolicy rejects NaN and infinite elements.
func finiteValuesPolicy() Policy {
	return Policy{
		Name:        "finite-values",
		Description: "Rejects parameter values containing NaN or infinite elements",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"values"},
		Rego: `package tunekit.policies.finite

import rego.v1

deny contains violation if {
	input.change.non_finite > 0
	violation := {
		"message": sprintf("%s has %d non-finite elements", [input.change.param, input.change.non_finite]),
		"severity": "error",
	}
}
`,
	}
}

// parameterLimitsPolicy enforces the per-parameter range and lock settings
// in data.tunekit.limits.
func parameterLimitsPolicy() Policy {
	return Policy{
		Name:        "parameter-limits",
		Description: "Enforces configured minimum, maximum and lock settings per parameter",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"limits"},
		Rego: `package tunekit.policies.limits

import rego.v1

limit := data.tunekit.limits[input.change.param]

deny contains violation if {
	limit.locked
	violation := {
		"message": sprintf("%s is locked", [input.change.param]),
		"severity": "error",
	}
}

deny contains violation if {
	some i, v in input.change.data
	v < limit.min
	violation := {
		"message": sprintf("%s[%d] = %v is below the minimum %v", [input.change.param, i, v, limit.min]),
		"severity": "error",
	}
}

deny contains violation if {
	some i, v in input.change.data
	v > limit.max
	violation := {
		"message": sprintf("%s[%d] = %v is above the maximum %v", [input.change.param, i, v, limit.max]),
		"severity": "error",
	}
}
`,
	}
}

// stepLimitPolicy warns about changes larger than the configured step.
func stepLimitPolicy() Policy {
	return Policy{
		Name:        "step-limit",
		Description: "Flags changes that move an element further than the configured max_step",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"limits"},
		Rego: `package tunekit.policies.step

import rego.v1

deny contains violation if {
	limit := data.tunekit.limits[input.change.param]
	some i, v in input.change.data
	prev := input.change.current[i]
	abs(v - prev) > limit.max_step
	violation := {
		"message": sprintf("%s[%d] changes by %v, more than %v", [input.change.param, i, abs(v - prev), limit.max_step]),
	}
}
`,
	}
}
