// Package policy guards parameter writes with Open Policy Agent (OPA)
// Rego policies.
//
// A Guard compiles a set of policies, each a Rego package defining a
// "deny" set, and evaluates them against a Change: the parameter name, its
// proposed elements and, when known, the elements currently stored.
// Per-parameter limits are exposed to policies as data.tunekit.limits.
//
// # Built-in Policies
//
//   - finite-values: rejects NaN and infinite elements
//   - parameter-limits: enforces min, max and locked from the limits
//   - step-limit: warns when an element moves further than max_step
//
// # Usage
//
// Guard implements config.Filter and is typically installed on a bridge:
//
//	guard, err := policy.NewGuard(ctx, policy.WithHandle(h), policy.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	limits, err := policy.LoadLimits("limits.yaml")
//	if err != nil {
//	    return err
//	}
//	if err := guard.SetLimits(ctx, limits); err != nil {
//	    return err
//	}
//	b := config.NewBridge(h, config.WithFilter(guard))
//
// A limits file maps parameter names to limits:
//
//	gain:
//	  min: 0
//	  max: 10
//	  max_step: 0.5
//	ctrl.kp:
//	  locked: true
//
// Custom policies are loaded from .rego files, named after the file, or
// from JSON policy definitions:
//
//	package tunekit.policies.sign
//
//	import rego.v1
//
//	deny contains msg if {
//	    startswith(input.change.param, "gain")
//	    some v in input.change.data
//	    v < 0
//	    msg := "gains must not be negative"
//	}
package policy
