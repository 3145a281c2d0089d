// Package config reads tunable parameter values from configuration stores
// into a model instance.
//
// # Overview
//
// A Store is a hierarchical, string-keyed view of a parameter file. Keys are
// dotted paths; a lookup either misses or returns a raw entry, which the
// Bridge converts into a tunable.Value shaped like the target parameter and
// writes through the Handle.
//
// # Components
//
// MapStore: flat in-memory store keyed by full dotted names.
//
// YAMLStore: nested YAML mappings, addressed by dotted keys. Literal keys
// containing dots are honoured too.
//
// CUEStore: a CUE document evaluated once; constraints and references are
// resolved before lookup, and non-concrete fields read as malformed.
//
// StarlarkStore: the globals of a Starlark parameter script, with the
// linspace and fill helpers predeclared. Execution is bounded by a timeout.
//
// Bridge: ReadOne, ReadOneWithDefault, ReadAllRequired and ReadAllOptional.
// An optional Filter vetoes individual writes.
//
// Watcher: follows a parameter file with fsnotify and re-applies it with
// ReadAllOptional after every change.
//
// # Entry Formats
//
// Entries may be numbers, booleans, lists, lists of rows, or text in the
// parameter-file convention:
//
//	gain:  0.25
//	flags: 1 0 1
//	table: |
//	  1 2 3
//	  4 5 6
//
// A flat entry with as many elements as the parameter is laid out row-major
// onto its shape.
//
// # Usage Example
//
//	store, err := config.LoadFile(ctx, "SuperABS.yaml")
//	if err != nil {
//	    return err
//	}
//	bridge := config.NewBridge(h, config.WithLogger(logger))
//	if n := bridge.ReadAllRequired(store, "SuperABS"); n > 0 {
//	    return fmt.Errorf("%d parameters could not be read", n)
//	}
//
// # Failure Semantics
//
// Single-parameter reads return a classified *tunable.Error: missing_required
// for an absent key, conversion_failure for an entry that does not fit, and
// invalid_argument for a write rejected by the Filter. Bulk reads attempt
// every leaf and return the number of failures; each failure is logged.
package config
