// Package tunable exposes the tunable parameters of a generated simulation
// model for inspection and modification.
//
// # Overview
//
// A generated model publishes mapping metadata describing its parameters:
// names, element types, shapes and their location inside the model's
// parameter block. Begin flattens that metadata into a Handle, the registry
// of one model instance, in which every leaf parameter is addressable by its
// dotted name. Composite (struct) parameters are not registered themselves;
// their members appear as leaves named "parent.member".
//
// # Components
//
// MappingInfo / ParamEntry: the read-only metadata consumed by Begin.
//
// Handle: owns the flat, declaration-ordered table of Descriptors. A nil
// Handle is the valid registry of a model without tunables.
//
// Descriptor: one leaf parameter. Its Ref is a non-owning reference into the
// model's parameter block and is valid only while the model instance lives.
//
// Value: the exchange format for reads and writes (scalar, vector, row-major
// matrix or composite), tagged with an element type.
//
// # Usage Example
//
//	h, err := tunable.Begin("SuperABS", mmi, tunable.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer h.End()
//
//	for _, name := range h.ListAll() {
//	    v, _ := h.GetStructured(name)
//	    fmt.Println(name, v)
//	}
//
//	if err := h.SetScalar("kappa", 0.35); err != nil {
//	    return err
//	}
//
// # Numeric Semantics
//
// Reads widen every element type to float64. Writes narrow to the storage
// type: float destinations round to the destination precision, integer
// destinations truncate toward zero and wrap to their width. No range check
// is performed.
//
// # Errors
//
// Every failure is returned as an *Error carrying an ErrorClass and is also
// logged at error level. GetScalar is the exception to the return channel: it
// yields 0.0 on failure and only logs.
package tunable
