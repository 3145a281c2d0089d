package dict

import (
	"github.com/rs/zerolog"

	"github.com/tunekit/tunekit/pkg/telemetry"
	"github.com/tunekit/tunekit/pkg/tunable"
)

// placeholder backs the address handed out when a parameter cannot be
// resolved. It is large enough for any element type and never carries
// meaningful data.
var placeholder = make([]byte, 8)

// Exporter registers tunable parameters as dictionary quantities.
type Exporter struct {
	dict    Dictionary
	logger  zerolog.Logger
	metrics *telemetry.Metrics
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger failures are reported to.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Exporter) {
		e.logger = logger
	}
}

// WithMetrics counts registrations in m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Exporter) {
		e.metrics = m
	}
}

// NewExporter creates an exporter registering into d.
func NewExporter(d Dictionary, opts ...Option) *Exporter {
	e := &Exporter{
		dict:   d,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str("component", "exporter").Logger()
	return e
}

// ExportScalar registers the scalar parameter name as a continuous,
// non-monotonic quantity called exportName (name if empty), sampled at
// access.
//
// t must equal the parameter's element type. With a nil handle nothing can
// be checked: the quantity is declared with type t over a placeholder
// address, which lets a host declare its quantities before any model
// instance exists.
func (e *Exporter) ExportScalar(h *tunable.Handle, name string, t tunable.ElemType, exportName, unit string, access AccessPoint) error {
	const op = "export_scalar"
	if exportName == "" {
		exportName = name
	}
	if !t.Valid() {
		return e.fail(op, tunable.Errorf(tunable.ClassInvalidArgument, "invalid element type %s", t).WithParam(name))
	}

	ref := tunable.MakeRef(placeholder, 0)
	if h != nil {
		d, err := h.Resolve(name)
		if err != nil {
			return e.fail(op, tunable.Errorf(tunable.ClassNotFound, "no such tunable parameter").WithParam(name))
		}
		if !d.Dims().IsScalar() {
			return e.fail(op, tunable.Errorf(tunable.ClassTypeMismatch, "only scalar parameters can be exported, %s is %s", name, d.Dims()).WithParam(name))
		}
		if d.Type() != t {
			return e.fail(op, tunable.Errorf(tunable.ClassTypeMismatch, "declared type %s, parameter is %s", t, d.Type()).WithParam(name))
		}
		ref = d.Ref()
	}

	q := Quantity{
		Name:       exportName,
		Unit:       unit,
		Type:       t,
		Ref:        ref,
		Access:     access,
		Continuous: true,
		Monotonic:  false,
	}
	if err := e.dict.Define(q); err != nil {
		return e.fail(op, tunable.NewError(tunable.ClassInvalidArgument, "dictionary rejected quantity", err).WithParam(name))
	}

	e.metrics.RecordExport(access.String())
	e.logger.Debug().
		Str("param", name).
		Str("quantity", exportName).
		Str("access", access.String()).
		Bool("placeholder", h == nil).
		Msg("Parameter exported")
	return nil
}

// ExportScalarLegacy is ExportScalar sampling at AccessInput.
func (e *Exporter) ExportScalarLegacy(h *tunable.Handle, name string, t tunable.ElemType, exportName, unit string) error {
	return e.ExportScalar(h, name, t, exportName, unit, AccessInput)
}

// AddressOf returns the storage of the scalar parameter name for custom
// registrations. The result is never the zero Ref: when name does not
// resolve to a scalar of type t, a shared placeholder is returned instead.
func AddressOf(h *tunable.Handle, name string, t tunable.ElemType) tunable.Ref {
	if d, err := h.Resolve(name); err == nil && d.Dims().IsScalar() && d.Type() == t {
		return d.Ref()
	}
	return tunable.MakeRef(placeholder, 0)
}

// DeclQuants defines every entry as a continuous, non-monotonic quantity
// and returns the number of entries the dictionary rejected. Entries with
// a zero Ref are declared over the placeholder.
func (e *Exporter) DeclQuants(entries []QuantEntry) int {
	failures := 0
	for _, qe := range entries {
		ref := qe.Ref
		if ref.IsZero() {
			ref = tunable.MakeRef(placeholder, 0)
		}
		err := e.dict.Define(Quantity{
			Name:       qe.Name,
			Unit:       qe.Unit,
			Type:       qe.Type,
			Ref:        ref,
			Access:     qe.Access,
			Continuous: true,
		})
		if err != nil {
			failures++
			e.metrics.RecordError(string(tunable.ClassInvalidArgument))
			e.logger.Error().Err(err).Str("quantity", qe.Name).Msg("Failed to declare quantity")
			continue
		}
		e.metrics.RecordExport(qe.Access.String())
	}
	return failures
}

// ResetQuants sets the value behind every entry to zero.
func ResetQuants(entries []QuantEntry) {
	for _, qe := range entries {
		if qe.Ref.IsZero() || !qe.Type.Valid() {
			continue
		}
		qe.Ref.Store(qe.Type, 0, 0)
	}
}

func (e *Exporter) fail(op string, err *tunable.Error) error {
	err.Operation = op
	e.metrics.RecordError(string(err.Class))
	e.logger.Error().
		Str("param", err.Param).
		Str("class", string(err.Class)).
		Str("operation", op).
		Msg(err.Message)
	return err
}
