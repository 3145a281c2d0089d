package config

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tunekit/tunekit/pkg/telemetry"
	"github.com/tunekit/tunekit/pkg/tunable"
)

// Filter vetoes parameter writes coming from a config store. A non-nil
// error rejects the write and counts as a failure.
type Filter interface {
	Allow(name string, v *tunable.Value) error
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(name string, v *tunable.Value) error

// Allow implements Filter.
func (f FilterFunc) Allow(name string, v *tunable.Value) error {
	return f(name, v)
}

// Bridge reads parameter values from config stores into a Handle.
type Bridge struct {
	handle  *tunable.Handle
	logger  zerolog.Logger
	metrics *telemetry.Metrics
	filter  Filter
	source  string
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithLogger sets the logger failures are reported to.
func WithLogger(logger zerolog.Logger) BridgeOption {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithMetrics records every entry read in m.
func WithMetrics(m *telemetry.Metrics) BridgeOption {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// WithFilter installs a write filter.
func WithFilter(f Filter) BridgeOption {
	return func(b *Bridge) {
		b.filter = f
	}
}

// WithSource names the store in logs and metrics.
func WithSource(name string) BridgeOption {
	return func(b *Bridge) {
		b.source = name
	}
}

// NewBridge creates a bridge writing into h. A nil h is valid and has no
// parameters.
func NewBridge(h *tunable.Handle, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		handle: h,
		logger: zerolog.Nop(),
		source: "config",
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With().
		Str("component", "config-bridge").
		Str("model", h.Model()).
		Str("source", b.source).
		Logger()
	return b
}

// ReadOne reads the entry at key into the parameter name. For a struct
// parent, each leaf below it is read from key plus the leaf's relative
// dotted path; the first failing leaf aborts the remaining reads.
func (b *Bridge) ReadOne(name string, store Store, key string) error {
	const op = "read_one"
	leaves, err := b.leaves(name)
	if err != nil {
		return b.fail(op, err)
	}
	for _, d := range leaves {
		k := leafKey(name, key, d)
		entry, ok := store.Lookup(k)
		if !ok {
			b.metrics.RecordConfigRead(b.source, "missing")
			return b.fail(op, tunable.Errorf(tunable.ClassMissingRequired, "config key %q not found", k).WithParam(d.Name()))
		}
		if err := b.apply(d, entry); err != nil {
			return b.fail(op, err)
		}
	}
	return nil
}

// ReadOneWithDefault is ReadOne, except that an absent key applies def
// instead. For a struct parent, def must be a composite and each leaf takes
// the member at its relative path. A nil def leaves absent leaves untouched
// and is never a failure.
//
// A present entry that cannot be applied, because it is malformed, vetoed
// by the filter or rejected by the Handle, falls back to def when def is
// non-nil and fails otherwise.
func (b *Bridge) ReadOneWithDefault(name string, store Store, key string, def *tunable.Value) error {
	const op = "read_one_default"
	leaves, err := b.leaves(name)
	if err != nil {
		return b.fail(op, err)
	}
	for _, d := range leaves {
		k := leafKey(name, key, d)
		if entry, ok := store.Lookup(k); ok {
			err := b.apply(d, entry)
			if err == nil {
				continue
			}
			if def == nil {
				return b.fail(op, err)
			}
			b.logger.Warn().Err(err).Str("param", d.Name()).Str("key", k).Msg("Config entry not applied, applying default")
		}

		if def == nil {
			continue
		}
		dv := def
		if rel := strings.TrimPrefix(d.Name(), name+"."); d.Name() != name {
			m, ok := def.Member(rel)
			if !ok {
				return b.fail(op, tunable.Errorf(tunable.ClassTypeMismatch, "default has no member %q", rel).WithParam(d.Name()))
			}
			dv = m
		}
		if err := b.write(d, dv); err != nil {
			return b.fail(op, err)
		}
		b.metrics.RecordConfigRead(b.source, "default")
	}
	return nil
}

// ReadAllRequired reads every leaf from the key keyPrefix + "." + name, or
// the bare name if keyPrefix is empty. Every leaf is attempted; the result
// is the number of leaves that were missing or could not be converted or
// written.
func (b *Bridge) ReadAllRequired(store Store, keyPrefix string) int {
	return b.readAll(store, keyPrefix, true)
}

// ReadAllOptional is ReadAllRequired, except that missing keys are skipped
// without counting. Present but malformed entries still count.
func (b *Bridge) ReadAllOptional(store Store, keyPrefix string) int {
	return b.readAll(store, keyPrefix, false)
}

func (b *Bridge) readAll(store Store, keyPrefix string, required bool) int {
	op, mode := "read_all_optional", "optional"
	if required {
		op, mode = "read_all_required", "required"
	}
	timer := telemetry.NewTimer()

	failures := 0
	for _, d := range b.handle.Descriptors() {
		k := d.Name()
		if keyPrefix != "" {
			k = keyPrefix + "." + k
		}
		entry, ok := store.Lookup(k)
		if !ok {
			if required {
				failures++
				b.metrics.RecordConfigRead(b.source, "missing")
				_ = b.fail(op, tunable.Errorf(tunable.ClassMissingRequired, "config key %q not found", k).WithParam(d.Name()))
			}
			continue
		}
		if err := b.apply(d, entry); err != nil {
			failures++
			_ = b.fail(op, err)
		}
	}

	b.metrics.RecordLoad(mode, failures, timer.Duration())
	b.logger.Debug().
		Str("mode", mode).
		Str("prefix", keyPrefix).
		Int("params", b.handle.Len()).
		Int("failures", failures).
		Msg("Parameters read from config")
	return failures
}

func (b *Bridge) leaves(name string) ([]*tunable.Descriptor, *tunable.Error) {
	leaves := b.handle.Leaves(name)
	if len(leaves) == 0 {
		return nil, tunable.Errorf(tunable.ClassNotFound, "no such tunable parameter").WithParam(name)
	}
	return leaves, nil
}

// apply converts entry and writes it to d.
func (b *Bridge) apply(d *tunable.Descriptor, entry any) *tunable.Error {
	v, err := toValue(entry, d)
	if err != nil {
		b.metrics.RecordConfigRead(b.source, "malformed")
		return err
	}
	if err := b.write(d, v); err != nil {
		return err
	}
	b.metrics.RecordConfigRead(b.source, "ok")
	return nil
}

func (b *Bridge) write(d *tunable.Descriptor, v *tunable.Value) *tunable.Error {
	const op = "set_structured"
	if b.filter != nil {
		if err := b.filter.Allow(d.Name(), v); err != nil {
			b.metrics.RecordConfigRead(b.source, "rejected")
			b.metrics.RecordParamWrite(op, "rejected")
			return tunable.NewError(tunable.ClassInvalidArgument, "write rejected", err).WithParam(d.Name())
		}
	}
	if err := b.handle.SetStructured(d.Name(), v); err != nil {
		b.metrics.RecordConfigRead(b.source, "failed")
		b.metrics.RecordParamWrite(op, "failed")
		var te *tunable.Error
		if errors.As(err, &te) {
			return te
		}
		return tunable.NewError(tunable.ClassTypeMismatch, "write failed", err).WithParam(d.Name())
	}
	b.metrics.RecordParamWrite(op, "ok")
	return nil
}

func (b *Bridge) fail(op string, err *tunable.Error) error {
	err.Operation = op
	b.metrics.RecordError(string(err.Class))
	event := b.logger.Error().
		Str("param", err.Param).
		Str("class", string(err.Class)).
		Str("operation", op)
	if err.Err != nil {
		event = event.AnErr("cause", err.Err)
	}
	event.Msg(err.Message)
	return err
}

func leafKey(name, key string, d *tunable.Descriptor) string {
	if d.Name() == name {
		return key
	}
	return key + "." + strings.TrimPrefix(d.Name(), name+".")
}

// Dump returns the current value of every leaf as a MapStore keyed like
// ReadAllRequired expects, so that reading it back restores the values.
func Dump(h *tunable.Handle, keyPrefix string) MapStore {
	out := make(MapStore, h.Len())
	for _, d := range h.Descriptors() {
		v, err := h.GetStructured(d.Name())
		if err != nil {
			continue
		}
		k := d.Name()
		if keyPrefix != "" {
			k = keyPrefix + "." + k
		}
		out[k] = FormatValue(v)
	}
	return out
}
