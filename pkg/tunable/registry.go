package tunable

import (
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Handle is the parameter registry of one model instance. It is built once
// by Begin and is immutable afterwards, except for the parameter values in
// model storage that its descriptors refer to.
//
// A nil *Handle is valid and stands for a model without tunable parameters:
// every method can be called on it and behaves as on an empty registry.
//
// A Handle is not safe for concurrent use; it belongs to the goroutine that
// owns the model instance.
type Handle struct {
	id     uuid.UUID
	model  string
	leaves []*Descriptor
	index  map[string]*Descriptor
	logger zerolog.Logger
}

// Option configures a Handle.
type Option func(*Handle)

// WithLogger sets the logger used to report failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handle) {
		h.logger = logger
	}
}

// Begin builds the registry for a model from its mapping metadata.
//
// The result distinguishes three cases:
//   - (h, nil): a registry with at least one leaf parameter.
//   - (nil, nil): the model declares no tunable parameters. This is success.
//   - (nil, err): the metadata is inconsistent; err is an invalid_metadata error.
func Begin(model string, mmi *MappingInfo, opts ...Option) (*Handle, error) {
	h := &Handle{
		id:     uuid.New(),
		model:  model,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With().Str("model", model).Logger()

	if mmi == nil || len(mmi.Params) == 0 {
		h.logger.Debug().Msg("model declares no tunable parameters")
		return nil, nil
	}

	leaves, err := flattenMapping(mmi)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to build parameter registry")
		return nil, err
	}

	h.leaves = leaves
	h.index = make(map[string]*Descriptor, len(leaves))
	for _, d := range leaves {
		h.index[d.name] = d
	}

	h.logger.Debug().
		Str("handle", h.id.String()).
		Int("params", len(leaves)).
		Msg("parameter registry built")

	return h, nil
}

// End releases the registry. The Handle must not be used afterwards; a
// released Handle behaves like an empty one.
func (h *Handle) End() {
	if h == nil {
		return
	}
	h.logger.Debug().Str("handle", h.id.String()).Msg("parameter registry released")
	h.leaves = nil
	h.index = nil
}

// ID returns the unique id of this registry instance.
func (h *Handle) ID() uuid.UUID {
	if h == nil {
		return uuid.Nil
	}
	return h.id
}

// Model returns the model name the registry was built for.
func (h *Handle) Model() string {
	if h == nil {
		return ""
	}
	return h.model
}

// Len returns the number of leaf parameters.
func (h *Handle) Len() int {
	if h == nil {
		return 0
	}
	return len(h.leaves)
}

// ListAll returns the names of all leaf parameters in declaration order. The
// slice is freshly allocated and never nil.
func (h *Handle) ListAll() []string {
	if h == nil {
		return []string{}
	}
	names := make([]string, len(h.leaves))
	for i, d := range h.leaves {
		names[i] = d.name
	}
	return names
}

// Resolve returns the descriptor of the leaf with exactly the given name.
// Struct parents are not registered and do not resolve.
func (h *Handle) Resolve(name string) (*Descriptor, error) {
	d, err := h.resolve(name)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (h *Handle) resolve(name string) (*Descriptor, *Error) {
	if h != nil {
		if d, ok := h.index[name]; ok {
			return d, nil
		}
	}
	return nil, Errorf(ClassNotFound, "no such tunable parameter").WithParam(name)
}

// Leaves returns the leaf named name, or, if name is a struct parent, all
// leaves below it in declaration order. It returns nil if nothing matches.
func (h *Handle) Leaves(name string) []*Descriptor {
	if h == nil {
		return nil
	}
	if d, ok := h.index[name]; ok {
		return []*Descriptor{d}
	}
	prefix := name + "."
	var out []*Descriptor
	for _, d := range h.leaves {
		if strings.HasPrefix(d.name, prefix) {
			out = append(out, d)
		}
	}
	return out
}

// IsStructPrefix reports whether name is a struct parent of at least one
// leaf.
func (h *Handle) IsStructPrefix(name string) bool {
	if h == nil {
		return false
	}
	if _, ok := h.index[name]; ok {
		return false
	}
	prefix := name + "."
	for _, d := range h.leaves {
		if strings.HasPrefix(d.name, prefix) {
			return true
		}
	}
	return false
}

// Descriptors returns all leaf descriptors in declaration order.
func (h *Handle) Descriptors() []*Descriptor {
	if h == nil {
		return nil
	}
	return append([]*Descriptor(nil), h.leaves...)
}

// Logger returns the logger failures are reported to.
func (h *Handle) Logger() *zerolog.Logger {
	if h == nil {
		l := zerolog.Nop()
		return &l
	}
	return &h.logger
}

// fail logs err at error level and returns it.
func (h *Handle) fail(op string, err *Error) error {
	err.Operation = op
	h.Logger().Error().
		Str("param", err.Param).
		Str("class", string(err.Class)).
		Str("operation", op).
		Msg(err.Message)
	return err
}
