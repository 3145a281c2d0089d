package modelimage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/tunekit/tunekit/pkg/config"
	"github.com/tunekit/tunekit/pkg/tunable"
)

// Image describes a model instance: its name and the parameters of its
// parameter block, with initial values.
type Image struct {
	Model  string  `yaml:"model" validate:"required"`
	Params []Param `yaml:"params" validate:"dive"`
}

// Param is one parameter of an Image. A Param with Members is a struct and
// carries neither a type nor a value.
type Param struct {
	Name    string  `yaml:"name" validate:"required,excludes=."`
	Type    string  `yaml:"type,omitempty" validate:"omitempty,elemtype"`
	Rows    int     `yaml:"rows,omitempty" validate:"gte=0"`
	Cols    int     `yaml:"cols,omitempty" validate:"gte=0"`
	Layout  string  `yaml:"layout,omitempty" validate:"omitempty,oneof=row-major column-major"`
	Value   any     `yaml:"value,omitempty"`
	Members []Param `yaml:"members,omitempty" validate:"dive"`
}

// IsStruct reports whether p is a struct parameter.
func (p Param) IsStruct() bool {
	return len(p.Members) > 0
}

func (p Param) dims() tunable.Dims {
	d := tunable.Dims{Rows: p.Rows, Cols: p.Cols}
	if d.Rows == 0 {
		d.Rows = 1
	}
	if d.Cols == 0 {
		d.Cols = 1
	}
	return d
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("elemtype", func(fl validator.FieldLevel) bool {
		_, err := tunable.ParseElemType(fl.Field().String())
		return err == nil
	})
	return v
}

// Parse decodes and validates a YAML image.
func Parse(r io.Reader) (*Image, error) {
	var img Image
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&img); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("model image is empty")
		}
		return nil, fmt.Errorf("failed to parse model image: %w", err)
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return &img, nil
}

// ReadFile parses the image stored at path.
func ReadFile(path string) (*Image, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model image: %w", err)
	}
	img, err := Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Validate checks field constraints and that every parameter is either a
// typed leaf or a struct with members.
func (img *Image) Validate() error {
	if err := validate.Struct(img); err != nil {
		return tunable.NewError(tunable.ClassInvalidMetadata, "model image validation failed", err)
	}
	return validateParams(img.Params, "")
}

func validateParams(params []Param, prefix string) error {
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		name := joinName(prefix, p.Name)
		if seen[p.Name] {
			return tunable.Errorf(tunable.ClassInvalidMetadata, "duplicate parameter").WithParam(name)
		}
		seen[p.Name] = true

		if p.IsStruct() {
			if p.Type != "" || p.Value != nil || p.Rows != 0 || p.Cols != 0 {
				return tunable.Errorf(tunable.ClassInvalidMetadata, "struct parameter cannot carry type, shape or value").WithParam(name)
			}
			if err := validateParams(p.Members, name); err != nil {
				return err
			}
			continue
		}
		if p.Type == "" {
			return tunable.Errorf(tunable.ClassInvalidMetadata, "parameter has neither type nor members").WithParam(name)
		}
	}
	return nil
}

// Open builds the parameter block, registers it and applies the initial
// values. An image without parameters yields a nil handle and no error.
func (img *Image) Open(opts ...tunable.Option) (*tunable.Handle, error) {
	mmi, err := img.Build()
	if err != nil {
		return nil, err
	}
	h, err := tunable.Begin(img.Model, mmi, opts...)
	if err != nil || h == nil {
		return nil, err
	}

	b := config.NewBridge(h, config.WithLogger(*h.Logger()), config.WithSource("image"))
	if failures := b.ReadAllOptional(img.values(), ""); failures > 0 {
		h.End()
		return nil, fmt.Errorf("model %s: %d initial values could not be applied", img.Model, failures)
	}
	return h, nil
}

// values collects the initial values by dotted parameter name.
func (img *Image) values() config.MapStore {
	out := config.MapStore{}
	var walk func(params []Param, prefix string)
	walk = func(params []Param, prefix string) {
		for _, p := range params {
			name := joinName(prefix, p.Name)
			if p.IsStruct() {
				walk(p.Members, name)
				continue
			}
			if p.Value != nil {
				out[name] = p.Value
			}
		}
	}
	walk(img.Params, "")
	return out
}

// Capture returns a copy of img whose values are the current contents of
// h. Parameters h does not know keep their values.
func (img *Image) Capture(h *tunable.Handle) *Image {
	out := &Image{Model: img.Model}
	out.Params = captureParams(img.Params, "", h)
	return out
}

func captureParams(params []Param, prefix string, h *tunable.Handle) []Param {
	out := make([]Param, len(params))
	for i, p := range params {
		name := joinName(prefix, p.Name)
		if p.IsStruct() {
			p.Members = captureParams(p.Members, name, h)
			out[i] = p
			continue
		}
		if d, err := h.Resolve(name); err == nil {
			if v, err := h.GetStructured(d.Name()); err == nil {
				p.Value = plainValue(v)
			}
		}
		out[i] = p
	}
	return out
}

// plainValue renders v as the YAML-friendly shape Parse accepts.
func plainValue(v *tunable.Value) any {
	d := v.Dims()
	switch {
	case d.IsScalar():
		return v.Data[0]
	case d.IsMatrix():
		rows := make([][]float64, d.Rows)
		for r := range rows {
			rows[r] = append([]float64(nil), v.Data[r*d.Cols:(r+1)*d.Cols]...)
		}
		return rows
	default:
		return append([]float64(nil), v.Data...)
	}
}

// Save writes img with the current values of h to w.
func (img *Image) Save(w io.Writer, h *tunable.Handle) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(img.Capture(h)); err != nil {
		return fmt.Errorf("failed to encode model image: %w", err)
	}
	return enc.Close()
}

// WriteFile saves img with the current values of h to path, replacing the
// file atomically.
func (img *Image) WriteFile(path string, h *tunable.Handle) error {
	var buf bytes.Buffer
	if err := img.Save(&buf, h); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write model image: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace model image: %w", err)
	}
	return nil
}

func joinName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func parseLayout(s string) tunable.Layout {
	if strings.EqualFold(s, "column-major") {
		return tunable.ColumnMajor
	}
	return tunable.RowMajor
}
