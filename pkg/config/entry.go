package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tunekit/tunekit/pkg/tunable"
)

// ToValue converts a raw store entry into a value shaped like d.
//
// Accepted entries are numbers, booleans, numeric strings (columns separated
// by blanks or commas, rows by newlines or semicolons), lists of numbers and
// lists of rows. A flat entry holding exactly as many elements as d is
// reshaped row-major onto d; anything else must match d's shape.
func ToValue(entry any, d *tunable.Descriptor) (*tunable.Value, error) {
	v, err := toValue(entry, d)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func toValue(entry any, d *tunable.Descriptor) (*tunable.Value, *tunable.Error) {
	rows, err := entryRows(entry)
	if err != nil {
		return nil, conversionError(d, err)
	}

	v, err := gridValue(d.Type(), rows)
	if err != nil {
		return nil, conversionError(d, err)
	}

	dims := d.Dims()
	if (v.Rows == 1 || v.Cols == 1) && len(v.Data) == dims.Len() {
		v.Rows, v.Cols = dims.Rows, dims.Cols
	}
	if !d.Fits(v) {
		return nil, conversionError(d, fmt.Errorf("entry is %s, parameter is %s", v.Dims(), dims))
	}
	return v, nil
}

func conversionError(d *tunable.Descriptor, err error) *tunable.Error {
	return tunable.NewError(tunable.ClassConversionFailure, "cannot convert config entry", err).WithParam(d.Name())
}

// entryRows flattens an entry into a grid of numbers.
func entryRows(entry any) ([][]float64, error) {
	switch e := entry.(type) {
	case invalidEntry:
		return nil, e.err
	case nil:
		return nil, fmt.Errorf("entry is empty")
	case string:
		return parseText(e)
	case []float64:
		return [][]float64{append([]float64(nil), e...)}, nil
	case [][]float64:
		out := make([][]float64, len(e))
		for i, row := range e {
			out[i] = append([]float64(nil), row...)
		}
		return out, nil
	case []any:
		return listRows(e)
	case map[string]any:
		return nil, fmt.Errorf("entry is a mapping, not a value")
	default:
		x, err := number(entry)
		if err != nil {
			return nil, err
		}
		return [][]float64{{x}}, nil
	}
}

func listRows(list []any) ([][]float64, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("entry is an empty list")
	}
	if _, nested := list[0].([]any); !nested {
		row := make([]float64, len(list))
		for i, item := range list {
			x, err := number(item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			row[i] = x
		}
		return [][]float64{row}, nil
	}

	rows := make([][]float64, len(list))
	for r, item := range list {
		inner, ok := item.([]any)
		if !ok {
			return nil, fmt.Errorf("row %d is not a list", r)
		}
		row := make([]float64, len(inner))
		for c, cell := range inner {
			x, err := number(cell)
			if err != nil {
				return nil, fmt.Errorf("element (%d,%d): %w", r, c, err)
			}
			row[c] = x
		}
		rows[r] = row
	}
	return rows, nil
}

// parseText reads the textual value convention of parameter files:
// "1 2 3" is a row, newlines or semicolons start a new row.
func parseText(s string) ([][]float64, error) {
	var rows [][]float64
	for _, line := range strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == ';' }) {
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ' ' || r == '\t' || r == ',' || r == '\r'
		})
		if len(fields) == 0 {
			continue
		}
		row := make([]float64, len(fields))
		for i, f := range fields {
			x, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", f)
			}
			row[i] = x
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("entry is an empty string")
	}
	return rows, nil
}

func number(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", x)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported entry type %T", v)
	}
}

func gridValue(t tunable.ElemType, rows [][]float64) (*tunable.Value, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("entry holds no elements")
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return &tunable.Value{Type: t, Rows: len(rows), Cols: cols, Data: data}, nil
}

// FormatValue renders a leaf value in the textual convention parseText
// reads back.
func FormatValue(v *tunable.Value) string {
	var b strings.Builder
	for r := 0; r < v.Rows; r++ {
		if r > 0 {
			b.WriteByte('\n')
		}
		for c := 0; c < v.Cols; c++ {
			if c > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strconv.FormatFloat(v.At(r, c), 'g', -1, 64))
		}
	}
	return b.String()
}
