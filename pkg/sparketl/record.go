package sparketl

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrMissingField is wrapped in a ParseError when a required key is absent or null.
var ErrMissingField = errors.New("missing required field")

// Record is one JSON object decoded from a single line of a data file.
// Numbers are kept as json.Number until a typed accessor asks for them.
type Record struct {
	Path   string
	Line   int
	Fields map[string]any
}

// Has reports whether key is present, even if its value is null.
func (r Record) Has(key string) bool {
	_, ok := r.Fields[key]
	return ok
}

func (r Record) fieldError(key string, err error) error {
	return &ParseError{Path: r.Path, Line: r.Line, Field: key, Err: err}
}

func (r Record) lookup(key string) (any, bool, error) {
	v, ok := r.Fields[key]
	if !ok {
		return nil, false, r.fieldError(key, ErrMissingField)
	}
	return v, v != nil, nil
}

// String returns a required text field. Numeric values are rendered
// as text, so ids like 39 and "39" decode the same way.
func (r Record) String(key string) (string, error) {
	s, err := r.NullableString(key)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", r.fieldError(key, ErrMissingField)
	}
	return *s, nil
}

// NullableString returns a text field that must be present but may be null.
func (r Record) NullableString(key string) (*string, error) {
	v, set, err := r.lookup(key)
	if err != nil || !set {
		return nil, err
	}
	switch t := v.(type) {
	case string:
		return &t, nil
	case json.Number:
		s := t.String()
		return &s, nil
	default:
		return nil, r.fieldError(key, fmt.Errorf("expected string, got %T", v))
	}
}

// Int64 returns a required integer field.
func (r Record) Int64(key string) (int64, error) {
	v, set, err := r.lookup(key)
	if err != nil {
		return 0, err
	}
	if !set {
		return 0, r.fieldError(key, ErrMissingField)
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, r.fieldError(key, err)
	}
	return n, nil
}

// Float64 returns a required numeric field.
func (r Record) Float64(key string) (float64, error) {
	f, err := r.NullableFloat64(key)
	if err != nil {
		return 0, err
	}
	if f == nil {
		return 0, r.fieldError(key, ErrMissingField)
	}
	return *f, nil
}

// NullableFloat64 returns a numeric field that must be present but may be null.
func (r Record) NullableFloat64(key string) (*float64, error) {
	v, set, err := r.lookup(key)
	if err != nil || !set {
		return nil, err
	}
	f, err := toFloat64(v)
	if err != nil {
		return nil, r.fieldError(key, err)
	}
	return &f, nil
}

func toInt64(v any) (int64, error) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = t
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("expected integer, got %q", s)
	}
	// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("integer out of range: %q", s)
	}
	return int64(f), nil
}

func toFloat64(v any) (float64, error) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = t
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("expected number, got %q", s)
	}
	return f, nil
}
