// Package domain defines the core entities of the service: the result tree
// produced by analysis and consumed by rendering, and the market data types
// fetched from exchanges.
package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Value is one node of a result tree: an insertion-ordered mapping, an
// ordered sequence, or a scalar. Trees are built once by a producer and are
// never mutated by renderers.
type Value interface {
	value()
}

// Field is a single key/value entry of a Mapping.
type Field struct {
	Key   string
	Value Value
}

// Mapping is an insertion-ordered set of uniquely keyed fields.
type Mapping struct {
	fields []Field
}

// NewMapping creates an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{}
}

// Set appends a field, replacing the value in place if the key already
// exists. It returns the mapping so trees can be built fluently.
func (m *Mapping) Set(key string, v Value) *Mapping {
	for i := range m.fields {
		if m.fields[i].Key == key {
			m.fields[i].Value = v
			return m
		}
	}
	m.fields = append(m.fields, Field{Key: key, Value: v})
	return m
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (Value, bool) {
	for _, f := range m.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// GetMapping returns the nested mapping stored under key, if any.
func (m *Mapping) GetMapping(key string) (*Mapping, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	nested, ok := v.(*Mapping)
	return nested, ok
}

// GetSequence returns the sequence stored under key, if any.
func (m *Mapping) GetSequence(key string) (Sequence, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	seq, ok := v.(Sequence)
	return seq, ok
}

// Has reports whether key is present.
func (m *Mapping) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Fields returns the fields in insertion order.
func (m *Mapping) Fields() []Field {
	return m.fields
}

// Len returns the number of fields.
func (m *Mapping) Len() int {
	return len(m.fields)
}

// Sequence is an ordered list of values.
type Sequence []Value

// Scalar leaves.
type (
	String string
	Float  float64
	Int    int64
	Bool   bool
	Null   struct{}
)

func (*Mapping) value() {}
func (Sequence) value() {}
func (String) value()   {}
func (Float) value()    {}
func (Int) value()      {}
func (Bool) value()     {}
func (Null) value()     {}

// ScalarText returns the canonical string form of a scalar value. Floats
// that hold a whole number keep a trailing ".0" so that a percentage of 5
// renders as "5.0" in every text format. Null and non-scalar values render
// as the empty string.
func ScalarText(v Value) string {
	switch s := v.(type) {
	case String:
		return string(s)
	case Float:
		return formatFloat(float64(s))
	case Int:
		return strconv.FormatInt(int64(s), 10)
	case Bool:
		return strconv.FormatBool(bool(s))
	default:
		return ""
	}
}

func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// MarshalJSON encodes the mapping as a JSON object preserving field order.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range m.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON keeps the trailing ".0" of whole-valued floats, matching the
// text forms used by the other formats.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return []byte("null"), nil
	}
	return []byte(formatFloat(v)), nil
}

// MarshalJSON encodes Null as a JSON null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}
