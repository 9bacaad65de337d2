package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Args is an insertion-ordered string-to-value mapping holding the arguments
// extracted from a model directive. Values are strings, numbers, bools, nil,
// []any, or nested *Args. JSON encoding follows insertion order.
type Args struct {
	keys   []string
	values map[string]any
}

// NewArgs returns an empty argument mapping.
func NewArgs() *Args {
	return &Args{values: make(map[string]any)}
}

// Set stores a value under key, preserving first-insertion order.
func (a *Args) Set(key string, value any) {
	if _, exists := a.values[key]; !exists {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

// Get returns the value stored under key.
func (a *Args) Get(key string) (any, bool) {
	if a == nil {
		return nil, false
	}
	v, ok := a.values[key]
	return v, ok
}

// Len returns the number of keys.
func (a *Args) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// Keys returns the keys in insertion order.
func (a *Args) Keys() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// String returns the value under key rendered as a string. Non-string scalars
// are formatted; absent keys yield "".
func (a *Args) String(key string) string {
	v, ok := a.Get(key)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}

// Int returns the value under key as an int. The directive parser produces
// float64 for numeric literals, so both are accepted.
func (a *Args) Int(key string) (int, bool) {
	v, ok := a.Get(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// marshalNoEscape encodes v as JSON without HTML-escaping <, > and &, so an
// argument value survives a render/re-parse round trip byte for byte.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalJSON encodes the mapping as a JSON object in insertion order.
func (a *Args) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalNoEscape(a.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Render returns a compact JSON rendering for logs and history entries.
func (a *Args) Render() string {
	if a == nil || a.Len() == 0 {
		return ""
	}
	b, err := marshalNoEscape(a)
	if err != nil {
		return ""
	}
	return string(b)
}
