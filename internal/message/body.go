package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Body is the opaque structured payload of a message: a string, number,
// boolean, nil, sequence or string-keyed mapping, nested arbitrarily.
// Its textual form is computed once so search does not re-serialize.
type Body struct {
	value  any
	text   string
	search string
}

// NewBody wraps a decoded JSON or YAML value.
func NewBody(v any) Body {
	v = normalizeValue(v)
	text := bodyText(v)
	search := text
	if _, ok := v.(string); !ok {
		if leaves := strings.Join(stringLeaves(v, nil), " "); leaves != "" {
			search = text + "\n" + leaves
		}
	}
	return Body{value: v, text: text, search: search}
}

// Value returns the underlying structured value.
func (b Body) Value() any {
	return b.value
}

// Text returns the serialized form used for keyword search. String bodies
// are returned as-is; everything else is compact JSON with sorted keys.
func (b Body) Text() string {
	return b.text
}

// SearchText is what keyword search matches against: Text followed by the
// body's keys and string values unescaped, so quotes and backslashes in
// nested strings match as typed.
func (b Body) SearchText() string {
	return b.search
}

// Field returns a top-level string field of a mapping body.
func (b Body) Field(key string) (string, bool) {
	m, ok := b.value.(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := m[key].(string)
	return s, ok
}

// MarshalJSON encodes the wrapped value.
func (b Body) MarshalJSON() ([]byte, error) {
	if b.value == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(b.value)
}

// MarshalYAML encodes the wrapped value.
func (b Body) MarshalYAML() (interface{}, error) {
	if b.value == nil {
		return map[string]any{}, nil
	}
	return b.value, nil
}

func bodyText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// stringLeaves collects mapping keys and string values in key order.
func stringLeaves(v any, out []string) []string {
	switch t := v.(type) {
	case string:
		out = append(out, t)
	case []any:
		for _, item := range t {
			out = stringLeaves(item, out)
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, k)
			out = stringLeaves(t[k], out)
		}
	}
	return out
}

// normalizeValue converts YAML-decoded shapes into JSON-compatible ones:
// interface-keyed maps become string-keyed and timestamps become strings.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return v
	}
}
