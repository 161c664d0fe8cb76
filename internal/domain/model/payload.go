package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
)

// Payload is the untyped webhook body. Accessors take JMESPath expressions so
// callers can express fallbacks across payload shapes, e.g. "locationId || location.id".
type Payload map[string]any

// Lookup evaluates expr against the payload. Invalid expressions and missing
// values both yield nil.
func (p Payload) Lookup(expr string) any {
	if len(p) == 0 || strings.TrimSpace(expr) == "" {
		return nil
	}
	v, err := jmespath.Search(expr, map[string]any(p))
	if err != nil {
		return nil
	}
	return v
}

// String returns the value at expr as a string. Numbers are formatted without
// exponent so numeric ids survive.
func (p Payload) String(expr string) string {
	switch v := p.Lookup(expr).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Strings returns the value at expr as a list of non-empty strings. A single
// string value yields a one-element list.
func (p Payload) Strings(expr string) []string {
	switch v := p.Lookup(expr).(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	}
	return nil
}

// Float returns the numeric value at expr. Numeric strings are accepted.
func (p Payload) Float(expr string) (float64, bool) {
	switch v := p.Lookup(expr).(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Int returns the value at expr truncated to an int.
func (p Payload) Int(expr string) (int, bool) {
	f, ok := p.Float(expr)
	return int(f), ok
}

// Time parses the value at expr as RFC 3339 or as Unix epoch milliseconds.
func (p Payload) Time(expr string) (time.Time, bool) {
	switch v := p.Lookup(expr).(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC(), true
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
	case float64:
		return time.UnixMilli(int64(v)).UTC(), true
	}
	return time.Time{}, false
}

// Clone returns a deep copy via a JSON round trip. Nil stays nil.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return Payload{}
	}
	var out Payload
	if err := json.Unmarshal(b, &out); err != nil {
		return Payload{}
	}
	return out
}
