// Safe decoding of the JSON attribute blob and structural type guards
// Decoding failures are reported as values carrying the raw input, never as panics
package spanattr

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrUnparsableAttributes matches every *ParseError via errors.Is.
var ErrUnparsableAttributes = errors.New("un-parsable attributes")

// ParseError reports an attribute blob that is not a JSON object.
// Raw holds the original string, unmodified, for fallback display.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse span attributes: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrUnparsableAttributes) hold for any ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrUnparsableAttributes
}

// AttributeObject is the decoded attribute blob: string keys to arbitrary JSON values.
type AttributeObject map[string]any

// Parse decodes raw as a JSON object. Any other outcome, including valid JSON
// that is not an object, yields a *ParseError.
func Parse(raw string) (AttributeObject, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("expected a JSON object, got %s", jsonTypeName(v))}
	}
	return AttributeObject(obj), nil
}

// Object returns the sub-object stored under key, or nil when it is absent
// or not an object.
func (a AttributeObject) Object(key string) AttributeObject {
	if a == nil {
		return nil
	}
	obj, _ := asObject(a[key])
	return obj
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func asObject(v any) (AttributeObject, bool) {
	switch o := v.(type) {
	case map[string]any:
		return AttributeObject(o), true
	case AttributeObject:
		return o, true
	}
	return nil, false
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// asInt accepts integral numbers that fit in an int.
func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok || f != math.Trunc(f) || f < math.MinInt || f >= math.MaxInt {
		return 0, false
	}
	return int(f), true
}

func asList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// asStringList accepts a list only if every element is a string.
func asStringList(v any) ([]string, bool) {
	l, ok := asList(v)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(l))
	for _, item := range l {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// stringField returns the string at key, or "" when absent or mistyped.
func stringField(obj AttributeObject, key string) string {
	s, _ := asString(obj[key])
	return s
}

// optionalString returns a pointer to the string at key, or nil.
func optionalString(obj AttributeObject, key string) *string {
	s, ok := asString(obj[key])
	if !ok {
		return nil
	}
	return &s
}
