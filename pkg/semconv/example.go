// Example values derived from attribute definitions
package semconv

import (
	"fmt"
	"slices"
	"strings"
)

// Example returns a representative value for attr: its first scalar example,
// the first live enum member, or the zero value of its type.
func Example(attr *Attribute) any {
	typ := attr.Type.Value
	switch {
	case typ == TypeEnum:
		if values := enumValues(attr); len(values) > 0 {
			return values[0]
		}
		if len(attr.Type.Members) > 0 {
			return attr.Type.Members[0].Value
		}
		return nil
	case attr.Type.IsArray():
		for _, v := range attr.Examples.Values {
			if list, ok := v.([]any); ok {
				return list
			}
		}
		if len(attr.Examples.Values) > 0 {
			return attr.Examples.Values
		}
		return []any{}
	}

	if examples := scalarExamples(attr); len(examples) > 0 {
		return examples[0]
	}
	switch typ {
	case "string":
		return ""
	case "int":
		return 0
	case "double":
		return 0.0
	case "boolean":
		return false
	case TypeObject:
		return map[string]any{}
	case TypeObjectList:
		return []any{}
	}
	return nil
}

// FormatExample renders Example(attr) for tables; empty and zero values print as "".
func FormatExample(attr *Attribute) string {
	switch v := Example(attr).(type) {
	case nil, map[string]any:
		return ""
	case []any:
		if len(v) == 0 {
			return ""
		}
		parts := make([]string, len(v))
		for i, el := range v {
			parts[i] = fmt.Sprint(el)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return v
	default:
		if len(scalarExamples(attr)) == 0 && attr.Type.Value != TypeEnum {
			return ""
		}
		return fmt.Sprint(v)
	}
}

// EnumValues returns the values of live enum members in sorted order.
func EnumValues(attr *Attribute) []any {
	values := enumValues(attr)
	slices.SortFunc(values, func(a, b any) int {
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	})
	return values
}

func scalarExamples(attr *Attribute) []any {
	result := make([]any, 0, len(attr.Examples.Values))
	for _, v := range attr.Examples.Values {
		if _, ok := v.([]any); ok {
			continue
		}
		result = append(result, v)
	}
	return result
}

func enumValues(attr *Attribute) []any {
	result := make([]any, 0, len(attr.Type.Members))
	for _, m := range attr.Type.Members {
		if m.Deprecated != nil {
			continue
		}
		result = append(result, m.Value)
	}
	return result
}
