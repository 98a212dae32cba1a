// Attribute linting against the registry
// Flat keys are resolved through object lists into their item groups
package semconv

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// FindingKind classifies a lint finding.
type FindingKind string

const (
	FindingUnknown    FindingKind = "unknown"
	FindingType       FindingKind = "type"
	FindingDeprecated FindingKind = "deprecated"
)

// Finding is one problem with one attribute key.
type Finding struct {
	Key     string      `json:"key" yaml:"key"`
	Kind    FindingKind `json:"kind" yaml:"kind"`
	Message string      `json:"message" yaml:"message"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s (%s)", f.Key, f.Message, f.Kind)
}

// Check lints flattened attributes. Keys outside the registry's namespaces
// are ignored. Findings are ordered by key.
func (r *Registry) Check(flat map[string]any) []Finding {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var findings []Finding
	for _, key := range keys {
		if !r.Governs(key) {
			continue
		}
		findings = append(findings, r.checkKey(key, strings.Split(key, "."), nil, flat[key])...)
	}
	return findings
}

// checkKey resolves segs against the top-level attributes (item == nil) or the
// attributes of an item group.
func (r *Registry) checkKey(key string, segs []string, item *Group, value any) []Finding {
	if attr := r.lookup(strings.Join(segs, "."), item); attr != nil {
		return checkValue(key, attr, value)
	}

	for i := 1; i < len(segs); i++ {
		attr := r.lookup(strings.Join(segs[:i], "."), item)
		if attr == nil {
			continue
		}
		switch attr.Type.Value {
		case TypeObject:
			return deprecation(key, attr)
		case TypeObjectList:
			if !isIndex(segs[i]) || i+1 >= len(segs) {
				return []Finding{{Key: key, Kind: FindingType, Message: fmt.Sprintf("%s is a list of objects", attr.ID)}}
			}
			group := r.ItemGroup(attr)
			if group == nil {
				return nil
			}
			return append(deprecation(key, attr), r.checkKey(key, segs[i+1:], group, value)...)
		}
	}

	where := "attribute"
	if item != nil {
		where = item.DisplayName + " key"
	}
	return []Finding{{Key: key, Kind: FindingUnknown, Message: "unknown " + strings.ToLower(where)}}
}

func (r *Registry) lookup(id string, item *Group) *Attribute {
	if item == nil {
		attr := r.byAttrID[id]
		if attr == nil || r.itemAttrs[id] {
			return nil
		}
		return attr
	}
	for i := range item.Attributes {
		if item.Attributes[i].ID == id {
			return &item.Attributes[i]
		}
	}
	return nil
}

func checkValue(key string, attr *Attribute, value any) []Finding {
	findings := deprecation(key, attr)
	if !matchesType(attr.Type, value) {
		findings = append(findings, Finding{
			Key:     key,
			Kind:    FindingType,
			Message: fmt.Sprintf("expected %s, got %s", attr.Type, describe(value)),
		})
	}
	return findings
}

func deprecation(key string, attr *Attribute) []Finding {
	if attr.Deprecated == nil {
		return nil
	}
	msg := "deprecated"
	if note := attr.DeprecationNote(); note != "" {
		msg += ": " + note
	}
	return []Finding{{Key: key, Kind: FindingDeprecated, Message: msg}}
}

func matchesType(t AttributeType, value any) bool {
	switch t.Value {
	case "string":
		_, ok := value.(string)
		return ok
	case "int":
		f, ok := value.(float64)
		return ok && f == math.Trunc(f)
	case "double":
		_, ok := value.(float64)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case TypeObject:
		switch value.(type) {
		case map[string]any, string:
			return true
		}
		return false
	case TypeObjectList:
		list, ok := value.([]any)
		if !ok {
			return false
		}
		for _, el := range list {
			if _, isObj := el.(map[string]any); !isObj {
				return false
			}
		}
		return true
	case TypeEnum:
		for _, m := range t.Members {
			if fmt.Sprint(m.Value) == fmt.Sprint(value) {
				return true
			}
		}
		return false
	}
	if t.IsArray() {
		list, ok := value.([]any)
		if !ok {
			return false
		}
		elem := AttributeType{Value: strings.TrimSuffix(t.Value, "[]")}
		for _, el := range list {
			if !matchesType(elem, el) {
				return false
			}
		}
		return true
	}
	// template[...] and unrecognised types accept any value.
	return true
}

func describe(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		if v == math.Trunc(v) {
			return "int"
		}
		return "double"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", value)
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
