// Package semconv loads and indexes OpenInference attribute definitions
// written in the OTel semantic convention YAML format, and checks span
// attributes against them.
package semconv

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Attribute type names beyond the OTel scalar and array types.
const (
	TypeObject     = "object"   // free-form JSON object; nested keys are not checked
	TypeObjectList = "object[]" // list of items described by the group named in Items
	TypeEnum       = "enum"
)

// AttributeType represents the type of an attribute.
// For enum types Value is "enum" and Members is populated.
type AttributeType struct {
	Value   string
	Members []EnumMember
}

// UnmarshalYAML accepts a type name or a mapping with enum members.
func (t *AttributeType) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		t.Value = node.Value
		return nil
	case yaml.MappingNode:
		var enum struct {
			Members []EnumMember `yaml:"members"`
		}
		if err := node.Decode(&enum); err != nil {
			return fmt.Errorf("attribute type at line %d: %w", node.Line, err)
		}
		t.Value, t.Members = TypeEnum, enum.Members
		return nil
	}
	return fmt.Errorf("attribute type at line %d: want a name or an enum mapping", node.Line)
}

// IsArray reports whether the type is a list of scalars, e.g. string[].
func (t AttributeType) IsArray() bool {
	return strings.HasSuffix(t.Value, "[]") && t.Value != TypeObjectList
}

// String renders the type for display; enums list their member values.
func (t AttributeType) String() string {
	if t.Value != TypeEnum {
		return t.Value
	}
	values := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		values = append(values, fmt.Sprint(m.Value))
	}
	return "enum{" + strings.Join(values, ",") + "}"
}

// EnumMember is a single member of an enum attribute type.
type EnumMember struct {
	ID         string `yaml:"id"`
	Value      any    `yaml:"value"`
	Brief      string `yaml:"brief"`
	Stability  string `yaml:"stability"`
	Deprecated any    `yaml:"deprecated"`
}

// RequirementLevel is the requirement level of an attribute within a group.
// Conditional levels keep the condition in Explanation.
type RequirementLevel struct {
	Level       string
	Explanation string
}

// UnmarshalYAML accepts a level name or a single-entry {level: explanation} mapping.
func (r *RequirementLevel) UnmarshalYAML(node *yaml.Node) error {
	switch {
	case node.Kind == yaml.ScalarNode:
		r.Level = node.Value
		return nil
	case node.Kind == yaml.MappingNode && len(node.Content) == 2:
		r.Level, r.Explanation = node.Content[0].Value, node.Content[1].Value
		return nil
	}
	return fmt.Errorf("requirement level at line %d: want a name or one level mapping", node.Line)
}

// Examples holds example values: a scalar, a flat list or nested lists.
type Examples struct {
	Values []any
}

// UnmarshalYAML accepts a scalar or a sequence; a scalar becomes a one-element list.
func (e *Examples) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		return node.Decode(&e.Values)
	}
	var v any
	if err := node.Decode(&v); err != nil {
		return fmt.Errorf("examples at line %d: %w", node.Line, err)
	}
	e.Values = []any{v}
	return nil
}

// Attribute is a single attribute definition, or a reference to one when Ref is set.
type Attribute struct {
	ID               string           `yaml:"id"`
	Type             AttributeType    `yaml:"type"`
	Items            string           `yaml:"items"` // item group ID for object[] attributes
	Brief            string           `yaml:"brief"`
	Note             string           `yaml:"note"`
	Stability        string           `yaml:"stability"`
	Examples         Examples         `yaml:"examples"`
	Deprecated       any              `yaml:"deprecated"`
	Ref              string           `yaml:"ref"`
	RequirementLevel RequirementLevel `yaml:"requirement_level"`
}

// DeprecationNote returns the replacement hint of a deprecated attribute.
func (a *Attribute) DeprecationNote() string {
	switch d := a.Deprecated.(type) {
	case string:
		return d
	case map[string]any:
		if note, ok := d["note"].(string); ok {
			return strings.TrimSpace(note)
		}
		if by, ok := d["renamed_to"].(string); ok {
			return "renamed to " + by
		}
	}
	return ""
}

// Group is an attribute group. Groups of type "item" describe the keys of
// list items and are only reachable through an object[] attribute.
type Group struct {
	ID          string      `yaml:"id"`
	Type        string      `yaml:"type"`
	DisplayName string      `yaml:"display_name"`
	Brief       string      `yaml:"brief"`
	Note        string      `yaml:"note"`
	Stability   string      `yaml:"stability"`
	Extends     string      `yaml:"extends"`
	SpanKind    string      `yaml:"span_kind"`
	Attributes  []Attribute `yaml:"attributes"`

	domain string // derived from the file path directory, not serialised
}

// IsItem reports whether the group describes list items.
func (g *Group) IsItem() bool {
	return g.Type == "item"
}
