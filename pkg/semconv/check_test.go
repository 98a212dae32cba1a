// Unit tests for attribute linting against the embedded OpenInference model
package semconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embedded(t *testing.T) *Registry {
	t.Helper()
	reg, err := LoadEmbedded()
	require.NoError(t, err)
	return reg
}

func TestCheck_CleanAttributes(t *testing.T) {
	t.Parallel()
	attrs := map[string]any{}
	attrs["openinference.span.kind"] = "LLM"
	attrs["llm.model_name"] = "gpt-4o"
	attrs["llm.token_count.total"] = 15.0
	attrs["llm.prompts"] = []any{"a", "b"}
	attrs["llm.input_messages.0.message.role"] = "user"
	attrs["llm.output_messages.0.message.tool_calls.0.tool_call.function.name"] = "search"
	attrs["retrieval.documents.1.document.score"] = 0.5
	attrs["metadata.customer.tier"] = "gold"
	attrs["llm.prompt_template.variables.city"] = "Paris"
	attrs["http.method"] = "GET"

	findings := embedded(t).Check(attrs)
	assert.Empty(t, findings)
}

func TestCheck_Findings(t *testing.T) {
	t.Parallel()
	attrs := map[string]any{}
	attrs["llm.model"] = "gpt-4o"
	attrs["llm.token_count.total"] = 1.5
	attrs["openinference.span.kind"] = "WORKFLOW"
	attrs["llm.input_messages.0.message.colour"] = "blue"
	attrs["llm.input_messages.0.message.function_call_name"] = "f"
	attrs["embedding.embeddings.0.embedding.vector"] = []any{0.1, "x"}
	attrs["retrieval.documents.first"] = "x"

	findings := embedded(t).Check(attrs)
	require.Len(t, findings, 7)

	byKey := map[string]Finding{}
	for _, f := range findings {
		byKey[f.Key+"/"+string(f.Kind)] = f
	}
	assert.Contains(t, byKey, "llm.model/unknown")
	assert.Equal(t, "expected int, got double", byKey["llm.token_count.total/type"].Message)
	assert.Contains(t, byKey, "openinference.span.kind/type")
	assert.Equal(t, "unknown message key", byKey["llm.input_messages.0.message.colour/unknown"].Message)
	assert.Equal(t, "deprecated: Use message.tool_calls.", byKey["llm.input_messages.0.message.function_call_name/deprecated"].Message)
	assert.Equal(t, "expected double[], got list", byKey["embedding.embeddings.0.embedding.vector/type"].Message)
	assert.Equal(t, "retrieval.documents is a list of objects", byKey["retrieval.documents.first/type"].Message)
}

func TestCheck_OrderedByKey(t *testing.T) {
	t.Parallel()
	findings := embedded(t).Check(map[string]any{
		"tool.zzz": 1.0,
		"llm.aaa":  1.0,
	})
	require.Len(t, findings, 2)
	assert.Equal(t, "llm.aaa", findings[0].Key)
	assert.Equal(t, "tool.zzz", findings[1].Key)
	assert.Equal(t, "llm.aaa: unknown attribute (unknown)", findings[0].String())
}

func TestMatchesType(t *testing.T) {
	t.Parallel()
	cases := []struct {
		typ   string
		value any
		want  bool
	}{
		{"string", "x", true},
		{"string", 1.0, false},
		{"int", 3.0, true},
		{"double", 3.0, true},
		{"boolean", true, true},
		{"boolean", "true", false},
		{"string[]", []any{"a"}, true},
		{"string[]", []any{"a", 1.0}, false},
		{"object", map[string]any{}, true},
		{"object", `{"a":1}`, true},
		{"object", 1.0, false},
		{"object[]", []any{map[string]any{}}, true},
		{"object[]", []any{"x"}, false},
		{"template[string]", 1.0, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, matchesType(AttributeType{Value: tc.typ}, tc.value), "%s %v", tc.typ, tc.value)
	}
}
