// Unit tests for attribute parsing and per-kind view extraction
// Covers parse failures, defaults for absent namespaces, and kind dispatch
package spanattr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_InvalidJSON(t *testing.T) {
	raw := `{"llm": {"model_name": "gpt-4"`
	_, err := Parse(raw)
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, raw, pe.Raw)
	assert.ErrorIs(t, err, ErrUnparsableAttributes)
	assert.Contains(t, err.Error(), "failed to parse span attributes")
}

func TestParse_NonObject(t *testing.T) {
	for _, raw := range []string{`[1,2]`, `"text"`, `42`, `null`, `true`} {
		_, err := Parse(raw)
		require.Error(t, err, raw)
		assert.ErrorIs(t, err, ErrUnparsableAttributes, raw)
		assert.Contains(t, err.Error(), "expected a JSON object", raw)
	}
}

func TestParseSpanKind(t *testing.T) {
	assert.Equal(t, KindLLM, ParseSpanKind("llm"))
	assert.Equal(t, KindRetriever, ParseSpanKind("RETRIEVER"))
	assert.Equal(t, KindAgent, ParseSpanKind(" agent "))
	assert.Equal(t, KindUnknown, ParseSpanKind("workflow"))
	assert.Equal(t, KindUnknown, ParseSpanKind(""))
}

func TestInterpret_ParseErrorKeepsRaw(t *testing.T) {
	raw := "not json at all"
	view, err := Interpret(KindLLM, raw)
	assert.Nil(t, view)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, raw, pe.Raw)
}

func TestInterpret_LLMFull(t *testing.T) {
	raw := `{"llm": {
		"model_name": "gpt-4",
		"input_messages": [
			{"message.role": "system", "message.content": "be brief"},
			{"message.role": "user", "message.content": "hi"},
			"not a message"
		],
		"output_messages": [{
			"message.role": "assistant",
			"message.tool_calls": [{"tool_call.function.name": "search", "tool_call.function.arguments": "{\"q\":\"x\"}"}]
		}],
		"prompts": ["a", "b"],
		"prompt_template": {"template": "hi {x}", "variables": {"x": 1}, "version": "v1"},
		"invocation_parameters": "{\"temperature\": 0.1}"
	}}`

	view, err := Interpret(KindLLM, raw)
	require.NoError(t, err)
	llm, ok := view.(*LLMView)
	require.True(t, ok)

	require.NotNil(t, llm.ModelName)
	assert.Equal(t, "gpt-4", *llm.ModelName)
	require.Len(t, llm.InputMessages, 2, "non-object messages are skipped")
	assert.Equal(t, "system", llm.InputMessages[0].Role)
	assert.Equal(t, "hi", llm.InputMessages[1].Content)
	require.Len(t, llm.OutputMessages, 1)
	require.Len(t, llm.OutputMessages[0].ToolCalls, 1)
	assert.Equal(t, "search", llm.OutputMessages[0].ToolCalls[0].FunctionName)
	assert.Equal(t, `{"q":"x"}`, llm.OutputMessages[0].ToolCalls[0].ArgumentsJSON)
	assert.Equal(t, []string{"a", "b"}, llm.Prompts)
	require.NotNil(t, llm.PromptTemplate)
	assert.Equal(t, "hi {x}", llm.PromptTemplate.Template)
	assert.Equal(t, "v1", llm.PromptTemplate.Version)
	assert.Equal(t, map[string]any{"x": float64(1)}, llm.PromptTemplate.Variables)
	assert.Equal(t, `{"temperature": 0.1}`, llm.InvocationParameters)
}

func TestInterpret_LLMDefaults(t *testing.T) {
	for _, raw := range []string{`{}`, `{"llm": "oops"}`, `{"llm": {}}`} {
		view, err := Interpret(KindLLM, raw)
		require.NoError(t, err, raw)
		llm, ok := view.(*LLMView)
		require.True(t, ok, raw)
		assert.Nil(t, llm.ModelName, raw)
		assert.Empty(t, llm.InputMessages, raw)
		assert.Empty(t, llm.OutputMessages, raw)
		assert.Empty(t, llm.Prompts, raw)
		assert.Nil(t, llm.PromptTemplate, raw)
		assert.Equal(t, "{}", llm.InvocationParameters, raw)
	}
}

func TestInterpret_LLMMalformedFields(t *testing.T) {
	raw := `{"llm": {"model_name": 7, "prompts": ["a", 1], "input_messages": {"x": 1}, "invocation_parameters": {"t": 1}}}`
	view, err := Interpret(KindLLM, raw)
	require.NoError(t, err)
	llm := view.(*LLMView)
	assert.Nil(t, llm.ModelName)
	assert.Empty(t, llm.Prompts, "mixed prompt list is discarded")
	assert.Empty(t, llm.InputMessages)
	assert.Equal(t, "{}", llm.InvocationParameters)
}

func TestInterpret_PromptTemplateValidation(t *testing.T) {
	tests := []struct {
		name     string
		template string
		accepted bool
	}{
		{"valid", `{"template": "hi {x}", "variables": {"x": 1}}`, true},
		{"missing variables", `{"template": "hi"}`, false},
		{"missing template", `{"variables": {}}`, false},
		{"template not string", `{"template": 1, "variables": {}}`, false},
		{"variables array", `{"template": "hi", "variables": [1]}`, false},
		{"variables null", `{"template": "hi", "variables": null}`, false},
		{"not object", `"hi {x}"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := Interpret(KindLLM, `{"llm": {"prompt_template": `+tt.template+`}}`)
			require.NoError(t, err)
			llm := view.(*LLMView)
			if tt.accepted {
				assert.NotNil(t, llm.PromptTemplate)
			} else {
				assert.Nil(t, llm.PromptTemplate)
			}
		})
	}
}

func TestInterpret_Retriever(t *testing.T) {
	raw := `{"retrieval": {"documents": [
		{"document.content": "x", "document.score": 0.9, "document.id": "d1", "document.metadata": {"source": "wiki"}},
		{"document.content": "y", "document.id": 12}
	]}}`
	view, err := Interpret(KindRetriever, raw)
	require.NoError(t, err)
	r, ok := view.(*RetrieverView)
	require.True(t, ok)
	require.Len(t, r.Documents, 2)
	assert.Equal(t, "x", r.Documents[0].Content)
	require.NotNil(t, r.Documents[0].Score)
	assert.InDelta(t, 0.9, *r.Documents[0].Score, 1e-9)
	assert.Equal(t, "d1", r.Documents[0].ID)
	assert.Equal(t, map[string]any{"source": "wiki"}, r.Documents[0].Metadata)
	assert.Equal(t, "12", r.Documents[1].ID)
	assert.Nil(t, r.Documents[1].Score)
	assert.Empty(t, r.DocumentEvaluations)
}

func TestInterpret_Reranker(t *testing.T) {
	raw := `{"reranker": {
		"query": "what is go",
		"input_documents": [{"document.content": "a"}, {"document.content": "b"}],
		"output_documents": [{"document.content": "b", "document.score": 2}],
		"model_name": "cross-encoder",
		"top_k": 1
	}}`
	view, err := Interpret(KindReranker, raw)
	require.NoError(t, err)
	r := view.(*RerankerView)
	assert.Equal(t, "what is go", r.Query)
	assert.Len(t, r.InputDocuments, 2)
	require.Len(t, r.OutputDocuments, 1)
	assert.Equal(t, "b", r.OutputDocuments[0].Content)
	require.NotNil(t, r.TopK)
	assert.Equal(t, 1, *r.TopK)
	require.NotNil(t, r.ModelName)
	assert.Equal(t, "cross-encoder", *r.ModelName)
}

func TestInterpret_RerankerIndependentDefaults(t *testing.T) {
	view, err := Interpret(KindReranker, `{"reranker": {"output_documents": [{"document.content": "z"}]}}`)
	require.NoError(t, err)
	r := view.(*RerankerView)
	assert.Empty(t, r.Query)
	assert.Empty(t, r.InputDocuments)
	assert.Len(t, r.OutputDocuments, 1)
	assert.Nil(t, r.TopK)
}

func TestInterpret_RerankerTopKMustBeAnInt(t *testing.T) {
	for _, raw := range []string{"2.7", "1e300", "-1e300", `"3"`, "9223372036854775808"} {
		t.Run(raw, func(t *testing.T) {
			view, err := Interpret(KindReranker, `{"reranker": {"top_k": `+raw+`}}`)
			require.NoError(t, err)
			assert.Nil(t, view.(*RerankerView).TopK)
		})
	}

	view, err := Interpret(KindReranker, `{"reranker": {"top_k": 5.0}}`)
	require.NoError(t, err)
	require.NotNil(t, view.(*RerankerView).TopK)
	assert.Equal(t, 5, *view.(*RerankerView).TopK)
}

func TestInterpret_Embedding(t *testing.T) {
	raw := `{"embedding": {"model_name": "text-embedding-3", "embeddings": [
		{"embedding.text": "hello", "embedding.vector": [0.1, 0.2]},
		{"embedding.text": "world", "embedding.vector": [0.1, "x"]}
	]}}`
	view, err := Interpret(KindEmbedding, raw)
	require.NoError(t, err)
	e := view.(*EmbeddingView)
	require.NotNil(t, e.ModelName)
	assert.Equal(t, "text-embedding-3", *e.ModelName)
	require.Len(t, e.Embeddings, 2)
	assert.Equal(t, "hello", e.Embeddings[0].Text)
	assert.Equal(t, []float64{0.1, 0.2}, e.Embeddings[0].Vector)
	assert.Nil(t, e.Embeddings[1].Vector, "mistyped vectors are dropped")
}

func TestInterpret_Tool(t *testing.T) {
	view, err := Interpret(KindTool, `{"tool": {}}`)
	require.NoError(t, err)
	assert.Nil(t, view, "empty tool namespace means no tool view")

	view, err = Interpret(KindTool, `{}`)
	require.NoError(t, err)
	assert.Nil(t, view)

	view, err = Interpret(KindTool, `{"tool": {"name": "search"}}`)
	require.NoError(t, err)
	tool, ok := view.(*ToolView)
	require.True(t, ok)
	assert.Equal(t, "search", tool.Name)
	assert.Empty(t, tool.Description)
	assert.Empty(t, tool.Parameters)
}

func TestInterpret_DefaultKinds(t *testing.T) {
	for _, kind := range []SpanKind{KindChain, KindAgent, KindUnknown, SpanKind("workflow")} {
		view, err := Interpret(kind, `{"llm": {"model_name": "ignored"}}`)
		require.NoError(t, err)
		io, ok := view.(*IOView)
		require.True(t, ok, kind)
		assert.Equal(t, ParseSpanKind(string(kind)), io.Kind())
	}
}

func TestInterpretSpan_ParseError(t *testing.T) {
	span := Span{Kind: KindLLM, Attributes: "{broken"}
	res := InterpretSpan(span)
	assert.Equal(t, DisplayRaw, res.Display)
	assert.Equal(t, "{broken", res.Raw)
	require.NotNil(t, res.Err)
	assert.Equal(t, "{broken", res.Err.Raw)
	assert.Nil(t, res.View)
}

func TestInterpretSpan_RetrieverEndToEnd(t *testing.T) {
	span := Span{
		Kind:                KindRetriever,
		Attributes:          `{"retrieval":{"documents":[{"document.content":"x"}]}}`,
		DocumentEvaluations: []DocumentEvaluation{},
	}
	res := InterpretSpan(span)
	assert.Equal(t, DisplayView, res.Display)
	r, ok := res.View.(*RetrieverView)
	require.True(t, ok)
	require.Len(t, r.Documents, 1)
	assert.Equal(t, "x", r.Documents[0].Content)
	assert.Empty(t, r.EvaluationsFor(0))
	assert.Empty(t, r.UnmatchedEvaluations)
}

func TestInterpretSpan_RetrieverEvaluations(t *testing.T) {
	evals := []DocumentEvaluation{
		{DocumentPosition: 0, Evaluation: Evaluation{Name: "a"}},
		{DocumentPosition: 3, Evaluation: Evaluation{Name: "far"}},
		{DocumentPosition: 0, Evaluation: Evaluation{Name: "b"}},
		{DocumentPosition: 1, Evaluation: Evaluation{Name: "c"}},
		{DocumentPosition: -1, Evaluation: Evaluation{Name: "neg"}},
	}
	span := Span{
		Kind:                KindRetriever,
		Attributes:          `{"retrieval":{"documents":[{"document.content":"x"},{"document.content":"y"}]}}`,
		DocumentEvaluations: evals,
	}
	r := InterpretSpan(span).View.(*RetrieverView)
	require.Len(t, r.EvaluationsFor(0), 2)
	assert.Equal(t, "a", r.EvaluationsFor(0)[0].Name)
	assert.Equal(t, "b", r.EvaluationsFor(0)[1].Name)
	require.Len(t, r.EvaluationsFor(1), 1)
	assert.Equal(t, "c", r.EvaluationsFor(1)[0].Name)
	assert.NotContains(t, r.DocumentEvaluations, 3)
	require.Len(t, r.UnmatchedEvaluations, 2)
	assert.Equal(t, "far", r.UnmatchedEvaluations[0].Name)
	assert.Equal(t, "neg", r.UnmatchedEvaluations[1].Name)
}

func TestInterpretSpan_LLMAttachesIO(t *testing.T) {
	in := &IOValue{Value: "hi", MimeType: MimeText}
	res := InterpretSpan(Span{Kind: KindLLM, Attributes: `{}`, Input: in})
	llm := res.View.(*LLMView)
	assert.Same(t, in, llm.Input)
	assert.Nil(t, llm.Output)
}

func TestInterpretSpan_DefaultFallbacks(t *testing.T) {
	out := &IOValue{Value: `{"a":1}`, MimeType: MimeJSON}
	res := InterpretSpan(Span{Kind: KindChain, Attributes: `{}`, Output: out})
	assert.Equal(t, DisplayIO, res.Display)
	assert.Empty(t, res.Raw)

	res = InterpretSpan(Span{Kind: KindChain, Attributes: `{"x": 1}`})
	assert.Equal(t, DisplayRaw, res.Display)
	assert.Equal(t, `{"x": 1}`, res.Raw)
	assert.Nil(t, res.Err, "missing IO is not a parse error")
}

func TestInterpretSpan_AbsentToolFallsBack(t *testing.T) {
	res := InterpretSpan(Span{Kind: KindTool, Attributes: `{"tool": {}}`, Input: &IOValue{Value: "q", MimeType: MimeText}})
	assert.Equal(t, DisplayIO, res.Display)
	io, ok := res.View.(*IOView)
	require.True(t, ok)
	assert.Equal(t, KindTool, io.Kind())
}

func TestInterpretSpan_Metadata(t *testing.T) {
	res := InterpretSpan(Span{Kind: KindLLM, Attributes: `{"metadata": {"user": "u1"}}`})
	assert.Equal(t, map[string]any{"user": "u1"}, res.Metadata)

	res = InterpretSpan(Span{Kind: KindLLM, Attributes: `{"metadata": "{\"user\": \"u1\"}"}`})
	assert.Nil(t, res.Metadata, "string metadata is not an object")
}

func TestSpan_HasException(t *testing.T) {
	assert.False(t, Span{}.HasException())
	assert.True(t, Span{Events: []SpanEvent{{Name: "start"}, {Name: "exception"}}}.HasException())
}
