// Unit tests for span parsing across Phoenix, stdouttrace and OTLP formats
// Covers format detection, OpenInference attribute conversion, and error handling
package traceimport

import (
	"strings"
	"testing"
	"time"

	"github.com/andrewh/tracelens/pkg/spanattr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const phoenixResponse = `{"data":{"spans":{"edges":[
{"span":{"context":{"spanId":"s1","traceId":"t1"},"name":"query","spanKind":"chain","statusCode":"OK","statusMessage":"","startTime":"2024-05-01T00:00:00Z","parentId":null,"latencyMs":1200.5,"input":{"value":"what?","mimeType":"text"},"output":null,"attributes":"{}","events":[],"spanEvaluations":[{"name":"correctness","label":"correct","score":1,"explanation":null}],"documentEvaluations":[],"documentRetrievalMetrics":[]}},
{"span":{"context":{"spanId":"s2","traceId":"t1"},"name":"generate","spanKind":"llm","statusCode":"OK","startTime":"2024-05-01T00:00:00.1Z","parentId":"s1","latencyMs":800,"tokenCountTotal":15,"tokenCountPrompt":10,"tokenCountCompletion":5,"attributes":"{\"llm\":{\"model_name\":\"gpt-4\"}}","events":[]}},
{"span":{"context":{"spanId":"s3","traceId":"t1"},"name":"retrieve","spanKind":"retriever","statusCode":"ERROR","statusMessage":"index offline","startTime":"2024-05-01T00:00:00.05Z","parentId":"s1","latencyMs":40,"attributes":"not json","events":[{"name":"exception","message":"index offline","timestamp":"2024-05-01T00:00:00.09Z"}],"documentEvaluations":[{"name":"relevance","label":"irrelevant","score":0,"documentPosition":2}],"documentRetrievalMetrics":[{"evaluationName":"relevance","ndcg":0.5,"precision":null,"hit":1}]}}
]}}}`

func TestDetectFormat_Phoenix(t *testing.T) {
	format, err := detectFormat([]byte(phoenixResponse))
	require.NoError(t, err)
	assert.Equal(t, FormatPhoenix, format)

	format, err = detectFormat([]byte(`[{"context":{"spanId":"a","traceId":"b"}}]`))
	require.NoError(t, err)
	assert.Equal(t, FormatPhoenix, format)
}

func TestDetectFormat_Stdouttrace(t *testing.T) {
	input := `{"Name":"op","SpanContext":{"TraceID":"abc","SpanID":"def"},"Parent":{"TraceID":"abc","SpanID":"000"},"StartTime":"2024-01-01T00:00:00Z","EndTime":"2024-01-01T00:00:01Z","Attributes":[],"Status":{"Code":"Unset"}}`
	format, err := detectFormat([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, FormatStdouttrace, format)
}

func TestDetectFormat_OTLP(t *testing.T) {
	input := `{"resourceSpans":[{"resource":{},"scopeSpans":[]}]}`
	format, err := detectFormat([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, FormatOTLP, format)
}

func TestDetectFormat_Unknown(t *testing.T) {
	_, err := detectFormat([]byte(`{"something":"else"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot detect format")

	_, err = detectFormat([]byte(`not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot detect format")
}

func TestParseSpans_EmptyInput(t *testing.T) {
	_, err := ParseSpans(strings.NewReader("  \n"), FormatAuto)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no spans found")
}

func TestParseSpans_UnknownFormat(t *testing.T) {
	_, err := ParseSpans(strings.NewReader(`{}`), Format("csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestParsePhoenix_Response(t *testing.T) {
	spans, err := ParseSpans(strings.NewReader(phoenixResponse), FormatAuto)
	require.NoError(t, err)
	require.Len(t, spans, 3)

	root := spans[0]
	assert.Equal(t, "s1", root.SpanID)
	assert.Equal(t, "t1", root.TraceID)
	assert.True(t, root.IsRoot())
	assert.Equal(t, spanattr.KindChain, root.Kind)
	assert.Equal(t, spanattr.StatusOK, root.StatusCode)
	assert.Equal(t, 1200500*time.Microsecond, root.Latency())
	require.NotNil(t, root.Input)
	assert.Equal(t, "what?", root.Input.Value)
	assert.Nil(t, root.Output)
	require.Len(t, root.SpanEvaluations, 1)
	assert.Equal(t, "correctness", root.SpanEvaluations[0].Name)
	assert.Nil(t, root.SpanEvaluations[0].Explanation)

	llm := spans[1]
	assert.Equal(t, "s1", llm.ParentID)
	assert.Equal(t, spanattr.KindLLM, llm.Kind)
	require.NotNil(t, llm.TokenCountTotal)
	assert.Equal(t, int64(15), *llm.TokenCountTotal)

	retriever := spans[2]
	assert.Equal(t, spanattr.StatusError, retriever.StatusCode)
	assert.Equal(t, "not json", retriever.Attributes)
	assert.True(t, retriever.HasException())
	require.Len(t, retriever.DocumentEvaluations, 1)
	assert.Equal(t, 2, retriever.DocumentEvaluations[0].DocumentPosition)
	assert.Equal(t, "irrelevant", *retriever.DocumentEvaluations[0].Label)
	require.Len(t, retriever.DocumentRetrievalMetrics, 1)
	assert.Nil(t, retriever.DocumentRetrievalMetrics[0].Precision)
	assert.Equal(t, 1.0, *retriever.DocumentRetrievalMetrics[0].Hit)
}

func TestParsePhoenix_ShapesWithoutData(t *testing.T) {
	withoutData := `{"spans":{"edges":[{"node":{"context":{"spanId":"a","traceId":"t"},"spanKind":"TOOL","statusCode":"weird"}}]}}`
	spans, err := ParseSpans(strings.NewReader(withoutData), FormatPhoenix)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, spanattr.KindTool, spans[0].Kind)
	assert.Equal(t, spanattr.StatusUnset, spans[0].StatusCode)

	bare := `[{"context":{"spanId":"a","traceId":"t"},"spanKind":"agent"},{"context":{"spanId":"b","traceId":"t"},"parentId":"a","spanKind":"something"}]`
	spans, err = ParseSpans(strings.NewReader(bare), FormatAuto)
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.Equal(t, spanattr.KindAgent, spans[0].Kind)
	assert.Equal(t, spanattr.KindUnknown, spans[1].Kind)
}

func TestParseStdouttrace_OpenInference(t *testing.T) {
	line := `{"Name":"embed","SpanContext":{"TraceID":"aaa","SpanID":"bbb"},"Parent":{"TraceID":"aaa","SpanID":"0000000000000000"},"StartTime":"2024-01-01T00:00:00Z","EndTime":"2024-01-01T00:00:00.005Z","Attributes":[{"Key":"openinference.span.kind","Value":{"Type":"STRING","Value":"EMBEDDING"}},{"Key":"embedding.model_name","Value":{"Type":"STRING","Value":"ada"}},{"Key":"embedding.embeddings.0.embedding.text","Value":{"Type":"STRING","Value":"hello"}},{"Key":"embedding.embeddings.0.embedding.vector","Value":{"Type":"FLOAT64SLICE","Value":[0.1,0.2]}}],"Events":[{"Name":"exception","Attributes":[{"Key":"exception.message","Value":{"Type":"STRING","Value":"oops"}}],"Time":"2024-01-01T00:00:00.004Z"}],"Status":{"Code":"Error","Description":"oops"}}`

	spans, err := ParseSpans(strings.NewReader(line), FormatAuto)
	require.NoError(t, err)
	require.Len(t, spans, 1)

	s := spans[0]
	assert.Equal(t, "aaa", s.TraceID)
	assert.Empty(t, s.ParentID, "all-zeros parent should be empty")
	assert.Equal(t, spanattr.KindEmbedding, s.Kind)
	assert.Equal(t, spanattr.StatusError, s.StatusCode)
	assert.Equal(t, "oops", s.StatusMessage)
	assert.Equal(t, 5*time.Millisecond, s.Latency())
	require.Len(t, s.Events, 1)
	assert.Equal(t, "oops", s.Events[0].Message)

	view, err := spanattr.Interpret(s.Kind, s.Attributes)
	require.NoError(t, err)
	emb, ok := view.(*spanattr.EmbeddingView)
	require.True(t, ok)
	assert.Equal(t, "ada", *emb.ModelName)
	require.Len(t, emb.Embeddings, 1)
	assert.Equal(t, "hello", emb.Embeddings[0].Text)
	assert.Equal(t, []float64{0.1, 0.2}, emb.Embeddings[0].Vector)
}

func TestParseStdouttrace_BadLine(t *testing.T) {
	input := `{"Name":"a","SpanContext":{"TraceID":"t","SpanID":"s"}}` + "\n" + `{broken`
	_, err := ParseSpans(strings.NewReader(input), FormatStdouttrace)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseOTLP_OpenInference(t *testing.T) {
	// Base64 "AQIDBAUGBwgJCgsMDQ4PEA==" decodes to bytes [1..16], hex = "0102030405060708090a0b0c0d0e0f10"
	input := `{
		"resourceSpans": [{
			"resource": {"attributes": [{"key": "service.name", "value": {"stringValue": "rag"}}]},
			"scopeSpans": [{"scope": {"name": "openinference"}, "spans": [{
				"traceId": "AQIDBAUGBwgJCgsMDQ4PEA==",
				"spanId": "AQIDBAUGBwg=",
				"name": "ChatCompletion",
				"startTimeUnixNano": "1700000000000000000",
				"endTimeUnixNano": "1700000000030000000",
				"status": {"code": "STATUS_CODE_ERROR", "message": "rate limited"},
				"attributes": [
					{"key": "openinference.span.kind", "value": {"stringValue": "LLM"}},
					{"key": "llm.model_name", "value": {"stringValue": "gpt-4o"}},
					{"key": "llm.input_messages.0.message.role", "value": {"stringValue": "system"}},
					{"key": "llm.input_messages.1.message.role", "value": {"stringValue": "user"}},
					{"key": "llm.input_messages.1.message.content", "value": {"stringValue": "hi"}},
					{"key": "llm.invocation_parameters", "value": {"stringValue": "{\"temperature\":0.2}"}},
					{"key": "llm.token_count.prompt", "value": {"intValue": "12"}},
					{"key": "llm.token_count.completion", "value": {"intValue": "3"}},
					{"key": "input.value", "value": {"stringValue": "{\"q\":1}"}},
					{"key": "input.mime_type", "value": {"stringValue": "application/json"}},
					{"key": "metadata", "value": {"stringValue": "{\"user\":\"u1\"}"}}
				],
				"events": [{"name": "exception", "timeUnixNano": "1700000000020000000",
					"attributes": [{"key": "exception.message", "value": {"stringValue": "429"}}]}]
			}]}]
		}]
	}`

	spans, err := ParseSpans(strings.NewReader(input), FormatAuto)
	require.NoError(t, err)
	require.Len(t, spans, 1)

	s := spans[0]
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", s.TraceID)
	assert.Equal(t, "0102030405060708", s.SpanID)
	assert.True(t, s.IsRoot())
	assert.Equal(t, spanattr.KindLLM, s.Kind)
	assert.Equal(t, spanattr.StatusError, s.StatusCode)
	assert.Equal(t, "rate limited", s.StatusMessage)
	assert.Equal(t, 30*time.Millisecond, s.Latency())
	require.NotNil(t, s.Input)
	assert.Equal(t, spanattr.MimeJSON, s.Input.MimeType)
	require.NotNil(t, s.TokenCountTotal)
	assert.Equal(t, int64(15), *s.TokenCountTotal, "total is derived from prompt and completion")
	require.Len(t, s.Events, 1)
	assert.Equal(t, "429", s.Events[0].Message)

	res := spanattr.InterpretSpan(s)
	require.Nil(t, res.Err)
	assert.Equal(t, spanattr.DisplayView, res.Display)
	llm, ok := res.View.(*spanattr.LLMView)
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", *llm.ModelName)
	require.Len(t, llm.InputMessages, 2)
	assert.Equal(t, "system", llm.InputMessages[0].Role)
	assert.Equal(t, "hi", llm.InputMessages[1].Content)
	assert.JSONEq(t, `{"temperature":0.2}`, llm.InvocationParameters)
	assert.Equal(t, map[string]any{"user": "u1"}, res.Metadata)
}

func TestParseOTLP_Invalid(t *testing.T) {
	_, err := ParseSpans(strings.NewReader(`{"resourceSpans": "nope"}`), FormatOTLP)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing OTLP")
}

func TestIsZeroID(t *testing.T) {
	assert.True(t, isZeroID(""))
	assert.True(t, isZeroID("0000000000000000"))
	assert.False(t, isZeroID("0000000000000001"))
}
