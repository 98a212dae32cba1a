package spanattr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupDocumentEvaluations(t *testing.T) {
	evals := []DocumentEvaluation{
		{DocumentPosition: 0, Evaluation: Evaluation{Name: "a"}},
		{DocumentPosition: 0, Evaluation: Evaluation{Name: "b"}},
		{DocumentPosition: 1, Evaluation: Evaluation{Name: "c"}},
	}
	groups := GroupDocumentEvaluations(evals)
	assert.Len(t, groups, 2)
	assert.Equal(t, []DocumentEvaluation{evals[0], evals[1]}, groups[0])
	assert.Equal(t, []DocumentEvaluation{evals[2]}, groups[1])
}

func TestGroupDocumentEvaluations_Empty(t *testing.T) {
	assert.Empty(t, GroupDocumentEvaluations(nil))
}

func TestIsDangerLabel(t *testing.T) {
	assert.True(t, IsDangerLabel("irrelevant"))
	assert.True(t, IsDangerLabel("hallucinated"))
	assert.False(t, IsDangerLabel("relevant"))
	assert.False(t, IsDangerLabel(""))
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "0.50", FormatFloat(0.5))
	assert.Equal(t, "-3.14", FormatFloat(-3.14159))
	assert.Equal(t, "1.00e+10", FormatFloat(1e10))
	assert.Equal(t, "NaN", FormatFloat(math.NaN()))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "12", FormatNumber(12))
	assert.Equal(t, "0.25", FormatNumber(0.25))
}

func TestPrettyJSON(t *testing.T) {
	out, mime := PrettyJSON(`{"a":1,"b":[1,2]}`, MimeJSON)
	assert.Equal(t, MimeJSON, mime)
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": [\n    1,\n    2\n  ]\n}", out)

	out, mime = PrettyJSON(`{"a": NaN}`, MimeJSON)
	assert.Equal(t, MimeText, mime, "invalid JSON falls back to text")
	assert.Equal(t, `{"a": NaN}`, out)

	out, mime = PrettyJSON("plain", MimeText)
	assert.Equal(t, MimeText, mime)
	assert.Equal(t, "plain", out)
}

func TestHasInvocationParameters(t *testing.T) {
	assert.False(t, HasInvocationParameters("{}"))
	assert.False(t, HasInvocationParameters(""))
	assert.False(t, HasInvocationParameters("[1]"))
	assert.True(t, HasInvocationParameters(`{"temperature": 0}`))
}

func TestFormatToolCall(t *testing.T) {
	assert.Equal(t, "search({\n  \"q\": \"go\"\n})", FormatToolCall("search", `{"q":"go"}`))
	assert.Equal(t, "search(not json)", FormatToolCall("search", "not json"))
}

func TestMessage_HasFunctionCall(t *testing.T) {
	assert.False(t, Message{FunctionCallName: "f"}.HasFunctionCall())
	assert.True(t, Message{FunctionCallName: "f", FunctionCallArgumentsJSON: "{}"}.HasFunctionCall())
}
