// Kind dispatch from a span's attribute blob to its structured view
// Every extractor defaults missing fields; only the top-level parse can fail
package spanattr

// Display tells the presentation layer which fallback to show.
type Display string

const (
	// DisplayView renders the kind-specific view.
	DisplayView Display = "view"
	// DisplayIO renders the span input and output.
	DisplayIO Display = "io"
	// DisplayRaw renders the raw attribute string.
	DisplayRaw Display = "raw"
)

// Interpretation is the span-level result of interpreting attributes.
type Interpretation struct {
	Kind    SpanKind `json:"kind" yaml:"kind"`
	Display Display  `json:"display" yaml:"display"`
	View    View     `json:"view,omitempty" yaml:"view,omitempty"`
	// Metadata is the top-level metadata attribute, when it is an object.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	// Raw is set whenever Display is DisplayRaw.
	Raw string      `json:"raw,omitempty" yaml:"raw,omitempty"`
	Err *ParseError `json:"-" yaml:"-"`
}

// Interpret decodes raw and extracts the view for kind.
//
// The returned error is nil or a *ParseError. A nil View with a nil error
// means the kind-specific view is absent (a tool span with no tool attributes).
func Interpret(kind SpanKind, raw string) (View, error) {
	attrs, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return extract(ParseSpanKind(string(kind)), attrs), nil
}

// extract dispatches on kind. It returns a nil View only for an absent tool view.
func extract(kind SpanKind, attrs AttributeObject) View {
	switch kind {
	case KindLLM:
		return extractLLM(attrs.Object(PrefixLLM))
	case KindRetriever:
		return extractRetriever(attrs.Object(PrefixRetrieval))
	case KindReranker:
		return extractReranker(attrs.Object(PrefixReranker))
	case KindEmbedding:
		return extractEmbedding(attrs.Object(PrefixEmbedding))
	case KindTool:
		if v := extractTool(attrs.Object(PrefixTool)); v != nil {
			return v
		}
		return nil
	default:
		return &IOView{SpanKind: kind}
	}
}

func extractLLM(llm AttributeObject) *LLMView {
	v := &LLMView{
		ModelName:            optionalString(llm, LLMModelName),
		InputMessages:        messagesAt(llm, LLMInputMessages),
		OutputMessages:       messagesAt(llm, LLMOutputMessages),
		Prompts:              []string{},
		PromptTemplate:       promptTemplateFrom(llm[LLMPromptTemplate]),
		InvocationParameters: emptyObjectLiteral,
	}
	if prompts, ok := asStringList(llm[LLMPrompts]); ok {
		v.Prompts = prompts
	}
	if params, ok := asString(llm[LLMInvocationParameters]); ok && params != "" {
		v.InvocationParameters = params
	}
	return v
}

func extractRetriever(retrieval AttributeObject) *RetrieverView {
	return &RetrieverView{
		Documents:           documentsAt(retrieval, RetrievalDocuments),
		DocumentEvaluations: map[int][]DocumentEvaluation{},
	}
}

func extractReranker(reranker AttributeObject) *RerankerView {
	v := &RerankerView{
		Query:           stringField(reranker, RerankerQuery),
		InputDocuments:  documentsAt(reranker, RerankerInputDocuments),
		OutputDocuments: documentsAt(reranker, RerankerOutputDocuments),
		ModelName:       optionalString(reranker, RerankerModelName),
	}
	if k, ok := asInt(reranker[RerankerTopK]); ok {
		v.TopK = &k
	}
	return v
}

func extractEmbedding(embedding AttributeObject) *EmbeddingView {
	return &EmbeddingView{
		Embeddings: embeddingsAt(embedding, EmbeddingEmbeddings),
		ModelName:  optionalString(embedding, EmbeddingModelName),
	}
}

// extractTool returns nil when the tool namespace is absent or empty.
func extractTool(tool AttributeObject) *ToolView {
	if len(tool) == 0 {
		return nil
	}
	return &ToolView{
		Name:        stringField(tool, ToolName),
		Description: stringField(tool, ToolDescription),
		Parameters:  stringField(tool, ToolParameters),
	}
}

// InterpretSpan interprets a span's attributes and attaches the span-level data
// the views need: input/output, document evaluations and retrieval metrics.
func InterpretSpan(span Span) Interpretation {
	kind := ParseSpanKind(string(span.Kind))
	attrs, err := Parse(span.Attributes)
	if err != nil {
		pe, _ := err.(*ParseError)
		return Interpretation{Kind: kind, Display: DisplayRaw, Raw: span.Attributes, Err: pe}
	}

	result := Interpretation{Kind: kind, Display: DisplayView}
	if md, ok := asObject(attrs[PrefixMetadata]); ok {
		result.Metadata = md
	}

	switch v := extract(kind, attrs).(type) {
	case *LLMView:
		v.Input, v.Output = span.Input, span.Output
		result.View = v
	case *RetrieverView:
		v.DocumentEvaluations, v.UnmatchedEvaluations = splitByPosition(span.DocumentEvaluations, len(v.Documents))
		v.RetrievalMetrics = span.DocumentRetrievalMetrics
		v.Input = span.Input
		result.View = v
	case nil:
		result.View, result.Display, result.Raw = ioFallback(kind, span)
	case *IOView:
		result.View, result.Display, result.Raw = ioFallback(kind, span)
	default:
		result.View = v
	}
	return result
}

// ioFallback shows input/output when either exists, otherwise the raw attributes.
func ioFallback(kind SpanKind, span Span) (View, Display, string) {
	v := &IOView{SpanKind: kind, Input: span.Input, Output: span.Output}
	if v.IsMissingIO() {
		return v, DisplayRaw, span.Attributes
	}
	return v, DisplayIO, ""
}
