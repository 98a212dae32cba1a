// Kind-specific views produced by the interpreter, one variant per span kind
// Absent values are uniform: empty slices, nil pointers, empty strings
package spanattr

// View is a kind-specific projection of a span's attributes.
// The concrete type is one of *LLMView, *RetrieverView, *RerankerView,
// *EmbeddingView, *ToolView or *IOView.
type View interface {
	Kind() SpanKind
	view()
}

// LLMView holds the llm namespace of an llm span.
type LLMView struct {
	ModelName            *string         `json:"modelName,omitempty" yaml:"model_name,omitempty"`
	InputMessages        []Message       `json:"inputMessages" yaml:"input_messages"`
	OutputMessages       []Message       `json:"outputMessages" yaml:"output_messages"`
	Prompts              []string        `json:"prompts" yaml:"prompts"`
	PromptTemplate       *PromptTemplate `json:"promptTemplate,omitempty" yaml:"prompt_template,omitempty"`
	InvocationParameters string          `json:"invocationParameters" yaml:"invocation_parameters"`

	// Input and Output are attached by InterpretSpan.
	Input  *IOValue `json:"input,omitempty" yaml:"input,omitempty"`
	Output *IOValue `json:"output,omitempty" yaml:"output,omitempty"`
}

// RetrieverView holds the retrieved documents and their evaluations.
type RetrieverView struct {
	Documents []Document `json:"documents" yaml:"documents"`

	// DocumentEvaluations maps a document index to its evaluations in input order.
	// Only indices within Documents appear here.
	DocumentEvaluations map[int][]DocumentEvaluation `json:"documentEvaluations" yaml:"document_evaluations"`
	// UnmatchedEvaluations are evaluations whose position has no document.
	UnmatchedEvaluations []DocumentEvaluation `json:"unmatchedEvaluations,omitempty" yaml:"unmatched_evaluations,omitempty"`
	RetrievalMetrics     []RetrievalMetric    `json:"retrievalMetrics,omitempty" yaml:"retrieval_metrics,omitempty"`

	Input *IOValue `json:"input,omitempty" yaml:"input,omitempty"`
}

// EvaluationsFor returns the evaluations attached to the document at index i.
func (v *RetrieverView) EvaluationsFor(i int) []DocumentEvaluation {
	return v.DocumentEvaluations[i]
}

// RerankerView holds the reranker query and its input and output documents.
type RerankerView struct {
	Query           string     `json:"query" yaml:"query"`
	InputDocuments  []Document `json:"inputDocuments" yaml:"input_documents"`
	OutputDocuments []Document `json:"outputDocuments" yaml:"output_documents"`
	ModelName       *string    `json:"modelName,omitempty" yaml:"model_name,omitempty"`
	TopK            *int       `json:"topK,omitempty" yaml:"top_k,omitempty"`
}

// EmbeddingView holds the embedded texts of an embedding span.
type EmbeddingView struct {
	Embeddings []Embedding `json:"embeddings" yaml:"embeddings"`
	ModelName  *string     `json:"modelName,omitempty" yaml:"model_name,omitempty"`
}

// ToolView describes the tool invoked by a tool span.
type ToolView struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Parameters  string `json:"parameters" yaml:"parameters"`
}

// IOView is the fallback for kinds without a dedicated view.
type IOView struct {
	SpanKind SpanKind `json:"kind" yaml:"kind"`
	Input    *IOValue `json:"input,omitempty" yaml:"input,omitempty"`
	Output   *IOValue `json:"output,omitempty" yaml:"output,omitempty"`
}

// IsMissingIO reports whether the span has neither input nor output.
func (v *IOView) IsMissingIO() bool {
	return v.Input == nil && v.Output == nil
}

func (*LLMView) Kind() SpanKind       { return KindLLM }
func (*RetrieverView) Kind() SpanKind { return KindRetriever }
func (*RerankerView) Kind() SpanKind  { return KindReranker }
func (*EmbeddingView) Kind() SpanKind { return KindEmbedding }
func (*ToolView) Kind() SpanKind      { return KindTool }
func (v *IOView) Kind() SpanKind      { return v.SpanKind }

func (*LLMView) view()       {}
func (*RetrieverView) view() {}
func (*RerankerView) view()  {}
func (*EmbeddingView) view() {}
func (*ToolView) view()      {}
func (*IOView) view()        {}
