// Span record as delivered by the query layer, plus its kind and status enumerations
// Records are read-only projections of a single query response
package spanattr

import (
	"strings"
	"time"
)

// SpanKind is the OpenInference span kind tag.
type SpanKind string

const (
	KindLLM       SpanKind = "llm"
	KindRetriever SpanKind = "retriever"
	KindReranker  SpanKind = "reranker"
	KindEmbedding SpanKind = "embedding"
	KindTool      SpanKind = "tool"
	KindChain     SpanKind = "chain"
	KindAgent     SpanKind = "agent"
	KindUnknown   SpanKind = "unknown"
)

var knownKinds = map[SpanKind]bool{
	KindLLM:       true,
	KindRetriever: true,
	KindReranker:  true,
	KindEmbedding: true,
	KindTool:      true,
	KindChain:     true,
	KindAgent:     true,
	KindUnknown:   true,
}

// ParseSpanKind maps a kind string onto the closed enumeration.
// Matching is case-insensitive; anything unrecognised becomes KindUnknown.
func ParseSpanKind(s string) SpanKind {
	k := SpanKind(strings.ToLower(strings.TrimSpace(s)))
	if knownKinds[k] {
		return k
	}
	return KindUnknown
}

// StatusCode is the propagated status of a span.
type StatusCode string

const (
	StatusOK    StatusCode = "OK"
	StatusError StatusCode = "ERROR"
	StatusUnset StatusCode = "UNSET"
)

// MimeType describes how an input or output value should be displayed.
type MimeType string

const (
	MimeJSON MimeType = "json"
	MimeText MimeType = "text"
)

// IOValue is a span input or output.
type IOValue struct {
	Value    string   `json:"value" yaml:"value"`
	MimeType MimeType `json:"mimeType" yaml:"mime_type"`
}

// SpanEvent is an event recorded on a span, e.g. an exception.
type SpanEvent struct {
	Name      string    `json:"name" yaml:"name"`
	Message   string    `json:"message" yaml:"message"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Evaluation is a named label/score judgement attached to a span.
type Evaluation struct {
	Name        string   `json:"name" yaml:"name"`
	Label       *string  `json:"label,omitempty" yaml:"label,omitempty"`
	Score       *float64 `json:"score,omitempty" yaml:"score,omitempty"`
	Explanation *string  `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// DocumentEvaluation is an evaluation of the document at DocumentPosition
// in a retriever span's document list.
type DocumentEvaluation struct {
	Evaluation       `yaml:",inline"`
	DocumentPosition int `json:"documentPosition" yaml:"document_position"`
}

// RetrievalMetric holds ranking metrics computed from document evaluations.
type RetrievalMetric struct {
	EvaluationName string   `json:"evaluationName" yaml:"evaluation_name"`
	NDCG           *float64 `json:"ndcg,omitempty" yaml:"ndcg,omitempty"`
	Precision      *float64 `json:"precision,omitempty" yaml:"precision,omitempty"`
	Hit            *float64 `json:"hit,omitempty" yaml:"hit,omitempty"`
}

// Span is one recorded unit of work in a trace.
type Span struct {
	SpanID        string
	TraceID       string
	ParentID      string // empty for root spans
	Name          string
	Kind          SpanKind
	StatusCode    StatusCode
	StatusMessage string
	StartTime     time.Time
	LatencyMs     *float64
	Input         *IOValue
	Output        *IOValue

	TokenCountTotal      *int64
	TokenCountPrompt     *int64
	TokenCountCompletion *int64

	// Attributes is the JSON-encoded attribute blob. It is not guaranteed to be valid.
	Attributes string

	Events                   []SpanEvent
	SpanEvaluations          []Evaluation
	DocumentEvaluations      []DocumentEvaluation
	DocumentRetrievalMetrics []RetrievalMetric
}

// IsRoot reports whether the span has no parent.
func (s Span) IsRoot() bool {
	return s.ParentID == ""
}

// HasException reports whether any of the span's events is an exception.
func (s Span) HasException() bool {
	for _, e := range s.Events {
		if e.Name == "exception" {
			return true
		}
	}
	return false
}

// Latency returns the span latency, or zero when unknown.
func (s Span) Latency() time.Duration {
	if s.LatencyMs == nil {
		return 0
	}
	return time.Duration(*s.LatencyMs * float64(time.Millisecond))
}
