// LintObserver checks span attributes against the OpenInference registry
package inspect

import (
	"sync"

	"github.com/andrewh/tracelens/pkg/semconv"
	"github.com/andrewh/tracelens/pkg/traceimport"
)

// SpanFindings are the lint findings of one span.
type SpanFindings struct {
	SpanID   string            `json:"spanId" yaml:"span_id"`
	Name     string            `json:"name" yaml:"name"`
	Findings []semconv.Finding `json:"findings" yaml:"findings"`
}

// LintObserver collects registry findings for every span with parsable attributes.
type LintObserver struct {
	registry *semconv.Registry

	mu      sync.Mutex
	results []SpanFindings
	total   int
}

// NewLintObserver creates a LintObserver checking against reg.
func NewLintObserver(reg *semconv.Registry) *LintObserver {
	return &LintObserver{registry: reg}
}

// Observe flattens the span's attributes and checks every key.
func (l *LintObserver) Observe(info SpanInfo) {
	if info.Attributes == nil {
		return
	}
	findings := l.registry.Check(traceimport.Flatten(info.Attributes))
	if len(findings) == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, SpanFindings{SpanID: info.Span.SpanID, Name: info.Span.Name, Findings: findings})
	l.total += len(findings)
}

// Results returns the spans with findings in observation order.
func (l *LintObserver) Results() []SpanFindings {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]SpanFindings(nil), l.results...)
}

// Total returns the number of findings across all spans.
func (l *LintObserver) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}
