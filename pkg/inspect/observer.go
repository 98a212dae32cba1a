// Observer interface for deriving signals (metrics, logs, lint findings) from interpreted spans
// Observers receive one SpanInfo per span after interpretation
package inspect

import (
	"github.com/andrewh/tracelens/pkg/spanattr"
)

// SpanInfo holds a span and the outcome of interpreting its attributes.
type SpanInfo struct {
	Span          spanattr.Span
	Kind          spanattr.SpanKind
	Display       spanattr.Display
	ParseErr      *spanattr.ParseError
	Attributes    spanattr.AttributeObject // nil when the blob could not be parsed
	AttributeSize int
}

// SpanObserver receives span metadata after each span is interpreted.
type SpanObserver interface {
	Observe(info SpanInfo)
}
