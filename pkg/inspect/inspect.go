// Package inspect interprets spans in bulk and feeds the results to observers.
package inspect

import (
	"context"

	"github.com/andrewh/tracelens/pkg/spanattr"
	"go.uber.org/zap"
)

// Result pairs a span with its interpretation.
type Result struct {
	Span           spanattr.Span
	Interpretation spanattr.Interpretation
}

// Inspector interprets spans and notifies its observers.
type Inspector struct {
	Observers []SpanObserver
	Logger    *zap.Logger
}

// Inspect interprets every span in order. It stops early with the context's
// error when ctx is cancelled.
func (i *Inspector) Inspect(ctx context.Context, spans []spanattr.Span) ([]Result, error) {
	logger := i.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	results := make([]Result, 0, len(spans))
	for _, s := range spans {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		in := spanattr.InterpretSpan(s)
		results = append(results, Result{Span: s, Interpretation: in})

		info := SpanInfo{
			Span:          s,
			Kind:          in.Kind,
			Display:       in.Display,
			ParseErr:      in.Err,
			AttributeSize: len(s.Attributes),
		}
		if in.Err == nil {
			info.Attributes, _ = spanattr.Parse(s.Attributes)
		} else {
			logger.Debug("span attributes could not be parsed",
				zap.String("span_id", s.SpanID),
				zap.String("kind", string(in.Kind)),
				zap.Error(in.Err))
		}
		for _, obs := range i.Observers {
			obs.Observe(info)
		}
	}
	return results, nil
}
