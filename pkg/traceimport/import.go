// Package traceimport turns recorded trace data into span records for
// attribute interpretation. The pipeline parses spans from Phoenix, OTLP or
// stdouttrace JSON, reconstructs trace trees and summarises each trace.
package traceimport

import (
	"io"

	"github.com/andrewh/tracelens/pkg/spanattr"
	"go.uber.org/zap"
)

// Options controls import behaviour.
type Options struct {
	Format Format
	Logger *zap.Logger // defaults to a no-op logger
}

// Result is the outcome of an import.
type Result struct {
	Spans     []spanattr.Span
	Trees     []*TraceTree
	Summaries []Summary
	Stats     *StatsCollector
}

// Import reads spans, builds trace trees and computes summaries.
func Import(r io.Reader, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	spans, err := ParseSpans(r, opts.Format)
	if err != nil {
		return nil, err
	}

	trees := BuildTrees(spans, opts.Logger)
	if len(trees) > 1 {
		opts.Logger.Debug("imported multiple traces", zap.Int("traces", len(trees)), zap.Int("spans", len(spans)))
	}

	res := &Result{
		Spans: spans,
		Trees: trees,
		Stats: NewStatsCollector(),
	}
	res.Stats.CollectFromTrees(trees)
	for _, tree := range trees {
		res.Summaries = append(res.Summaries, Summarize(tree))
	}
	return res, nil
}

// FindSpan returns the span with the given ID across all trees.
func (r *Result) FindSpan(spanID string) (spanattr.Span, bool) {
	for _, tree := range r.Trees {
		if n := tree.Find(spanID); n != nil {
			return n.Span, true
		}
	}
	return spanattr.Span{}, false
}
