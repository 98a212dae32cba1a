// Shared output for inspect and trace: text views or JSON/YAML reports
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andrewh/tracelens/pkg/render"
	"github.com/andrewh/tracelens/pkg/spanattr"
	"github.com/andrewh/tracelens/pkg/traceimport"
	"github.com/spf13/cobra"
)

const outputText = "text"

// spanReport is the structured form of one interpreted span.
type spanReport struct {
	SpanID         string                  `json:"spanId" yaml:"span_id"`
	TraceID        string                  `json:"traceId" yaml:"trace_id"`
	ParentID       string                  `json:"parentId,omitempty" yaml:"parent_id,omitempty"`
	Name           string                  `json:"name" yaml:"name"`
	ParseError     string                  `json:"parseError,omitempty" yaml:"parse_error,omitempty"`
	Interpretation spanattr.Interpretation `json:"interpretation" yaml:"interpretation"`
}

// traceReport is the structured form of one trace.
type traceReport struct {
	Summary traceimport.Summary `json:"summary" yaml:"summary"`
	Spans   []spanReport        `json:"spans" yaml:"spans"`
}

type reportOptions struct {
	output string
	spanID string
	stats  bool
}

func validateOutput(output string) error {
	switch output {
	case outputText, string(traceimport.OutputJSON), string(traceimport.OutputYAML):
		return nil
	}
	return fmt.Errorf("unknown output format %q, valid formats: text, json, yaml", output)
}

func newSpanReport(s spanattr.Span, in spanattr.Interpretation) spanReport {
	r := spanReport{
		SpanID:         s.SpanID,
		TraceID:        s.TraceID,
		ParentID:       s.ParentID,
		Name:           s.Name,
		Interpretation: in,
	}
	if in.Err != nil {
		r.ParseError = in.Err.Error()
	}
	return r
}

func (a *app) renderer(w io.Writer) *render.Renderer {
	return &render.Renderer{W: w, Color: colorEnabled(w)}
}

// report interprets spans and writes either one span (opts.spanID) or every trace.
func (a *app) report(ctx context.Context, cmd *cobra.Command, spans []spanattr.Span, opts reportOptions) error {
	if err := validateOutput(opts.output); err != nil {
		return err
	}
	in, err := a.inspector()
	if err != nil {
		return err
	}
	results, err := in.Inspect(ctx, spans)
	if err != nil {
		return err
	}
	interpretations := make(map[string]spanattr.Interpretation, len(results))
	for _, res := range results {
		interpretations[res.Span.SpanID] = res.Interpretation
	}

	w := cmd.OutOrStdout()

	if opts.spanID != "" {
		for _, res := range results {
			if res.Span.SpanID != opts.spanID {
				continue
			}
			if opts.output == outputText {
				a.renderer(w).Span(res.Span, res.Interpretation)
				return nil
			}
			return traceimport.Encode(w, newSpanReport(res.Span, res.Interpretation), traceimport.OutputFormat(opts.output))
		}
		return fmt.Errorf("span %s not found", opts.spanID)
	}

	trees := traceimport.BuildTrees(spans, a.logger)

	if opts.output != outputText {
		reports := make([]traceReport, 0, len(trees))
		for _, tree := range trees {
			tr := traceReport{Summary: traceimport.Summarize(tree)}
			for _, n := range tree.AllNodes {
				tr.Spans = append(tr.Spans, newSpanReport(n.Span, interpretations[n.Span.SpanID]))
			}
			reports = append(reports, tr)
		}
		return traceimport.Encode(w, reports, traceimport.OutputFormat(opts.output))
	}

	r := a.renderer(w)
	for i, tree := range trees {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		r.Trace(tree, traceimport.Summarize(tree))
	}
	if opts.stats {
		stats := traceimport.NewStatsCollector()
		stats.CollectFromTrees(trees)
		_, _ = fmt.Fprintln(w)
		r.Stats(stats)
	}
	return nil
}

// openInput returns the named file or stdin when no argument is given.
func openInput(cmd *cobra.Command, args []string) (io.Reader, func(), error) {
	if len(args) == 0 {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(args[0]) //nolint:gosec // user-supplied file path is expected
	if err != nil {
		return nil, nil, fmt.Errorf("opening input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// importSpans reads and imports spans from the command's input.
func (a *app) importSpans(cmd *cobra.Command, args []string, format string) (*traceimport.Result, error) {
	r, closeInput, err := openInput(cmd, args)
	if err != nil {
		return nil, err
	}
	defer closeInput()

	res, err := traceimport.Import(r, traceimport.Options{
		Format: traceimport.Format(format),
		Logger: a.logger,
	})
	if err != nil {
		if !strings.Contains(err.Error(), "no spans found") {
			return nil, err
		}
		return nil, fmt.Errorf("%w\n\nProvide a file or pipe stdin:\n  tracelens %s spans.json\n  cat spans.json | tracelens %s", err, cmd.Name(), cmd.Name())
	}
	return res, nil
}
