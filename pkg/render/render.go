// Package render writes traces, spans and lint results as terminal text.
// Tables are drawn with go-pretty; colour is optional and off for pipes.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/andrewh/tracelens/pkg/phoenix"
	"github.com/andrewh/tracelens/pkg/spanattr"
	"github.com/andrewh/tracelens/pkg/traceimport"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	upper = cases.Upper(language.English)
	title = cases.Title(language.English)
)

// Renderer writes human-readable output to W.
type Renderer struct {
	W     io.Writer
	Color bool
}

func (r *Renderer) printf(format string, args ...any) {
	fmt.Fprintf(r.W, format, args...)
}

func (r *Renderer) paint(s string, colors ...text.Color) string {
	if !r.Color || len(colors) == 0 {
		return s
	}
	return text.Colors(colors).Sprint(s)
}

func (r *Renderer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.W)
	t.SetStyle(table.StyleLight)
	return t
}

// kindLabel renders a span kind as an upper-case badge.
func (r *Renderer) kindLabel(kind spanattr.SpanKind) string {
	label := upper.String(string(kind))
	switch kind {
	case spanattr.KindLLM:
		return r.paint(label, text.FgHiMagenta)
	case spanattr.KindRetriever, spanattr.KindReranker:
		return r.paint(label, text.FgHiBlue)
	case spanattr.KindEmbedding:
		return r.paint(label, text.FgHiCyan)
	case spanattr.KindTool:
		return r.paint(label, text.FgHiYellow)
	}
	return r.paint(label, text.FgHiBlack)
}

func (r *Renderer) status(code spanattr.StatusCode) string {
	switch code {
	case spanattr.StatusError:
		return r.paint(string(code), text.FgRed, text.Bold)
	case spanattr.StatusOK:
		return r.paint(string(code), text.FgGreen)
	}
	return string(code)
}

func (r *Renderer) evaluation(e spanattr.Evaluation) string {
	var parts []string
	if e.Label != nil {
		label := *e.Label
		if spanattr.IsDangerLabel(label) {
			label = r.paint(label, text.FgRed)
		}
		parts = append(parts, label)
	}
	if e.Score != nil {
		parts = append(parts, spanattr.FormatFloat(*e.Score))
	}
	if len(parts) == 0 {
		return e.Name
	}
	return e.Name + "=" + strings.Join(parts, " ")
}

// Trace writes the trace header and the span tree.
func (r *Renderer) Trace(tree *traceimport.TraceTree, sum traceimport.Summary) {
	r.printf("Trace %s\n", sum.TraceID)
	r.printf("  root:     %s\n", sum.RootName)
	status := r.status(sum.Status)
	if sum.StatusMessage != "" {
		status += " " + sum.StatusMessage
	}
	r.printf("  status:   %s\n", status)
	r.printf("  latency:  %s\n", traceimport.RoundDuration(sum.Latency))
	r.printf("  spans:    %d", sum.SpanCount)
	if sum.ErrorCount > 0 {
		r.printf(" (%s)", r.paint(fmt.Sprintf("%d errors", sum.ErrorCount), text.FgRed))
	}
	r.printf("\n")
	if sum.TokensTotal > 0 {
		r.printf("  tokens:   %s (%s prompt, %s completion)\n",
			spanattr.FormatNumber(float64(sum.TokensTotal)),
			spanattr.FormatNumber(float64(sum.TokensPrompt)),
			spanattr.FormatNumber(float64(sum.TokensCompletion)))
	}
	if len(sum.Evaluations) > 0 {
		evals := make([]string, len(sum.Evaluations))
		for i, e := range sum.Evaluations {
			evals[i] = r.evaluation(e)
		}
		r.printf("  evals:    %s\n", strings.Join(evals, ", "))
	}
	r.printf("\n")

	for i, root := range tree.Roots {
		r.node(root, "", i == len(tree.Roots)-1, true)
	}
}

func (r *Renderer) node(n *traceimport.SpanNode, prefix string, last, root bool) {
	connector, childPrefix := "├── ", prefix+"│   "
	if last {
		connector, childPrefix = "└── ", prefix+"    "
	}
	if root {
		connector, childPrefix = "", ""
	}

	s := n.Span
	line := fmt.Sprintf("%s%s%s %s", prefix, connector, r.kindLabel(s.Kind), s.Name)
	if s.LatencyMs != nil {
		line += "  " + traceimport.RoundDuration(s.Latency()).String()
	}
	if s.StatusCode == spanattr.StatusError {
		line += "  " + r.status(s.StatusCode)
	}
	if s.HasException() {
		line += "  " + r.paint("exception", text.FgRed)
	}
	r.printf("%s  %s\n", line, r.paint(s.SpanID, text.FgHiBlack))

	for i, c := range n.Children {
		r.node(c, childPrefix, i == len(n.Children)-1, false)
	}
}

// TraceList writes one page of root spans as a table. When summaries is
// non-nil, span and error counts of each trace are added as columns.
func (r *Renderer) TraceList(page phoenix.TracePage, summaries map[string]traceimport.Summary) {
	t := r.newTable()
	header := table.Row{"Start", "Kind", "Name", "Trace ID", "Latency", "Tokens", "Status"}
	if summaries != nil {
		header = append(header, "Spans", "Errors")
	}
	t.AppendHeader(header)
	for _, s := range page.Spans {
		latency, tokens := "-", "-"
		if s.LatencyMs != nil {
			latency = traceimport.RoundDuration(s.Latency()).String()
		}
		if s.TokenCountTotal != nil {
			tokens = spanattr.FormatNumber(float64(*s.TokenCountTotal))
		}
		row := table.Row{
			s.StartTime.Format(time.DateTime),
			r.kindLabel(s.Kind),
			s.Name,
			s.TraceID,
			latency,
			tokens,
			r.status(s.StatusCode),
		}
		if summaries != nil {
			spans, errs := any("-"), any("-")
			if sum, ok := summaries[s.TraceID]; ok {
				spans, errs = sum.SpanCount, sum.ErrorCount
			}
			row = append(row, spans, errs)
		}
		t.AppendRow(row)
	}
	t.Render()
	if page.PageInfo.HasNextPage {
		r.printf("next page: --after %s\n", page.PageInfo.EndCursor)
	}
}

// Stats writes per-kind statistics gathered across traces.
func (r *Renderer) Stats(c *traceimport.StatsCollector) {
	t := r.newTable()
	t.AppendHeader(table.Row{"Kind", "Spans", "Errors", "Error rate", "Unparsable", "Latency"})
	for _, kind := range c.SortedKinds() {
		ks := c.Kinds[kind]
		t.AppendRow(table.Row{
			r.kindLabel(kind),
			ks.TotalCount,
			ks.ErrorCount,
			traceimport.FormatRate(ks.ErrorCount, ks.TotalCount),
			ks.ParseErrors,
			traceimport.FormatLatency(ks.Latencies),
		})
	}
	t.Render()
}
