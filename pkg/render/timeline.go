// SVG waterfall of one trace: a bar per span, offset by start time and sized by latency
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/andrewh/tracelens/pkg/spanattr"
	"github.com/andrewh/tracelens/pkg/traceimport"
)

// Timeline chart dimensions
const (
	timelineWidth = 900
	rowHeight     = 22
	barHeight     = 14
	labelWidth    = 260
	marginTop     = 44
	marginRight   = 20
	marginBottom  = 30
	plotWidth     = timelineWidth - labelWidth - marginRight
	maxTickLabels = 8
	indentPerNode = 12
)

var kindFill = map[spanattr.SpanKind]string{
	spanattr.KindLLM:       "#a855f7",
	spanattr.KindRetriever: "#2563eb",
	spanattr.KindReranker:  "#0ea5e9",
	spanattr.KindEmbedding: "#14b8a6",
	spanattr.KindTool:      "#f59e0b",
	spanattr.KindChain:     "#64748b",
	spanattr.KindAgent:     "#22c55e",
}

// Timeline writes an SVG waterfall of tree to w.
func Timeline(w io.Writer, tree *traceimport.TraceTree, title string) error {
	if tree == nil || len(tree.AllNodes) == 0 {
		return fmt.Errorf("no spans to render")
	}

	start, end := traceBounds(tree)
	total := end.Sub(start)
	if total <= 0 {
		total = time.Millisecond
	}
	offset := func(t time.Time) float64 {
		return float64(plotWidth) * float64(t.Sub(start)) / float64(total)
	}

	height := marginTop + len(tree.AllNodes)*rowHeight + marginBottom
	var b strings.Builder
	b.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`, timelineWidth, height, timelineWidth, height))
	b.WriteString("\n<style>\n")
	b.WriteString("  text { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; fill: #333; }\n")
	b.WriteString("  .title { font-size: 14px; font-weight: 600; }\n")
	b.WriteString("  .span-label { font-size: 11px; }\n")
	b.WriteString("  .tick-label { font-size: 10px; fill: #666; }\n")
	b.WriteString("  .grid { stroke: #e0e0e0; stroke-width: 1; }\n")
	b.WriteString("  .error { stroke: #dc2626; stroke-width: 2; }\n")
	b.WriteString("</style>\n")

	// Background
	b.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="white"/>`, timelineWidth, height))
	b.WriteString("\n")

	// Title
	b.WriteString(fmt.Sprintf(`<text x="10" y="24" class="title">%s</text>`, xmlEscape(title)))
	b.WriteString("\n")

	// Grid lines and time tick labels
	plotBottom := height - marginBottom
	for i := 0; i <= maxTickLabels; i++ {
		x := labelWidth + i*plotWidth/maxTickLabels
		b.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid"/>`, x, marginTop, x, plotBottom))
		b.WriteString("\n")
		elapsed := time.Duration(float64(i) * float64(total) / maxTickLabels)
		b.WriteString(fmt.Sprintf(`<text x="%d" y="%d" text-anchor="middle" class="tick-label">%s</text>`, x, plotBottom+16, traceimport.RoundDuration(elapsed)))
		b.WriteString("\n")
	}

	// One row per span in tree order
	for i, n := range tree.AllNodes {
		s := n.Span
		y := marginTop + i*rowHeight
		label := s.Name
		if s.LatencyMs != nil {
			label += " " + traceimport.RoundDuration(s.Latency()).String()
		}
		b.WriteString(fmt.Sprintf(`<text x="%d" y="%d" class="span-label">%s</text>`, 10+n.Depth*indentPerNode, y+barHeight-3, xmlEscape(label)))
		b.WriteString("\n")

		x := float64(labelWidth) + offset(s.StartTime)
		width := offset(s.StartTime.Add(s.Latency())) - offset(s.StartTime)
		if width < 1 {
			width = 1
		}
		fill, ok := kindFill[s.Kind]
		if !ok {
			fill = "#94a3b8"
		}
		class := ""
		if s.StatusCode == spanattr.StatusError {
			class = ` class="error"`
		}
		b.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%d" width="%.1f" height="%d" rx="2" fill="%s"%s><title>%s</title></rect>`,
			x, y, width, barHeight, fill, class, xmlEscape(string(s.Kind)+" "+s.SpanID)))
		b.WriteString("\n")
	}

	b.WriteString("</svg>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func traceBounds(tree *traceimport.TraceTree) (start, end time.Time) {
	for i, n := range tree.AllNodes {
		s := n.Span
		finish := s.StartTime.Add(s.Latency())
		if i == 0 || s.StartTime.Before(start) {
			start = s.StartTime
		}
		if i == 0 || finish.After(end) {
			end = finish
		}
	}
	return start, end
}

func xmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}
