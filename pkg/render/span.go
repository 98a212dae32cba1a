// Span detail: status alerts, kind-specific view cards, metadata, events and evaluations
// Every card degrades to plain text when values are not valid JSON
package render

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/andrewh/tracelens/pkg/spanattr"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Span writes the detail of one span using its interpretation.
func (r *Renderer) Span(span spanattr.Span, in spanattr.Interpretation) {
	r.printf("%s %s  %s\n", r.kindLabel(in.Kind), r.paint(span.Name, text.Bold), r.paint(span.SpanID, text.FgHiBlack))
	if span.LatencyMs != nil {
		r.printf("latency: %s\n", span.Latency())
	}
	if span.StatusCode == spanattr.StatusError {
		msg := span.StatusMessage
		if msg == "" {
			msg = "span ended with an error"
		}
		r.printf("%s %s\n", r.status(span.StatusCode), msg)
	}
	r.printf("\n")

	switch in.Display {
	case spanattr.DisplayRaw:
		if in.Err != nil {
			r.heading("Un-parsable attributes")
			r.printf("%s\n", r.paint(in.Err.Error(), text.FgRed))
			r.block(in.Raw, spanattr.MimeText)
		} else {
			r.heading("Attributes")
			r.block(in.Raw, spanattr.MimeJSON)
		}
	case spanattr.DisplayIO:
		if v, ok := in.View.(*spanattr.IOView); ok {
			r.io(v.Input, v.Output)
		}
	default:
		r.view(in.View)
	}

	if len(in.Metadata) > 0 {
		r.heading("Metadata")
		r.jsonValue(in.Metadata)
	}
	if len(span.Events) > 0 {
		r.heading("Events")
		for _, e := range span.Events {
			line := fmt.Sprintf("%s  %s", e.Timestamp.Format("15:04:05.000"), e.Name)
			if e.Name == "exception" {
				line = r.paint(line, text.FgRed)
			}
			r.printf("%s\n", line)
			if e.Message != "" {
				r.printf("    %s\n", e.Message)
			}
		}
	}
	if len(span.SpanEvaluations) > 0 {
		r.heading("Evaluations")
		r.evaluationTable(span.SpanEvaluations)
	}
}

func (r *Renderer) heading(s string) {
	r.printf("%s\n", r.paint(s, text.Bold, text.Underline))
}

func (r *Renderer) block(value string, mime spanattr.MimeType) {
	pretty, _ := spanattr.PrettyJSON(value, mime)
	for _, line := range strings.Split(pretty, "\n") {
		r.printf("  %s\n", line)
	}
	r.printf("\n")
}

func (r *Renderer) jsonValue(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		r.printf("  %v\n\n", v)
		return
	}
	r.block(string(data), spanattr.MimeJSON)
}

func (r *Renderer) io(input, output *spanattr.IOValue) {
	if input != nil {
		r.heading("Input")
		r.block(input.Value, input.MimeType)
	}
	if output != nil {
		r.heading("Output")
		r.block(output.Value, output.MimeType)
	}
}

func (r *Renderer) view(v spanattr.View) {
	switch v := v.(type) {
	case *spanattr.LLMView:
		r.llm(v)
	case *spanattr.RetrieverView:
		if v.Input != nil {
			r.heading("Query")
			r.block(v.Input.Value, v.Input.MimeType)
		}
		r.retriever(v)
	case *spanattr.RerankerView:
		r.reranker(v)
	case *spanattr.EmbeddingView:
		r.embedding(v)
	case *spanattr.ToolView:
		r.tool(v)
	case *spanattr.IOView:
		r.io(v.Input, v.Output)
	}
}

func (r *Renderer) llm(v *spanattr.LLMView) {
	if v.ModelName != nil {
		r.printf("model: %s\n\n", *v.ModelName)
	}
	if len(v.InputMessages) > 0 {
		r.heading("Input messages")
		r.messages(v.InputMessages)
	} else if v.Input != nil {
		r.heading("Input")
		r.block(v.Input.Value, v.Input.MimeType)
	}
	if len(v.Prompts) > 0 {
		r.heading("Prompts")
		for i, p := range v.Prompts {
			r.printf("  [%d] %s\n", i, p)
		}
		r.printf("\n")
	}
	if pt := v.PromptTemplate; pt != nil {
		r.heading("Prompt template")
		if pt.Version != "" {
			r.printf("  version: %s\n", pt.Version)
		}
		r.block(pt.Template, spanattr.MimeText)
		if len(pt.Variables) > 0 {
			r.heading("Prompt template variables")
			r.jsonValue(pt.Variables)
		}
	}
	if spanattr.HasInvocationParameters(v.InvocationParameters) {
		r.heading("Invocation parameters")
		r.block(v.InvocationParameters, spanattr.MimeJSON)
	}
	if len(v.OutputMessages) > 0 {
		r.heading("Output messages")
		r.messages(v.OutputMessages)
	} else if v.Output != nil {
		r.heading("Output")
		r.block(v.Output.Value, v.Output.MimeType)
	}
}

func (r *Renderer) messages(msgs []spanattr.Message) {
	for _, m := range msgs {
		role := title.String(m.Role)
		if role == "" {
			role = "Unknown"
		}
		if m.Name != "" {
			role += " (" + m.Name + ")"
		}
		r.printf("  %s\n", r.paint(role, text.FgCyan))
		if m.Content != "" {
			for _, line := range strings.Split(m.Content, "\n") {
				r.printf("    %s\n", line)
			}
		}
		for _, tc := range m.ToolCalls {
			r.indented(spanattr.FormatToolCall(tc.FunctionName, tc.ArgumentsJSON))
		}
		if m.HasFunctionCall() {
			r.indented(spanattr.FormatToolCall(m.FunctionCallName, m.FunctionCallArgumentsJSON))
		}
	}
	r.printf("\n")
}

func (r *Renderer) indented(s string) {
	for _, line := range strings.Split(s, "\n") {
		r.printf("    %s\n", line)
	}
}

func (r *Renderer) documents(docs []spanattr.Document, evals func(int) []spanattr.DocumentEvaluation) {
	for i, d := range docs {
		header := fmt.Sprintf("  document %d", i)
		if d.ID != "" {
			header += " (" + d.ID + ")"
		}
		if d.Score != nil {
			header += "  score " + spanattr.FormatFloat(*d.Score)
		}
		r.printf("%s\n", r.paint(header, text.FgBlue))
		if d.Content != "" {
			r.indented(d.Content)
		}
		if len(d.Metadata) > 0 {
			data, _ := json.Marshal(d.Metadata)
			r.printf("    metadata: %s\n", data)
		}
		if evals == nil {
			continue
		}
		for _, e := range evals(i) {
			r.printf("    eval: %s\n", r.evaluation(e.Evaluation))
		}
	}
	r.printf("\n")
}

func (r *Renderer) retriever(v *spanattr.RetrieverView) {
	r.heading("Documents")
	if len(v.Documents) == 0 {
		r.printf("  no documents\n\n")
	} else {
		r.documents(v.Documents, v.EvaluationsFor)
	}
	if len(v.UnmatchedEvaluations) > 0 {
		r.heading("Evaluations without a document")
		for _, e := range v.UnmatchedEvaluations {
			r.printf("  position %d: %s\n", e.DocumentPosition, r.evaluation(e.Evaluation))
		}
		r.printf("\n")
	}
	if len(v.RetrievalMetrics) > 0 {
		r.heading("Retrieval metrics")
		t := r.newTable()
		t.AppendHeader(table.Row{"Evaluation", "NDCG", "Precision", "Hit"})
		for _, m := range v.RetrievalMetrics {
			t.AppendRow(table.Row{m.EvaluationName, optFloat(m.NDCG), optFloat(m.Precision), optFloat(m.Hit)})
		}
		t.Render()
		r.printf("\n")
	}
}

func (r *Renderer) reranker(v *spanattr.RerankerView) {
	if v.ModelName != nil {
		r.printf("model: %s\n", *v.ModelName)
	}
	if v.TopK != nil {
		r.printf("top k: %d\n", *v.TopK)
	}
	if v.Query != "" {
		r.heading("Query")
		r.block(v.Query, spanattr.MimeText)
	}
	r.heading("Input documents")
	r.documents(v.InputDocuments, nil)
	r.heading("Output documents")
	r.documents(v.OutputDocuments, nil)
}

func (r *Renderer) embedding(v *spanattr.EmbeddingView) {
	heading := "Embeddings"
	if v.ModelName != nil {
		heading += ": " + *v.ModelName
	}
	r.heading(heading)
	for i, e := range v.Embeddings {
		r.printf("  [%d] %s", i, e.Text)
		if len(e.Vector) > 0 {
			r.printf("  (%d dimensions)", len(e.Vector))
		}
		r.printf("\n")
	}
	r.printf("\n")
}

func (r *Renderer) tool(v *spanattr.ToolView) {
	r.printf("tool: %s\n", v.Name)
	if v.Description != "" {
		r.printf("%s\n", v.Description)
	}
	r.printf("\n")
	if v.Parameters != "" {
		r.heading("Parameters")
		r.block(v.Parameters, spanattr.MimeJSON)
	}
}

func (r *Renderer) evaluationTable(evals []spanattr.Evaluation) {
	sorted := append([]spanattr.Evaluation(nil), evals...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	t := r.newTable()
	t.AppendHeader(table.Row{"Name", "Label", "Score", "Explanation"})
	for _, e := range sorted {
		label := "-"
		if e.Label != nil {
			label = *e.Label
			if spanattr.IsDangerLabel(label) {
				label = r.paint(label, text.FgRed)
			}
		}
		explanation := "-"
		if e.Explanation != nil {
			explanation = *e.Explanation
		}
		t.AppendRow(table.Row{e.Name, label, optFloat(e.Score), explanation})
	}
	t.Render()
}

func optFloat(f *float64) string {
	if f == nil {
		return "-"
	}
	return spanattr.FormatFloat(*f)
}
