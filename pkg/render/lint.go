// Tables for lint findings and the attribute registry
package render

import (
	"github.com/andrewh/tracelens/pkg/semconv"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Findings writes lint findings grouped under the span they were found on.
func (r *Renderer) Findings(spanID string, findings []semconv.Finding) {
	if len(findings) == 0 {
		return
	}
	r.printf("span %s\n", spanID)
	t := r.newTable()
	t.AppendHeader(table.Row{"Key", "Kind", "Message"})
	for _, f := range findings {
		kind := string(f.Kind)
		if f.Kind == semconv.FindingType {
			kind = r.paint(kind, text.FgRed)
		}
		t.AppendRow(table.Row{f.Key, kind, f.Message})
	}
	t.Render()
	r.printf("\n")
}

// Conventions lists the attribute groups of a domain, or of every domain when
// domain is empty.
func (r *Renderer) Conventions(reg *semconv.Registry, domain string) {
	domains := reg.Domains()
	if domain != "" {
		domains = []string{domain}
	}
	for _, d := range domains {
		for _, g := range reg.Domain(d) {
			t := r.newTable()
			t.SetTitle("%s (%s)", g.DisplayName, g.ID)
			t.AppendHeader(table.Row{"Attribute", "Type", "Example", "Brief"})
			for i := range g.Attributes {
				attr := &g.Attributes[i]
				id := attr.ID
				if attr.Deprecated != nil {
					id = r.paint(id, text.CrossedOut) + " (deprecated)"
				}
				typ := attr.Type.String()
				if attr.Items != "" {
					typ += " of " + attr.Items
				}
				t.AppendRow(table.Row{id, typ, semconv.FormatExample(attr), attr.Brief})
			}
			t.Render()
			r.printf("\n")
		}
	}
}
