// Trace tree reconstruction from span records
// Groups spans by trace ID and links children to parents, ordered by start time
package traceimport

import (
	"sort"
	"time"

	"github.com/andrewh/tracelens/pkg/spanattr"
	"go.uber.org/zap"
)

// TraceTree holds the spans of one trace with parent-child links.
type TraceTree struct {
	TraceID  string
	Roots    []*SpanNode
	AllNodes []*SpanNode
}

// SpanNode wraps a span with its children in the trace tree.
type SpanNode struct {
	Span     spanattr.Span
	Children []*SpanNode
	Depth    int
}

// BuildTrees reconstructs trace trees from a flat list of spans.
// Spans whose parent is not in the dataset become additional roots and are
// logged as warnings. Trees are ordered by their earliest span.
func BuildTrees(spans []spanattr.Span, logger *zap.Logger) []*TraceTree {
	if logger == nil {
		logger = zap.NewNop()
	}

	byTrace := make(map[string][]spanattr.Span)
	var order []string
	for _, s := range spans {
		if _, seen := byTrace[s.TraceID]; !seen {
			order = append(order, s.TraceID)
		}
		byTrace[s.TraceID] = append(byTrace[s.TraceID], s)
	}

	trees := make([]*TraceTree, 0, len(byTrace))
	for _, traceID := range order {
		trees = append(trees, buildTree(traceID, byTrace[traceID], logger))
	}
	sort.SliceStable(trees, func(i, j int) bool {
		return trees[i].start().Before(trees[j].start())
	})
	return trees
}

func buildTree(traceID string, spans []spanattr.Span, logger *zap.Logger) *TraceTree {
	nodes := make(map[string]*SpanNode, len(spans))
	allNodes := make([]*SpanNode, 0, len(spans))
	for _, s := range spans {
		node := &SpanNode{Span: s}
		if _, dup := nodes[s.SpanID]; dup {
			logger.Warn("duplicate span id, keeping first occurrence",
				zap.String("trace_id", traceID), zap.String("span_id", s.SpanID))
			continue
		}
		nodes[s.SpanID] = node
		allNodes = append(allNodes, node)
	}

	var roots []*SpanNode
	for _, node := range allNodes {
		if node.Span.IsRoot() {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[node.Span.ParentID]
		if !ok || parent == node {
			logger.Warn("parent span not found in dataset, treating as root",
				zap.String("trace_id", traceID),
				zap.String("span_id", node.Span.SpanID),
				zap.String("parent_id", node.Span.ParentID))
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	byStart := func(list []*SpanNode) {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Span.StartTime.Before(list[j].Span.StartTime)
		})
	}
	byStart(roots)
	for _, node := range allNodes {
		byStart(node.Children)
	}

	tree := &TraceTree{TraceID: traceID, Roots: roots}
	// Nodes unreachable from a root sit on a parent cycle; they are not part of the tree.
	tree.Walk(func(n *SpanNode, depth int) bool {
		n.Depth = depth
		tree.AllNodes = append(tree.AllNodes, n)
		return true
	})
	if len(tree.AllNodes) < len(allNodes) {
		logger.Warn("spans unreachable from any root were dropped",
			zap.String("trace_id", traceID),
			zap.Int("dropped", len(allNodes)-len(tree.AllNodes)))
	}
	return tree
}

// Walk visits nodes depth first in start-time order. Returning false from fn
// skips the node's children.
func (t *TraceTree) Walk(fn func(n *SpanNode, depth int) bool) {
	var visit func(n *SpanNode, depth int)
	visit = func(n *SpanNode, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	for _, r := range t.Roots {
		visit(r, 0)
	}
}

// Find returns the node for spanID, or nil.
func (t *TraceTree) Find(spanID string) *SpanNode {
	for _, n := range t.AllNodes {
		if n.Span.SpanID == spanID {
			return n
		}
	}
	return nil
}

// RootSpan returns the trace's root span: the first span without a parent,
// falling back to the earliest orphan.
func (t *TraceTree) RootSpan() *SpanNode {
	for _, r := range t.Roots {
		if r.Span.IsRoot() {
			return r
		}
	}
	if len(t.Roots) > 0 {
		return t.Roots[0]
	}
	return nil
}

func (t *TraceTree) start() (earliest time.Time) {
	for i, r := range t.Roots {
		if i == 0 || r.Span.StartTime.Before(earliest) {
			earliest = r.Span.StartTime
		}
	}
	return earliest
}
