// Property-based tests for the import pipeline using pgregory.net/rapid
// Covers nesting round trips and tree construction invariants
package traceimport

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/andrewh/tracelens/pkg/spanattr"
	"pgregory.net/rapid"
)

// --- Generators ---

// genFlatKey joins segments drawn from OpenInference-like names and small indexes.
func genFlatKey(withIndexes bool) *rapid.Generator[string] {
	pool := []string{"llm", "retrieval", "documents", "input_messages", "message", "role", "content", "a", "b"}
	if withIndexes {
		pool = append(pool, "0", "1", "2")
	}
	return rapid.Custom(func(t *rapid.T) string {
		segs := rapid.SliceOfN(rapid.SampledFrom(pool), 1, 5).Draw(t, "segs")
		return strings.Join(segs, ".")
	})
}

func genScalar() *rapid.Generator[any] {
	return rapid.OneOf(
		rapid.Map(rapid.StringN(0, 6, -1), func(s string) any { return s }),
		rapid.Map(rapid.Float64Range(-1e3, 1e3), func(f float64) any { return f }),
		rapid.Map(rapid.Bool(), func(b bool) any { return b }),
	)
}

// genTree produces spans forming a single well-formed trace.
// Each span after the first picks an earlier span as parent.
func genTree(t *rapid.T) []spanattr.Span {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	n := rapid.IntRange(1, 20).Draw(t, "treeSize")
	spans := make([]spanattr.Span, n)
	for i := range spans {
		parent := ""
		if i > 0 {
			parent = fmt.Sprintf("s%d", rapid.IntRange(0, i-1).Draw(t, fmt.Sprintf("parent%d", i)))
		}
		offset := rapid.Int64Range(0, int64(time.Second)).Draw(t, fmt.Sprintf("start%d", i))
		spans[i] = spanattr.Span{
			TraceID:   "trace-001",
			SpanID:    fmt.Sprintf("s%d", i),
			ParentID:  parent,
			StartTime: base.Add(time.Duration(offset)),
		}
	}
	return rapid.Permutation(spans).Draw(t, "order")
}

// --- Properties ---

func TestProperty_NestFlattenIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		flat := rapid.MapOfN(genFlatKey(true), genScalar(), 0, 8).Draw(t, "flat")
		once := Nest(flat)
		twice := Nest(Flatten(once))
		if fmt.Sprint(once) != fmt.Sprint(twice) {
			t.Fatalf("Nest(Flatten(Nest(x))) != Nest(x)\nonce:  %v\ntwice: %v", once, twice)
		}
	})
}

func TestProperty_FlattenInvertsNestWithoutIndexes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		drawn := rapid.MapOfN(genFlatKey(false), genScalar(), 0, 8).Draw(t, "flat")
		// Drop keys that are a path prefix of another key; they cannot coexist.
		flat := map[string]any{}
		for k, v := range drawn {
			prefix := false
			for other := range drawn {
				if strings.HasPrefix(other, k+".") || strings.HasPrefix(k, other+".") {
					prefix = true
					break
				}
			}
			if !prefix {
				flat[k] = v
			}
		}
		got := Flatten(Nest(flat))
		if len(got) != len(flat) {
			t.Fatalf("round trip changed key count: %d -> %d", len(flat), len(got))
		}
		for k, v := range flat {
			if got[k] != v {
				t.Fatalf("key %q: got %v want %v", k, got[k], v)
			}
		}
	})
}

func TestProperty_TreeContainsEverySpan(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		spans := genTree(t)
		trees := BuildTrees(spans, nil)
		if len(trees) != 1 {
			t.Fatalf("expected one tree, got %d", len(trees))
		}
		tree := trees[0]
		if len(tree.Roots) != 1 || tree.Roots[0].Span.SpanID != "s0" {
			t.Fatalf("expected single root s0")
		}
		if len(tree.AllNodes) != len(spans) {
			t.Fatalf("tree has %d nodes, want %d", len(tree.AllNodes), len(spans))
		}
		for _, n := range tree.AllNodes {
			for i := 1; i < len(n.Children); i++ {
				if n.Children[i].Span.StartTime.Before(n.Children[i-1].Span.StartTime) {
					t.Fatalf("children of %s not ordered by start time", n.Span.SpanID)
				}
			}
			for _, c := range n.Children {
				if c.Depth != n.Depth+1 {
					t.Fatalf("depth of %s is %d, parent depth %d", c.Span.SpanID, c.Depth, n.Depth)
				}
			}
		}
		sum := Summarize(tree)
		if sum.SpanCount != len(spans) {
			t.Fatalf("summary counted %d spans, want %d", sum.SpanCount, len(spans))
		}
	})
}
