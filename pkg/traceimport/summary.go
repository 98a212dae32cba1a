// Per-trace summaries and per-kind statistics over trace trees
// Feeds the trace header and the inspect statistics table
package traceimport

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/andrewh/tracelens/pkg/spanattr"
)

// Summary describes one trace: its root span status, latency and totals.
type Summary struct {
	TraceID          string                    `json:"traceId" yaml:"trace_id"`
	RootSpanID       string                    `json:"rootSpanId" yaml:"root_span_id"`
	RootName         string                    `json:"rootName" yaml:"root_name"`
	Status           spanattr.StatusCode       `json:"status" yaml:"status"`
	StatusMessage    string                    `json:"statusMessage,omitempty" yaml:"status_message,omitempty"`
	Latency          time.Duration             `json:"latency" yaml:"latency"`
	StartTime        time.Time                 `json:"startTime" yaml:"start_time"`
	SpanCount        int                       `json:"spanCount" yaml:"span_count"`
	KindCounts       map[spanattr.SpanKind]int `json:"kindCounts" yaml:"kind_counts"`
	ErrorCount       int                       `json:"errorCount" yaml:"error_count"`
	ExceptionCount   int                       `json:"exceptionCount" yaml:"exception_count"`
	UnparsableCount  int                       `json:"unparsableCount" yaml:"unparsable_count"`
	TokensPrompt     int64                     `json:"tokensPrompt" yaml:"tokens_prompt"`
	TokensCompletion int64                     `json:"tokensCompletion" yaml:"tokens_completion"`
	TokensTotal      int64                     `json:"tokensTotal" yaml:"tokens_total"`
	Evaluations      []spanattr.Evaluation     `json:"evaluations,omitempty" yaml:"evaluations,omitempty"`
}

// Summarize computes the summary of a trace tree.
// Token counts are cumulative over LLM spans; status, latency and evaluations
// come from the root span.
func Summarize(tree *TraceTree) Summary {
	sum := Summary{
		TraceID:    tree.TraceID,
		KindCounts: make(map[spanattr.SpanKind]int),
		Status:     spanattr.StatusUnset,
	}
	if root := tree.RootSpan(); root != nil {
		sum.RootSpanID = root.Span.SpanID
		sum.RootName = root.Span.Name
		sum.Status = root.Span.StatusCode
		sum.StatusMessage = root.Span.StatusMessage
		sum.Latency = root.Span.Latency()
		sum.StartTime = root.Span.StartTime
		sum.Evaluations = root.Span.SpanEvaluations
	}

	for _, n := range tree.AllNodes {
		s := n.Span
		sum.SpanCount++
		sum.KindCounts[s.Kind]++
		if s.StatusCode == spanattr.StatusError {
			sum.ErrorCount++
		}
		if s.HasException() {
			sum.ExceptionCount++
		}
		if _, err := spanattr.Parse(s.Attributes); err != nil {
			sum.UnparsableCount++
		}
		if s.Kind != spanattr.KindLLM {
			continue
		}
		if s.TokenCountPrompt != nil {
			sum.TokensPrompt += *s.TokenCountPrompt
		}
		if s.TokenCountCompletion != nil {
			sum.TokensCompletion += *s.TokenCountCompletion
		}
		if s.TokenCountTotal != nil {
			sum.TokensTotal += *s.TokenCountTotal
		}
	}
	return sum
}

// KindStats accumulates statistics for one span kind.
type KindStats struct {
	Latencies   []time.Duration
	ErrorCount  int
	TotalCount  int
	ParseErrors int
}

// StatsCollector accumulates per-kind statistics across traces.
type StatsCollector struct {
	Kinds map[spanattr.SpanKind]*KindStats
}

// NewStatsCollector creates an empty collector.
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{Kinds: make(map[spanattr.SpanKind]*KindStats)}
}

// CollectFromTrees walks all trace trees, accumulating per-kind statistics.
func (c *StatsCollector) CollectFromTrees(trees []*TraceTree) {
	for _, tree := range trees {
		for _, n := range tree.AllNodes {
			c.add(n.Span)
		}
	}
}

func (c *StatsCollector) add(s spanattr.Span) {
	ks, ok := c.Kinds[s.Kind]
	if !ok {
		ks = &KindStats{}
		c.Kinds[s.Kind] = ks
	}
	ks.TotalCount++
	if s.LatencyMs != nil {
		ks.Latencies = append(ks.Latencies, s.Latency())
	}
	if s.StatusCode == spanattr.StatusError {
		ks.ErrorCount++
	}
	if _, err := spanattr.Parse(s.Attributes); err != nil {
		ks.ParseErrors++
	}
}

// SortedKinds returns the collected kinds in name order.
func (c *StatsCollector) SortedKinds() []spanattr.SpanKind {
	kinds := make([]spanattr.SpanKind, 0, len(c.Kinds))
	for k := range c.Kinds {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// MeanDuration computes the mean of a duration slice.
// Uses float64 accumulator to avoid int64 overflow on large inputs.
func MeanDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var sum float64
	for _, d := range durations {
		sum += float64(d)
	}
	return time.Duration(sum / float64(len(durations)))
}

// StdDevDuration computes the sample standard deviation of a duration slice.
func StdDevDuration(durations []time.Duration) time.Duration {
	if len(durations) < 2 {
		return 0
	}
	mean := float64(MeanDuration(durations))
	var sumSq float64
	for _, d := range durations {
		diff := float64(d) - mean
		sumSq += diff * diff
	}
	return time.Duration(math.Sqrt(sumSq / float64(len(durations)-1)))
}

// FormatLatency produces a human-friendly distribution string, "Xms +/- Yms"
// when the spread is significant and "Xms" otherwise. Empty input gives "-".
func FormatLatency(durations []time.Duration) string {
	if len(durations) == 0 {
		return "-"
	}
	mean := MeanDuration(durations)
	stddev := StdDevDuration(durations)

	meanStr := RoundDuration(mean).String()
	if stddev == 0 || float64(stddev) < float64(mean)*0.01 {
		return meanStr
	}
	return meanStr + " +/- " + RoundDuration(stddev).String()
}

// RoundDuration rounds a duration to a human-friendly precision.
func RoundDuration(d time.Duration) time.Duration {
	switch {
	case d >= time.Second:
		return d.Round(10 * time.Millisecond)
	case d >= 100*time.Millisecond:
		return d.Round(time.Millisecond)
	case d >= time.Millisecond:
		return d.Round(100 * time.Microsecond)
	default:
		return d.Round(time.Microsecond)
	}
}

// FormatRate returns a percentage string like "0.10%", or empty if zero.
func FormatRate(count, total int) string {
	if count == 0 || total == 0 {
		return ""
	}
	rate := float64(count) / float64(total) * 100
	if rate >= 1.0 {
		return fmt.Sprintf("%.0f%%", rate)
	}
	return fmt.Sprintf("%.2f%%", rate)
}
