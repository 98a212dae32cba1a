// Commands backed by a live Phoenix server
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andrewh/tracelens/pkg/phoenix"
	"github.com/andrewh/tracelens/pkg/spanattr"
	"github.com/andrewh/tracelens/pkg/traceimport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func traceCmd(a *app) *cobra.Command {
	var opts reportOptions

	cmd := &cobra.Command{
		Use:   "trace <trace-id>",
		Short: "Fetch a trace from Phoenix and interpret its spans",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("missing trace ID\n\nUsage: tracelens trace <trace-id>")
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(opts.output); err != nil {
				return err
			}
			client, err := a.phoenixClient()
			if err != nil {
				return err
			}
			defer client.Close()

			spans, err := client.Trace(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.report(cmd.Context(), cmd, spans, opts)
		},
	}

	cmd.Flags().StringVar(&opts.spanID, "span", "", "show the detail view of this span")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputText, "output format: text, json or yaml")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "append per-kind statistics (text output)")

	return cmd
}

// traceRow is the structured form of one row of the traces table.
type traceRow struct {
	TraceID    string              `json:"traceId" yaml:"trace_id"`
	SpanID     string              `json:"spanId" yaml:"span_id"`
	Name       string              `json:"name" yaml:"name"`
	Kind       spanattr.SpanKind   `json:"kind" yaml:"kind"`
	StartTime  time.Time           `json:"startTime" yaml:"start_time"`
	LatencyMs  *float64            `json:"latencyMs,omitempty" yaml:"latency_ms,omitempty"`
	TokenCount *int64              `json:"tokenCount,omitempty" yaml:"token_count,omitempty"`
	Status     spanattr.StatusCode `json:"status" yaml:"status"`
	SpanCount  *int                `json:"spanCount,omitempty" yaml:"span_count,omitempty"`
	ErrorCount *int                `json:"errorCount,omitempty" yaml:"error_count,omitempty"`
}

type tracesResult struct {
	Traces   []traceRow       `json:"traces" yaml:"traces"`
	PageInfo phoenix.PageInfo `json:"pageInfo" yaml:"page_info"`
}

func tracesCmd(a *app) *cobra.Command {
	var (
		opts   phoenix.ListOptions
		sort   string
		all    bool
		expand bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "traces",
		Short: "List root spans from Phoenix, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			if opts.First < 0 {
				return fmt.Errorf("--first must not be negative, got %d", opts.First)
			}
			s, err := parseSort(sort)
			if err != nil {
				return err
			}
			opts.Sort = s

			client, err := a.phoenixClient()
			if err != nil {
				return err
			}
			defer client.Close()

			var page phoenix.TracePage
			if all {
				err = client.EachPage(cmd.Context(), opts, func(p phoenix.TracePage) error {
					page.Spans = append(page.Spans, p.Spans...)
					return nil
				})
			} else {
				page, err = client.Traces(cmd.Context(), opts)
			}
			if err != nil {
				return err
			}

			var summaries map[string]traceimport.Summary
			if expand {
				if summaries, err = expandRoots(cmd.Context(), client, a.logger, page.Spans); err != nil {
					return err
				}
			}

			if output == outputText {
				a.renderer(cmd.OutOrStdout()).TraceList(page, summaries)
				return nil
			}
			result := tracesResult{Traces: make([]traceRow, 0, len(page.Spans)), PageInfo: page.PageInfo}
			for _, s := range page.Spans {
				row := traceRow{
					TraceID:    s.TraceID,
					SpanID:     s.SpanID,
					Name:       s.Name,
					Kind:       s.Kind,
					StartTime:  s.StartTime,
					LatencyMs:  s.LatencyMs,
					TokenCount: s.TokenCountTotal,
					Status:     s.StatusCode,
				}
				if sum, ok := summaries[s.TraceID]; ok {
					row.SpanCount, row.ErrorCount = &sum.SpanCount, &sum.ErrorCount
				}
				result.Traces = append(result.Traces, row)
			}
			return traceimport.Encode(cmd.OutOrStdout(), result, traceimport.OutputFormat(output))
		},
	}

	cmd.Flags().IntVar(&opts.First, "first", 0, "page size (0 = server default of 100)")
	cmd.Flags().StringVar(&opts.After, "after", "", "cursor of the previous page")
	cmd.Flags().StringVar(&sort, "sort", "startTime:desc", "sort column and direction, e.g. latencyMs:asc")
	cmd.Flags().StringVar(&opts.FilterCondition, "filter", "", "Phoenix span filter condition, e.g. \"span_kind == 'LLM'\"")
	cmd.Flags().BoolVar(&all, "all", false, "follow cursors until the last page")
	cmd.Flags().BoolVar(&expand, "expand", false, "fetch every listed trace and add its span and error counts")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format: text, json or yaml")

	return cmd
}

// expandRoots fetches the full trace behind each root span and summarises it
// by trace ID. Roots that share a trace, such as orphaned subtrees, are served
// from the client's trace cache.
func expandRoots(ctx context.Context, client *phoenix.Client, logger *zap.Logger, roots []spanattr.Span) (map[string]traceimport.Summary, error) {
	summaries := make(map[string]traceimport.Summary, len(roots))
	for _, root := range roots {
		spans, err := client.Trace(ctx, root.TraceID)
		if err != nil {
			return nil, fmt.Errorf("expanding trace %s: %w", root.TraceID, err)
		}
		for _, tree := range traceimport.BuildTrees(spans, logger) {
			summaries[tree.TraceID] = traceimport.Summarize(tree)
		}
	}
	return summaries, nil
}

// parseSort parses col[:dir] where dir is asc or desc.
func parseSort(s string) (phoenix.Sort, error) {
	col, dir, found := strings.Cut(strings.TrimSpace(s), ":")
	if col == "" {
		return phoenix.Sort{}, fmt.Errorf("invalid --sort %q: missing column", s)
	}
	sort := phoenix.Sort{Col: col, Dir: phoenix.SortDesc}
	if found {
		switch phoenix.SortDir(strings.ToLower(dir)) {
		case phoenix.SortAsc:
			sort.Dir = phoenix.SortAsc
		case phoenix.SortDesc:
		default:
			return phoenix.Sort{}, fmt.Errorf("invalid --sort direction %q, valid: asc, desc", dir)
		}
	}
	return sort, nil
}
