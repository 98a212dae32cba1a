package main

import (
	"fmt"
	"io"
	"os"

	"github.com/andrewh/tracelens/pkg/render"
	"github.com/andrewh/tracelens/pkg/traceimport"
	"github.com/spf13/cobra"
)

func timelineCmd(a *app) *cobra.Command {
	var (
		format  string
		traceID string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "timeline [file]",
		Short: "Render one trace as an SVG waterfall",
		Long: "Render one trace as an SVG waterfall, one bar per span.\n\n" +
			"Without --trace the first trace in the input is rendered.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.importSpans(cmd, args, format)
			if err != nil {
				return err
			}
			tree, err := selectTree(res.Trees, traceID)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output) //nolint:gosec // user-supplied output path is expected
				if err != nil {
					return fmt.Errorf("creating output file: %w", err)
				}
				defer f.Close() //nolint:errcheck // best-effort close on write
				w = f
			}

			sum := traceimport.Summarize(tree)
			title := fmt.Sprintf("%s  %s  %s", sum.RootName, traceimport.RoundDuration(sum.Latency), sum.TraceID)
			if err := render.Timeline(w, tree, title); err != nil {
				return fmt.Errorf("rendering timeline: %w", err)
			}
			if output != "" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d spans to %s\n", len(tree.AllNodes), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "auto", "input format: auto, phoenix, otlp or stdouttrace")
	cmd.Flags().StringVar(&traceID, "trace", "", "trace to render (default: the first trace)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (default: stdout)")

	return cmd
}

func selectTree(trees []*traceimport.TraceTree, traceID string) (*traceimport.TraceTree, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("no traces in input")
	}
	if traceID == "" {
		return trees[0], nil
	}
	for _, t := range trees {
		if t.TraceID == traceID {
			return t, nil
		}
	}
	return nil, fmt.Errorf("trace %s not found in input", traceID)
}
