package main

import (
	"github.com/spf13/cobra"
)

func inspectCmd(a *app) *cobra.Command {
	var (
		format string
		opts   reportOptions
	)

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Interpret the attributes of recorded spans",
		Long: "Reads spans (Phoenix GraphQL JSON, OTLP JSON or stdouttrace) and renders\n" +
			"each trace, or the kind-specific view of one span with --span.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(opts.output); err != nil {
				return err
			}
			res, err := a.importSpans(cmd, args, format)
			if err != nil {
				return err
			}
			return a.report(cmd.Context(), cmd, res.Spans, opts)
		},
	}

	cmd.Flags().StringVar(&format, "format", "auto", "input format: auto, phoenix, otlp or stdouttrace")
	cmd.Flags().StringVar(&opts.spanID, "span", "", "show the detail view of this span")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputText, "output format: text, json or yaml")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "append per-kind statistics (text output)")

	return cmd
}
