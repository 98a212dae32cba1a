// Semantic-convention commands: lint findings and the registry listing
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/andrewh/tracelens/pkg/inspect"
	"github.com/andrewh/tracelens/pkg/semconv"
	"github.com/andrewh/tracelens/pkg/traceimport"
	"github.com/spf13/cobra"
)

type lintResult struct {
	Spans    int                    `json:"spans" yaml:"spans"`
	Total    int                    `json:"total" yaml:"total"`
	Findings []inspect.SpanFindings `json:"findings" yaml:"findings"`
}

func lintCmd(a *app) *cobra.Command {
	var (
		format     string
		semconvDir string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "lint [file]",
		Short: "Check span attributes against the OpenInference conventions",
		Long: "Reports unknown keys, type mismatches and deprecated attributes under the\n" +
			"OpenInference namespaces. Exits non-zero when any finding is reported.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			reg, err := loadRegistry(semconvDir)
			if err != nil {
				return err
			}
			res, err := a.importSpans(cmd, args, format)
			if err != nil {
				return err
			}

			lint := inspect.NewLintObserver(reg)
			in, err := a.inspector(lint)
			if err != nil {
				return err
			}
			if _, err := in.Inspect(cmd.Context(), res.Spans); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			findings := lint.Results()
			if output != outputText {
				result := lintResult{Spans: len(res.Spans), Total: lint.Total(), Findings: findings}
				if err := traceimport.Encode(w, result, traceimport.OutputFormat(output)); err != nil {
					return err
				}
			} else {
				r := a.renderer(w)
				for _, sf := range findings {
					r.Findings(sf.SpanID, sf.Findings)
				}
				_, _ = fmt.Fprintf(w, "%d findings in %d of %d spans\n", lint.Total(), len(findings), len(res.Spans))
			}

			if lint.Total() > 0 {
				return fmt.Errorf("%d convention findings", lint.Total())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "auto", "input format: auto, phoenix, otlp or stdouttrace")
	cmd.Flags().StringVar(&semconvDir, "semconv", "", "directory of additional semantic convention YAML files")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "output format: text, json or yaml")

	return cmd
}

func conventionsCmd(a *app) *cobra.Command {
	var semconvDir string

	cmd := &cobra.Command{
		Use:   "conventions [domain]",
		Short: "List the OpenInference attribute conventions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadRegistry(semconvDir)
			if err != nil {
				return err
			}
			domain := ""
			if len(args) == 1 {
				domain = args[0]
				if len(reg.Domain(domain)) == 0 {
					return fmt.Errorf("unknown domain %q, known domains: %s", domain, strings.Join(reg.Domains(), ", "))
				}
			}
			a.renderer(cmd.OutOrStdout()).Conventions(reg, domain)
			return nil
		},
	}

	cmd.Flags().StringVar(&semconvDir, "semconv", "", "directory of additional semantic convention YAML files")

	return cmd
}

// loadRegistry loads the embedded OpenInference registry, merged with the
// YAML files in dir when dir is set.
func loadRegistry(dir string) (*semconv.Registry, error) {
	reg, err := semconv.LoadEmbedded()
	if err != nil {
		return nil, fmt.Errorf("loading semantic conventions: %w", err)
	}
	if dir == "" {
		return reg, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("--semconv directory %q does not exist", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("--semconv path %q is not a directory", dir)
	}
	userReg, err := semconv.Load(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("loading semantic conventions from %s: %w", dir, err)
	}
	return reg.Merge(userReg), nil
}
