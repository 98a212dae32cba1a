// Inspector for OpenInference LLM traces
// Reads spans from Phoenix or trace exports and renders kind-specific views of their attributes
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"

	"github.com/andrewh/tracelens/internal/config"
	"github.com/andrewh/tracelens/pkg/inspect"
	"github.com/andrewh/tracelens/pkg/phoenix"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	a := &app{}
	err := rootCmd(a).Execute()
	a.close()
	if err != nil {
		os.Exit(1)
	}
}

// app carries the resolved configuration and process-wide services to every command.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	telemetry *telemetry
	registry  *prometheus.Registry
	closers   []func()
}

func rootCmd(a *app) *cobra.Command {
	var configPath string
	d := config.Defaults()

	root := &cobra.Command{
		Use:          "tracelens",
		Short:        "Inspect OpenInference LLM traces",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, configPath)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&configPath, "config", "", "config file (default $HOME/"+config.DefaultFile+")")
	f.String("endpoint", d.Endpoint, "Phoenix server URL")
	f.String("api-key", "", "Phoenix API key, sent as a bearer token")
	f.String("project", d.Project, "Phoenix project global ID")
	f.Duration("timeout", d.Timeout, "timeout for each Phoenix request")
	f.Float64("rate", 0, "maximum Phoenix requests per second (0 = unlimited)")
	f.Int64("cache-size", d.CacheSize, "spans kept in the trace cache (0 disables caching)")
	f.String("log-level", d.LogLevel, "log level: debug, info, warn or error")
	f.String("telemetry", d.Telemetry, "self-telemetry output: none, stdout or otlp")
	f.String("otlp-endpoint", "", "OTLP endpoint for --telemetry otlp (e.g. localhost:4318)")
	f.String("otlp-protocol", d.OTLPProtocol, "OTLP protocol (http/protobuf or grpc)")
	f.Duration("slow-threshold", 0, "log spans slower than this (0 disables)")
	f.String("pprof", "", "start pprof HTTP server on this address (e.g. :6060)")
	f.String("pyroscope", "", "send continuous profiles to this Pyroscope server URL")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	root.AddCommand(inspectCmd(a))
	root.AddCommand(traceCmd(a))
	root.AddCommand(tracesCmd(a))
	root.AddCommand(lintCmd(a))
	root.AddCommand(conventionsCmd(a))
	root.AddCommand(timelineCmd(a))
	root.AddCommand(versionCmd())

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "tracelens %s (commit: %s, built: %s)\n", version, commit, buildTime)
		},
	}
}

// setup resolves configuration and starts logging, telemetry and profiling.
// Everything started here is stopped by close.
func (a *app) setup(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(config.New(), configPath, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := newLogger(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.logger = logger
	a.onClose(func() { _ = logger.Sync() })

	if cfg.Pprof != "" {
		startPprof(cfg.Pprof, logger)
	}
	if cfg.Pyroscope != "" {
		profiler, err := startPyroscope(cfg.Pyroscope)
		if err != nil {
			return err
		}
		a.onClose(func() { _ = profiler.Stop() })
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, a.registry, logger)
		a.onClose(func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(ctx)
		})
	}

	tel, err := newTelemetry(cmd.Context(), cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.telemetry = tel
	stderr := cmd.ErrOrStderr()
	a.onClose(func() { tel.shutdown(stderr) })
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	ctx, span := tel.tracerProvider.Tracer("tracelens").Start(cmd.Context(), "tracelens "+cmd.Name())
	cmd.SetContext(ctx)
	a.onClose(func() { span.End() })
	return nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// close runs the registered closers in reverse order.
func (a *app) close() {
	for _, fn := range slices.Backward(a.closers) {
		fn()
	}
	a.closers = nil
}

func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	encoder := zapcore.NewConsoleEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), lvl)), nil
}

// phoenixClient builds a Phoenix client from the resolved configuration.
func (a *app) phoenixClient() (*phoenix.Client, error) {
	client, err := phoenix.NewClient(a.cfg.Endpoint,
		phoenix.WithAPIKey(a.cfg.APIKey),
		phoenix.WithProject(a.cfg.Project),
		phoenix.WithHTTPClient(&http.Client{Timeout: a.cfg.Timeout}),
		phoenix.WithCacheSize(a.cfg.CacheSize),
		phoenix.WithRateLimit(a.cfg.Rate),
		phoenix.WithLogger(a.logger),
		phoenix.WithTracerProvider(a.telemetry.tracerProvider),
		phoenix.WithMetrics(a.registry),
	)
	if err != nil {
		return nil, fmt.Errorf("creating Phoenix client: %w", err)
	}
	return client, nil
}

// inspector builds an Inspector that reports through the self-telemetry
// providers, plus any extra observers.
func (a *app) inspector(extra ...inspect.SpanObserver) (*inspect.Inspector, error) {
	metrics, err := inspect.NewMetricObserver(a.telemetry.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("creating metric observer: %w", err)
	}
	observers := []inspect.SpanObserver{
		metrics,
		inspect.NewLogObserver(a.telemetry.loggerProvider, a.cfg.SlowThreshold),
	}
	return &inspect.Inspector{
		Observers: append(observers, extra...),
		Logger:    a.logger,
	}, nil
}

// colorEnabled reports whether w is a terminal that should receive colour.
func colorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}
