// Self-telemetry providers, profiling and the Prometheus endpoint
// Providers share one resource and export to stderr or an OTLP collector
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // pprof endpoint is opt-in via --pprof flag
	"sync"
	"time"

	"github.com/andrewh/tracelens/internal/config"
	"github.com/grafana/pyroscope-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// telemetry holds the providers tracelens reports its own activity through.
type telemetry struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	loggerProvider *sdklog.LoggerProvider
}

// newTelemetry creates providers for the --telemetry mode. Mode none keeps
// the providers but attaches no exporters.
func newTelemetry(ctx context.Context, cfg *config.Config, w io.Writer) (*telemetry, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", "tracelens"),
		attribute.String("tracelens.version", version),
	))
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	if cfg.Telemetry == "none" {
		return &telemetry{
			tracerProvider: sdktrace.NewTracerProvider(sdktrace.WithResource(res)),
			meterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithResource(res)),
			loggerProvider: sdklog.NewLoggerProvider(sdklog.WithResource(res)),
		}, nil
	}

	stdout := cfg.Telemetry == "stdout"

	traceExporter, err := createTraceExporter(ctx, cfg, w)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	var sp sdktrace.SpanProcessor
	if stdout {
		sp = sdktrace.NewSimpleSpanProcessor(traceExporter)
	} else {
		sp = sdktrace.NewBatchSpanProcessor(traceExporter)
	}

	metricExporter, err := createMetricExporter(ctx, cfg, w)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	logExporter, err := createLogExporter(ctx, cfg, w)
	if err != nil {
		return nil, fmt.Errorf("creating log exporter: %w", err)
	}
	var processor sdklog.Processor
	if stdout {
		processor = sdklog.NewSimpleProcessor(logExporter)
	} else {
		processor = sdklog.NewBatchProcessor(logExporter)
	}

	return &telemetry{
		tracerProvider: sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(sp),
			sdktrace.WithResource(res),
		),
		meterProvider: sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
			sdkmetric.WithResource(res),
		),
		loggerProvider: sdklog.NewLoggerProvider(
			sdklog.WithProcessor(processor),
			sdklog.WithResource(res),
		),
	}, nil
}

// shutdown flushes and stops every provider.
func (t *telemetry) shutdown(w io.Writer) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	shutdownAll(ctx, w, []shutdownable{t.tracerProvider, t.meterProvider, t.loggerProvider})
}

func createTraceExporter(ctx context.Context, cfg *config.Config, w io.Writer) (sdktrace.SpanExporter, error) {
	if cfg.Telemetry == "stdout" {
		return stdouttrace.New(stdouttrace.WithWriter(w))
	}
	switch cfg.OTLPProtocol {
	case "grpc":
		var grpcOpts []otlptracegrpc.Option
		if cfg.OTLPEndpoint != "" {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint), otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, grpcOpts...)
	case "http/protobuf", "":
		var httpOpts []otlptracehttp.Option
		if cfg.OTLPEndpoint != "" {
			httpOpts = append(httpOpts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint), otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, httpOpts...)
	default:
		return nil, fmt.Errorf("unsupported protocol %q, supported: http/protobuf, grpc", cfg.OTLPProtocol)
	}
}

func createMetricExporter(ctx context.Context, cfg *config.Config, w io.Writer) (sdkmetric.Exporter, error) {
	if cfg.Telemetry == "stdout" {
		return stdoutmetric.New(stdoutmetric.WithWriter(w))
	}
	switch cfg.OTLPProtocol {
	case "grpc":
		var grpcOpts []otlpmetricgrpc.Option
		if cfg.OTLPEndpoint != "" {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint), otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, grpcOpts...)
	case "http/protobuf", "":
		var httpOpts []otlpmetrichttp.Option
		if cfg.OTLPEndpoint != "" {
			httpOpts = append(httpOpts, otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint), otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, httpOpts...)
	default:
		return nil, fmt.Errorf("unsupported protocol %q for metrics", cfg.OTLPProtocol)
	}
}

func createLogExporter(ctx context.Context, cfg *config.Config, w io.Writer) (sdklog.Exporter, error) {
	if cfg.Telemetry == "stdout" {
		return stdoutlog.New(stdoutlog.WithWriter(w))
	}
	switch cfg.OTLPProtocol {
	case "grpc":
		var grpcOpts []otlploggrpc.Option
		if cfg.OTLPEndpoint != "" {
			grpcOpts = append(grpcOpts, otlploggrpc.WithEndpoint(cfg.OTLPEndpoint), otlploggrpc.WithInsecure())
		}
		return otlploggrpc.New(ctx, grpcOpts...)
	case "http/protobuf", "":
		var httpOpts []otlploghttp.Option
		if cfg.OTLPEndpoint != "" {
			httpOpts = append(httpOpts, otlploghttp.WithEndpoint(cfg.OTLPEndpoint), otlploghttp.WithInsecure())
		}
		return otlploghttp.New(ctx, httpOpts...)
	default:
		return nil, fmt.Errorf("unsupported protocol %q for logs", cfg.OTLPProtocol)
	}
}

// shutdownable is anything with a Shutdown method (TracerProvider, MeterProvider, LoggerProvider).
type shutdownable interface {
	Shutdown(context.Context) error
}

// shutdownAll shuts down all items concurrently within the given context.
// Errors are written to w individually; a slow item does not block others.
func shutdownAll[S shutdownable](ctx context.Context, w io.Writer, items []S) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, item := range items {
		wg.Go(func() {
			if err := item.Shutdown(ctx); err != nil {
				mu.Lock()
				_, _ = fmt.Fprintf(w, "error shutting down telemetry: %v\n", err)
				mu.Unlock()
			}
		})
	}
	wg.Wait()
}

// startPprof serves net/http/pprof on addr until the process exits.
func startPprof(addr string, logger *zap.Logger) {
	go func() {
		logger.Info("pprof server listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil { //nolint:gosec // pprof server is opt-in via flag
			logger.Error("pprof server failed", zap.Error(err))
		}
	}()
}

// startPyroscope sends continuous CPU and allocation profiles to serverAddr.
func startPyroscope(serverAddr string) (*pyroscope.Profiler, error) {
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: "tracelens",
		ServerAddress:   serverAddr,
		Tags:            map[string]string{"version": version},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("starting pyroscope profiler: %w", err)
	}
	return profiler, nil
}

// serveMetrics exposes reg on addr at /metrics. The returned server is
// already listening in the background.
func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
