// MetricObserver derives interpretation counts, parse failures and attribute sizes from spans.
// Uses the OTel Metrics API to record measurements with span kind and display attributes.
package inspect

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricObserver records derived metrics for each observed span.
type MetricObserver struct {
	interpreted metric.Int64Counter
	parseErrors metric.Int64Counter
	size        metric.Int64Histogram
}

// NewMetricObserver creates a MetricObserver backed by the given MeterProvider.
func NewMetricObserver(mp metric.MeterProvider) (*MetricObserver, error) {
	meter := mp.Meter("tracelens")

	interpreted, err := meter.Int64Counter("tracelens.spans.interpreted",
		metric.WithDescription("Number of interpreted spans"),
	)
	if err != nil {
		return nil, err
	}

	parseErrors, err := meter.Int64Counter("tracelens.attributes.parse_errors",
		metric.WithDescription("Number of spans whose attributes could not be parsed"),
	)
	if err != nil {
		return nil, err
	}

	size, err := meter.Int64Histogram("tracelens.attributes.size",
		metric.WithUnit("By"),
		metric.WithDescription("Size of the raw attributes blob"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricObserver{
		interpreted: interpreted,
		parseErrors: parseErrors,
		size:        size,
	}, nil
}

// Observe records metrics derived from the interpreted span.
func (m *MetricObserver) Observe(info SpanInfo) {
	kind := attribute.String("openinference.span.kind", string(info.Kind))
	m.interpreted.Add(context.Background(), 1, metric.WithAttributes(
		kind,
		attribute.String("tracelens.display", string(info.Display)),
	))
	m.size.Record(context.Background(), int64(info.AttributeSize), metric.WithAttributes(kind))
	if info.ParseErr != nil {
		m.parseErrors.Add(context.Background(), 1, metric.WithAttributes(kind))
	}
}
