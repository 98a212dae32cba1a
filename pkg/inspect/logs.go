// LogObserver derives log records from error, slow and un-parsable spans.
// Emits ERROR-severity logs for error spans and WARN-severity logs for the rest.
package inspect

import (
	"context"
	"fmt"
	"time"

	"github.com/andrewh/tracelens/pkg/spanattr"
	"go.opentelemetry.io/otel/log"
)

// LogObserver emits log records for notable spans.
type LogObserver struct {
	logger        log.Logger
	slowThreshold time.Duration
}

// NewLogObserver creates a LogObserver that emits logs via the given LoggerProvider.
// A slowThreshold of 0 disables slow span detection.
func NewLogObserver(lp log.LoggerProvider, slowThreshold time.Duration) *LogObserver {
	return &LogObserver{
		logger:        lp.Logger("tracelens"),
		slowThreshold: slowThreshold,
	}
}

// Observe emits log records for error spans, un-parsable attributes and
// spans exceeding the slow threshold.
func (l *LogObserver) Observe(info SpanInfo) {
	s := info.Span
	attrs := []log.KeyValue{
		log.String("trace_id", s.TraceID),
		log.String("span_id", s.SpanID),
		log.String("openinference.span.kind", string(info.Kind)),
	}

	if s.StatusCode == spanattr.StatusError {
		body := fmt.Sprintf("error in %s span %s", info.Kind, s.Name)
		if s.StatusMessage != "" {
			body += ": " + s.StatusMessage
		}
		l.emit(log.SeverityError, "ERROR", body, attrs)
	}

	if info.ParseErr != nil {
		l.emit(log.SeverityWarn, "WARN",
			fmt.Sprintf("un-parsable attributes on %s span %s: %v", info.Kind, s.Name, info.ParseErr.Err),
			append(attrs, log.Int("attributes.size", info.AttributeSize)))
	}

	if l.slowThreshold > 0 && s.Latency() > l.slowThreshold {
		l.emit(log.SeverityWarn, "WARN", fmt.Sprintf(
			"slow %s span %s: %s (threshold %s)",
			info.Kind, s.Name, s.Latency(), l.slowThreshold,
		), attrs)
	}
}

func (l *LogObserver) emit(sev log.Severity, text, body string, attrs []log.KeyValue) {
	var rec log.Record
	rec.SetSeverity(sev)
	rec.SetSeverityText(text)
	rec.SetBody(log.StringValue(body))
	rec.AddAttributes(attrs...)
	l.logger.Emit(context.Background(), rec)
}
