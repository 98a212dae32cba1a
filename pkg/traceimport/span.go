// Format-specific parsers producing span records for attribute interpretation
// Handles Phoenix GraphQL responses, OTLP protobuf JSON and stdouttrace line-delimited JSON
package traceimport

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/andrewh/tracelens/pkg/spanattr"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
	"google.golang.org/protobuf/encoding/protojson"
)

// Format identifies the input trace format.
type Format string

const (
	FormatAuto        Format = "auto"
	FormatPhoenix     Format = "phoenix"
	FormatOTLP        Format = "otlp"
	FormatStdouttrace Format = "stdouttrace"
)

// maxInputSize is the maximum input size to prevent OOM on large trace exports.
const maxInputSize = 256 * 1024 * 1024 // 256 MB

var errNoSpans = fmt.Errorf("no spans found in input")

// ParseSpans reads span records from the given reader in the specified format.
// FormatAuto inspects the first JSON value to determine the format.
func ParseSpans(r io.Reader, format Format) ([]spanattr.Span, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if len(data) > maxInputSize {
		return nil, fmt.Errorf("input exceeds maximum size of %d MB", maxInputSize/(1024*1024))
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errNoSpans
	}

	if format == FormatAuto || format == "" {
		format, err = detectFormat(data)
		if err != nil {
			return nil, err
		}
	}

	var spans []spanattr.Span
	switch format {
	case FormatPhoenix:
		spans, err = parsePhoenix(data)
	case FormatOTLP:
		spans, err = parseOTLP(data)
	case FormatStdouttrace:
		spans, err = parseStdouttrace(data)
	default:
		return nil, fmt.Errorf("unknown format %q, valid formats: auto, phoenix, otlp, stdouttrace", format)
	}
	if err != nil {
		return nil, err
	}
	if len(spans) == 0 {
		return nil, errNoSpans
	}
	return spans, nil
}

// detectFormat examines the input to determine the format.
// Tries the first line (for line-delimited stdouttrace), then the full data
// (for pretty-printed documents).
func detectFormat(data []byte) (Format, error) {
	if data[0] == '[' {
		return FormatPhoenix, nil
	}

	firstLine, _, hasMore := bytes.Cut(data, []byte{'\n'})
	if f, ok := probeFormat(bytes.TrimSpace(firstLine)); ok {
		return f, nil
	}
	if hasMore {
		if f, ok := probeFormat(data); ok {
			return f, nil
		}
	}
	return "", fmt.Errorf("cannot detect format: input has neither data.spans (phoenix), resourceSpans (OTLP) nor SpanContext (stdouttrace)")
}

func probeFormat(doc []byte) (Format, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(doc, &probe); err != nil {
		return "", false
	}
	switch {
	case probe["resourceSpans"] != nil:
		return FormatOTLP, true
	case probe["SpanContext"] != nil:
		return FormatStdouttrace, true
	case probe["data"] != nil, probe["spans"] != nil:
		return FormatPhoenix, true
	}
	return "", false
}

// PhoenixSpan mirrors a span node of the Phoenix GraphQL trace query.
type PhoenixSpan struct {
	Context struct {
		SpanID  string `json:"spanId"`
		TraceID string `json:"traceId"`
	} `json:"context"`
	Name                 string             `json:"name"`
	SpanKind             string             `json:"spanKind"`
	StatusCode           string             `json:"statusCode"`
	StatusMessage        string             `json:"statusMessage"`
	StartTime            time.Time          `json:"startTime"`
	ParentID             *string            `json:"parentId"`
	LatencyMs            *float64           `json:"latencyMs"`
	TokenCountTotal      *int64             `json:"tokenCountTotal"`
	TokenCountPrompt     *int64             `json:"tokenCountPrompt"`
	TokenCountCompletion *int64             `json:"tokenCountCompletion"`
	Input                *spanattr.IOValue  `json:"input"`
	Output               *spanattr.IOValue  `json:"output"`
	Attributes           string             `json:"attributes"`
	Events               []phoenixEvent     `json:"events"`
	SpanEvaluations      []phoenixEval      `json:"spanEvaluations"`
	DocumentEvaluations  []phoenixDocEval   `json:"documentEvaluations"`
	DocumentMetrics      []phoenixDocMetric `json:"documentRetrievalMetrics"`
}

type phoenixEvent struct {
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type phoenixEval struct {
	Name        string   `json:"name"`
	Label       *string  `json:"label"`
	Score       *float64 `json:"score"`
	Explanation *string  `json:"explanation"`
}

type phoenixDocEval struct {
	phoenixEval
	DocumentPosition int `json:"documentPosition"`
}

type phoenixDocMetric struct {
	EvaluationName string   `json:"evaluationName"`
	NDCG           *float64 `json:"ndcg"`
	Precision      *float64 `json:"precision"`
	Hit            *float64 `json:"hit"`
}

// PhoenixEdges is the connection shape of a Phoenix spans query.
type PhoenixEdges struct {
	Edges []struct {
		Span PhoenixSpan  `json:"span"`
		Node *PhoenixSpan `json:"node"`
	} `json:"edges"`
}

// Spans returns the span records of the connection, accepting either the
// aliased "span" field or the plain "node" field on each edge.
func (e PhoenixEdges) Spans() []spanattr.Span {
	spans := make([]spanattr.Span, 0, len(e.Edges))
	for _, edge := range e.Edges {
		if edge.Node != nil {
			spans = append(spans, edge.Node.ToSpan())
			continue
		}
		spans = append(spans, edge.Span.ToSpan())
	}
	return spans
}

// ToSpan converts the wire shape into a span record.
func (p PhoenixSpan) ToSpan() spanattr.Span {
	s := spanattr.Span{
		SpanID:               p.Context.SpanID,
		TraceID:              p.Context.TraceID,
		Name:                 p.Name,
		Kind:                 spanattr.ParseSpanKind(p.SpanKind),
		StatusCode:           parseStatusCode(p.StatusCode),
		StatusMessage:        p.StatusMessage,
		StartTime:            p.StartTime,
		LatencyMs:            p.LatencyMs,
		TokenCountTotal:      p.TokenCountTotal,
		TokenCountPrompt:     p.TokenCountPrompt,
		TokenCountCompletion: p.TokenCountCompletion,
		Input:                p.Input,
		Output:               p.Output,
		Attributes:           p.Attributes,
	}
	if p.ParentID != nil {
		s.ParentID = *p.ParentID
	}
	for _, e := range p.Events {
		s.Events = append(s.Events, spanattr.SpanEvent(e))
	}
	for _, e := range p.SpanEvaluations {
		s.SpanEvaluations = append(s.SpanEvaluations, spanattr.Evaluation(e))
	}
	for _, e := range p.DocumentEvaluations {
		s.DocumentEvaluations = append(s.DocumentEvaluations, spanattr.DocumentEvaluation{
			Evaluation:       spanattr.Evaluation(e.phoenixEval),
			DocumentPosition: e.DocumentPosition,
		})
	}
	for _, m := range p.DocumentMetrics {
		s.DocumentRetrievalMetrics = append(s.DocumentRetrievalMetrics, spanattr.RetrievalMetric(m))
	}
	return s
}

func parseStatusCode(code string) spanattr.StatusCode {
	switch spanattr.StatusCode(code) {
	case spanattr.StatusOK, spanattr.StatusError:
		return spanattr.StatusCode(code)
	}
	return spanattr.StatusUnset
}

func parsePhoenix(data []byte) ([]spanattr.Span, error) {
	if data[0] == '[' {
		var nodes []PhoenixSpan
		if err := json.Unmarshal(data, &nodes); err != nil {
			return nil, fmt.Errorf("parsing phoenix spans: %w", err)
		}
		spans := make([]spanattr.Span, 0, len(nodes))
		for _, n := range nodes {
			spans = append(spans, n.ToSpan())
		}
		return spans, nil
	}

	var doc struct {
		Data *struct {
			Spans PhoenixEdges `json:"spans"`
		} `json:"data"`
		Spans *PhoenixEdges `json:"spans"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing phoenix response: %w", err)
	}
	switch {
	case doc.Data != nil:
		return doc.Data.Spans.Spans(), nil
	case doc.Spans != nil:
		return doc.Spans.Spans(), nil
	}
	return nil, nil
}

func parseOTLP(data []byte) ([]spanattr.Span, error) {
	var req coltracepb.ExportTraceServiceRequest
	opts := protojson.UnmarshalOptions{DiscardUnknown: true}
	if err := opts.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parsing OTLP: %w", err)
	}

	var spans []spanattr.Span
	for _, rs := range req.ResourceSpans {
		for _, ss := range rs.ScopeSpans {
			for _, span := range ss.Spans {
				parentID := hex.EncodeToString(span.ParentSpanId)
				if isZeroID(parentID) {
					parentID = ""
				}

				flat := make(map[string]any, len(span.Attributes))
				for _, kv := range span.Attributes {
					flat[kv.Key] = anyValue(kv.Value)
				}

				rec := recordFromFlat(flat, spanHeader{
					traceID:  hex.EncodeToString(span.TraceId),
					spanID:   hex.EncodeToString(span.SpanId),
					parentID: parentID,
					name:     span.Name,
					start:    time.Unix(0, int64(span.StartTimeUnixNano)), //nolint:gosec // nanosecond timestamps are always positive
					end:      time.Unix(0, int64(span.EndTimeUnixNano)),   //nolint:gosec // nanosecond timestamps are always positive
				})
				rec.StatusCode, rec.StatusMessage = otlpStatus(span.Status)
				for _, ev := range span.Events {
					rec.Events = append(rec.Events, eventFromOTLP(ev))
				}
				spans = append(spans, rec)
			}
		}
	}
	return spans, nil
}

func otlpStatus(st *tracepb.Status) (spanattr.StatusCode, string) {
	if st == nil {
		return spanattr.StatusUnset, ""
	}
	switch st.Code {
	case tracepb.Status_STATUS_CODE_ERROR:
		return spanattr.StatusError, st.Message
	case tracepb.Status_STATUS_CODE_OK:
		return spanattr.StatusOK, st.Message
	}
	return spanattr.StatusUnset, st.Message
}

func eventFromOTLP(ev *tracepb.Span_Event) spanattr.SpanEvent {
	out := spanattr.SpanEvent{
		Name:      ev.Name,
		Timestamp: time.Unix(0, int64(ev.TimeUnixNano)), //nolint:gosec // nanosecond timestamps are always positive
	}
	for _, kv := range ev.Attributes {
		if kv.Key == "exception.message" {
			out.Message = kv.Value.GetStringValue()
		}
	}
	return out
}

// anyValue converts an OTLP AnyValue into a plain JSON-compatible value.
func anyValue(v *commonpb.AnyValue) any {
	switch val := v.GetValue().(type) {
	case *commonpb.AnyValue_StringValue:
		return val.StringValue
	case *commonpb.AnyValue_BoolValue:
		return val.BoolValue
	case *commonpb.AnyValue_IntValue:
		return float64(val.IntValue)
	case *commonpb.AnyValue_DoubleValue:
		if math.IsNaN(val.DoubleValue) || math.IsInf(val.DoubleValue, 0) {
			return strconv.FormatFloat(val.DoubleValue, 'g', -1, 64)
		}
		return val.DoubleValue
	case *commonpb.AnyValue_ArrayValue:
		out := make([]any, 0, len(val.ArrayValue.GetValues()))
		for _, item := range val.ArrayValue.GetValues() {
			out = append(out, anyValue(item))
		}
		return out
	case *commonpb.AnyValue_KvlistValue:
		out := make(map[string]any, len(val.KvlistValue.GetValues()))
		for _, kv := range val.KvlistValue.GetValues() {
			out[kv.Key] = anyValue(kv.Value)
		}
		return out
	case *commonpb.AnyValue_BytesValue:
		return hex.EncodeToString(val.BytesValue)
	}
	return nil
}

// stdouttraceEvent mirrors the Go SDK's stdouttrace JSON output.
type stdouttraceEvent struct {
	Name        string `json:"Name"`
	SpanContext struct {
		TraceID string `json:"TraceID"`
		SpanID  string `json:"SpanID"`
	} `json:"SpanContext"`
	Parent struct {
		TraceID string `json:"TraceID"`
		SpanID  string `json:"SpanID"`
	} `json:"Parent"`
	StartTime  time.Time `json:"StartTime"`
	EndTime    time.Time `json:"EndTime"`
	Attributes []sdkAttr `json:"Attributes"`
	Events     []struct {
		Name       string    `json:"Name"`
		Attributes []sdkAttr `json:"Attributes"`
		Time       time.Time `json:"Time"`
	} `json:"Events"`
	Status struct {
		Code        string `json:"Code"`
		Description string `json:"Description"`
	} `json:"Status"`
}

type sdkAttr struct {
	Key   string `json:"Key"`
	Value struct {
		Type  string `json:"Type"`
		Value any    `json:"Value"`
	} `json:"Value"`
}

func parseStdouttrace(data []byte) ([]spanattr.Span, error) {
	var spans []spanattr.Span
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var evt stdouttraceEvent
		if err := json.Unmarshal(line, &evt); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		// Determine parent ID, treating all-zeros as empty (root span)
		parentID := evt.Parent.SpanID
		if isZeroID(parentID) {
			parentID = ""
		}

		flat := make(map[string]any, len(evt.Attributes))
		for _, attr := range evt.Attributes {
			flat[attr.Key] = attr.Value.Value
		}

		rec := recordFromFlat(flat, spanHeader{
			traceID:  evt.SpanContext.TraceID,
			spanID:   evt.SpanContext.SpanID,
			parentID: parentID,
			name:     evt.Name,
			start:    evt.StartTime,
			end:      evt.EndTime,
		})
		switch evt.Status.Code {
		case "Error":
			rec.StatusCode = spanattr.StatusError
		case "Ok":
			rec.StatusCode = spanattr.StatusOK
		default:
			rec.StatusCode = spanattr.StatusUnset
		}
		rec.StatusMessage = evt.Status.Description
		for _, ev := range evt.Events {
			se := spanattr.SpanEvent{Name: ev.Name, Timestamp: ev.Time}
			for _, a := range ev.Attributes {
				if a.Key == "exception.message" {
					se.Message = fmt.Sprint(a.Value.Value)
				}
			}
			rec.Events = append(rec.Events, se)
		}
		spans = append(spans, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return spans, nil
}

// isZeroID checks if a hex-encoded ID is empty or all zeros.
func isZeroID(id string) bool {
	for _, c := range id {
		if c != '0' {
			return false
		}
	}
	return true
}
