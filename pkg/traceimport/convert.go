// Conversion of flat OpenInference attributes into span records
// Shared by the OTLP and stdouttrace parsers
package traceimport

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/andrewh/tracelens/pkg/spanattr"
)

// Flat OpenInference keys read while building a span record.
const (
	keySpanKind             = "openinference.span.kind"
	keyInputValue           = "input.value"
	keyInputMimeType        = "input.mime_type"
	keyOutputValue          = "output.value"
	keyOutputMimeType       = "output.mime_type"
	keyTokenCountTotal      = "llm.token_count.total"
	keyTokenCountPrompt     = "llm.token_count.prompt"
	keyTokenCountCompletion = "llm.token_count.completion"
)

// encodedSuffixes are keys whose values are exported as JSON strings and
// decoded back into objects before nesting.
var encodedSuffixes = []string{"metadata", "prompt_template.variables"}

type spanHeader struct {
	traceID  string
	spanID   string
	parentID string
	name     string
	start    time.Time
	end      time.Time
}

func recordFromFlat(flat map[string]any, h spanHeader) spanattr.Span {
	decodeEncodedValues(flat)

	rec := spanattr.Span{
		SpanID:               h.spanID,
		TraceID:              h.traceID,
		ParentID:             h.parentID,
		Name:                 h.name,
		StartTime:            h.start,
		Kind:                 spanattr.KindUnknown,
		Input:                ioValue(flat, keyInputValue, keyInputMimeType),
		Output:               ioValue(flat, keyOutputValue, keyOutputMimeType),
		TokenCountTotal:      tokenCount(flat, keyTokenCountTotal),
		TokenCountPrompt:     tokenCount(flat, keyTokenCountPrompt),
		TokenCountCompletion: tokenCount(flat, keyTokenCountCompletion),
	}
	if kind, ok := flat[keySpanKind].(string); ok {
		rec.Kind = spanattr.ParseSpanKind(kind)
	}
	if !h.end.IsZero() && h.end.After(h.start) {
		ms := float64(h.end.Sub(h.start)) / float64(time.Millisecond)
		rec.LatencyMs = &ms
	}
	if rec.TokenCountTotal == nil && rec.TokenCountPrompt != nil && rec.TokenCountCompletion != nil {
		total := *rec.TokenCountPrompt + *rec.TokenCountCompletion
		rec.TokenCountTotal = &total
	}

	blob, err := json.Marshal(Nest(flat))
	if err == nil {
		rec.Attributes = string(blob)
	}
	return rec
}

func decodeEncodedValues(flat map[string]any) {
	for key, v := range flat {
		s, ok := v.(string)
		if !ok || !hasEncodedSuffix(key) {
			continue
		}
		var obj map[string]any
		if json.Unmarshal([]byte(s), &obj) == nil && obj != nil {
			flat[key] = obj
		}
	}
}

func hasEncodedSuffix(key string) bool {
	for _, suffix := range encodedSuffixes {
		if key == suffix || strings.HasSuffix(key, "."+suffix) {
			return true
		}
	}
	return false
}

func ioValue(flat map[string]any, valueKey, mimeKey string) *spanattr.IOValue {
	v, ok := flat[valueKey].(string)
	if !ok {
		return nil
	}
	mime := spanattr.MimeText
	if m, _ := flat[mimeKey].(string); strings.Contains(m, "json") {
		mime = spanattr.MimeJSON
	}
	return &spanattr.IOValue{Value: v, MimeType: mime}
}

func tokenCount(flat map[string]any, key string) *int64 {
	f, ok := flat[key].(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int64(f)
	return &n
}
