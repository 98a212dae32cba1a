// Display formatting helpers for numbers, JSON code blocks and tool calls
// Invalid JSON always degrades to the raw string instead of failing
package spanattr

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var numberPrinter = message.NewPrinter(language.English)

// scientificThreshold is the magnitude from which FormatFloat switches to exponent form.
const scientificThreshold = 1e9

// FormatFloat formats a score or metric with two decimals and thousands grouping.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "∞"
	case math.IsInf(f, -1):
		return "-∞"
	case math.Abs(f) >= scientificThreshold:
		return strconv.FormatFloat(f, 'e', 2, 64)
	}
	return numberPrinter.Sprintf("%.2f", f)
}

// FormatNumber formats f with the fewest digits that represent it exactly.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// PrettyJSON indents a JSON value for display. Text values are returned as-is;
// JSON that fails to parse is returned unmodified as text.
func PrettyJSON(value string, mime MimeType) (string, MimeType) {
	if mime != MimeJSON {
		return value, MimeText
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(value), "", "  "); err != nil {
		return value, MimeText
	}
	return buf.String(), MimeJSON
}

// HasInvocationParameters reports whether params is a JSON object with at least one key.
func HasInvocationParameters(params string) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(params), &obj); err != nil {
		return false
	}
	return len(obj) > 0
}

// FormatToolCall renders a function call as name(arguments) with the
// arguments pretty printed when they are valid JSON.
func FormatToolCall(name, argumentsJSON string) string {
	args, _ := PrettyJSON(argumentsJSON, MimeJSON)
	var b strings.Builder
	b.WriteString(name)
	b.WriteString("(")
	b.WriteString(args)
	b.WriteString(")")
	return b.String()
}
