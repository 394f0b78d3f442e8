package present

import (
	"fmt"
	"time"
	"unicode"

	"github.com/amenzhinsky/iothub-d2c/consumer"
)

// TimeLayout is ISO-8601 with milliseconds, it can be parsed back with time.Parse.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// IsPrintable reports whether the given slice
// of bytes can be safely printed to console.
func IsPrintable(b []byte) bool {
	for _, r := range string(b) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// FormatPayload converts b into sequence of hex words if it's not printable.
func FormatPayload(b []byte) string {
	if IsPrintable(b) {
		return string(b)
	}
	return fmt.Sprintf("[% x]", b)
}

// FormatValue renders a property value, timestamps always carry milliseconds.
func FormatValue(v interface{}) string {
	switch v := v.(type) {
	case time.Time:
		return v.Format(TimeLayout)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.Format(TimeLayout)
	case []byte:
		return FormatPayload(v)
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// FormatProperties formats the given properties one per line
// prefixed with indent, keeping their order.
func FormatProperties(props consumer.Properties, indent string) string {
	b := make([]byte, 0, 32*len(props))
	for _, p := range props {
		b = append(b, indent...)
		b = append(b, p.Name...)
		b = append(b, ": "...)
		b = append(b, FormatValue(p.Value)...)
		b = append(b, '\n')
	}
	return string(b)
}
