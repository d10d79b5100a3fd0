// Package subjectid builds global subject identifiers that stay unique
// across source systems.
package subjectid

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Style selects the separator between identifier parts.
type Style string

const (
	// StyleColon renders "{source}:{dataset}:{subject}".
	StyleColon Style = "colon"
	// StyleUnderscore renders "{source}_{dataset}_{subject}".
	StyleUnderscore Style = "underscore"
)

// DefaultStyle is used when none is configured.
const DefaultStyle = StyleColon

// ErrEmptyPart is returned when one of the identifier parts is empty.
var ErrEmptyPart = errors.New("global subject id needs a non-empty source, dataset and subject")

// ParseStyle validates a configured style name; "" maps to DefaultStyle.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultStyle, nil
	case StyleColon:
		return StyleColon, nil
	case StyleUnderscore:
		return StyleUnderscore, nil
	default:
		return "", fmt.Errorf("unknown subject id style %q (want colon or underscore)", s)
	}
}

// Separator returns the join string for the style.
func (s Style) Separator() string {
	if s == StyleUnderscore {
		return "_"
	}

	return ":"
}

// Format joins the three parts. It is a pure function of its inputs.
func Format(style Style, source, dataset, subject string) (string, error) {
	source = strings.TrimSpace(source)
	dataset = strings.TrimSpace(dataset)
	subject = strings.TrimSpace(subject)

	if source == "" || dataset == "" || subject == "" {
		return "", ErrEmptyPart
	}

	sep := style.Separator()

	return source + sep + dataset + sep + subject, nil
}

// FormatValues is Format for decoded JSON scalars, so numeric subject ids
// render without a fractional part.
func FormatValues(style Style, source, dataset, subject any) (string, error) {
	parts := make([]string, 3)

	for i, v := range []any{source, dataset, subject} {
		s, ok := Scalar(v)
		if !ok {
			return "", fmt.Errorf("global subject id part %d: expected a scalar, got %T", i+1, v)
		}

		parts[i] = s
	}

	return Format(style, parts[0], parts[1], parts[2])
}

// Scalar renders a JSON scalar as a string. Objects, arrays and null are
// rejected.
func Scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10), true
		}

		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case fmt.Stringer:
		return t.String(), true
	default:
		return "", false
	}
}
