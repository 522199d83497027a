package api

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

import (
	"github.com/nanjiek/meetingkit/apierr"
)

const dateLayout = "2006-01-02"

// FormatDate renders t as yyyy-mm-dd.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate accepts yyyy-mm-dd, yyyy/mm/dd (or a mix of both separators,
// with one or two digit month and day) and RFC 3339 timestamps. label names
// the field in the error, e.g. "Start".
func ParseDate(s, label string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '/' })
	if len(parts) == 3 {
		y, errY := strconv.Atoi(parts[0])
		m, errM := strconv.Atoi(parts[1])
		d, errD := strconv.Atoi(parts[2])
		if errY == nil && errM == nil && errD == nil && len(parts[0]) == 4 &&
			m >= 1 && m <= 12 && d >= 1 && d <= 31 {
			t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
			if t.Day() == d {
				return t, nil
			}
		}
	}
	return time.Time{}, &apierr.ValidationError{
		Code:    apierr.CodeInvalidDate,
		Message: fmt.Sprintf("%s date %q is not a valid date", label, s),
	}
}

// SanitizeInt coerces a loosely typed value into an int. Strings are
// trimmed; fractional numbers are rejected.
func SanitizeInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, fmt.Errorf("%v is not a whole number", n)
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%q is not a valid number", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%T is not a number", v)
	}
}

// ParseFlag coerces a loosely typed flag. Any non-empty string other than
// "false", "0", "no" and "off" counts as set.
func ParseFlag(v any) bool {
	switch f := v.(type) {
	case nil:
		return false
	case bool:
		return f
	case int:
		return f != 0
	case int64:
		return f != 0
	case float64:
		return f != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "", "false", "0", "no", "off":
			return false
		}
		return true
	default:
		return true
	}
}

// DoubleEncodeIfNeeded encodes a meeting UUID twice when it begins with a
// slash or contains a double slash, since the provider decodes such ids once
// before routing. Other ids are escaped once.
func DoubleEncodeIfNeeded(id string) string {
	if strings.HasPrefix(id, "/") || strings.Contains(id, "//") {
		return url.PathEscape(url.PathEscape(id))
	}
	return url.PathEscape(id)
}
