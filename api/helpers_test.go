package api

import (
	"testing"
	"time"
)

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

import (
	"github.com/nanjiek/meetingkit/apierr"
)

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2024-03-05", FormatDate(time.Date(2024, 3, 5, 23, 59, 0, 0, time.UTC)))
}

func TestParseDate(t *testing.T) {
	for in, want := range map[string]string{
		"2020-08-20":           "2020-08-20",
		"2020/08/20":           "2020-08-20",
		"2020-10/5":            "2020-10-05",
		" 2021-1-2 ":           "2021-01-02",
		"2022-06-01T10:00:00Z": "2022-06-01",
	} {
		got, err := ParseDate(in, "Start")
		require.NoError(t, err, in)
		assert.Equal(t, want, FormatDate(got), in)
	}

	for _, in := range []string{"", "invalid", "20-01-01", "2020-13-01", "2021-02-29", "2020-01"} {
		_, err := ParseDate(in, "End")
		var ve *apierr.ValidationError
		require.ErrorAs(t, err, &ve, in)
		assert.Equal(t, apierr.CodeInvalidDate, ve.Code)
		assert.Contains(t, ve.Message, "End date")
	}
}

func TestSanitizeInt(t *testing.T) {
	for in, want := range map[any]int{
		39:          39,
		int64(7):    7,
		int32(8):    8,
		float64(12): 12,
		" 42 ":      42,
		"-3":        -3,
	} {
		got, err := SanitizeInt(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, in := range []any{"invalid", 1.5, nil, true} {
		_, err := SanitizeInt(in)
		assert.Error(t, err, in)
	}
}

func TestParseFlag(t *testing.T) {
	for _, v := range []any{true, "true", "yes", "1", "on", 1, 2.5, "anything"} {
		assert.True(t, ParseFlag(v), v)
	}
	for _, v := range []any{nil, false, "", "false", "FALSE", "0", "no", "off", 0} {
		assert.False(t, ParseFlag(v), v)
	}
}

func TestDoubleEncodeIfNeeded(t *testing.T) {
	assert.Equal(t, "12345", DoubleEncodeIfNeeded("12345"))
	assert.Equal(t, "abc%2Fdef==", DoubleEncodeIfNeeded("abc/def=="))
	assert.Equal(t, "a%20b", DoubleEncodeIfNeeded("a b"))
	assert.Equal(t, "%252F12345", DoubleEncodeIfNeeded("/12345"))
	assert.Equal(t, "123%252F%252F45", DoubleEncodeIfNeeded("123//45"))
}
