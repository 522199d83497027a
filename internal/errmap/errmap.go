// Package errmap turns provider error responses into descriptive errors
// using a per-call table supplied by the endpoint method.
package errmap

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

import (
	"github.com/nanjiek/meetingkit/apierr"
)

// Entry is the message table for one HTTP status: either a literal message
// or a lookup by provider error code. Build one with Literal or ByCode.
type Entry struct {
	literal string
	byCode  map[int]string
	isCode  bool
}

// Literal maps a status to a fixed message.
func Literal(msg string) Entry {
	return Entry{literal: msg}
}

// ByCode maps a status to per-code messages. A body without a code parses
// as code 0, so an entry keyed 0 never matches.
func ByCode(codes map[int]string) Entry {
	cp := make(map[int]string, len(codes))
	for k, v := range codes {
		cp[k] = v
	}
	return Entry{byCode: cp, isCode: true}
}

func (e Entry) IsLiteral() bool { return !e.isCode }

// ErrorMap is keyed by HTTP status.
type ErrorMap map[int]Entry

// providerBody is the provider's error document, e.g.
// {"code":1001,"message":"User does not exist"}.
type providerBody struct {
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
}

// Translate never fails: every input yields a TranslatedError. An entry with
// no message, such as the zero Entry, falls back to the generic message for
// its status with CategoryUnmappedCode.
func Translate(status int, body []byte, m ErrorMap) *apierr.TranslatedError {
	code, detail := parseBody(body)
	out := &apierr.TranslatedError{
		Status:  status,
		Code:    code,
		Detail:  detail,
		RawBody: body,
	}

	entry, ok := m[status]
	if !ok {
		out.Kind = apierr.CategoryUnmapped
		out.Message = unmappedMessage(status, code, detail)
		return out
	}
	if entry.IsLiteral() && strings.TrimSpace(entry.literal) != "" {
		out.Kind = apierr.CategoryMapped
		out.Message = entry.literal
		return out
	}
	if msg, hit := entry.byCode[code]; hit && code != 0 {
		out.Kind = apierr.CategoryMapped
		out.Message = msg
		return out
	}
	out.Kind = apierr.CategoryUnmappedCode
	out.Message = statusMessage(status)
	return out
}

func parseBody(body []byte) (int, string) {
	if len(body) == 0 {
		return 0, ""
	}
	var pb providerBody
	if err := json.Unmarshal(body, &pb); err != nil {
		return 0, ""
	}
	return parseCode(pb.Code), strings.TrimSpace(pb.Message)
}

// parseCode accepts 1001 and "1001".
func parseCode(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return n
		}
	}
	return 0
}

func statusMessage(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return "The request was rejected by the provider as invalid"
	case status == http.StatusUnauthorized:
		return "The provider could not authenticate the request"
	case status == http.StatusForbidden:
		return "The account is not allowed to perform this operation"
	case status == http.StatusNotFound:
		return "The requested resource could not be found"
	case status == http.StatusConflict:
		return "The request conflicts with the resource's current state"
	case status == http.StatusTooManyRequests:
		return "The provider is rate limiting this account"
	case status >= 500:
		return "The provider encountered an internal error"
	case status >= 300 && status < 400:
		return "The provider refused the request"
	default:
		if text := http.StatusText(status); text != "" {
			return "The provider responded with " + strings.ToLower(text)
		}
		return "The provider responded with an unexpected status"
	}
}

func unmappedMessage(status, code int, detail string) string {
	msg := fmt.Sprintf("An unknown error occurred: provider responded with status %d", status)
	if code != 0 {
		msg += fmt.Sprintf(" and error code %d", code)
	}
	if detail != "" {
		msg += ": " + detail
	}
	return msg
}
