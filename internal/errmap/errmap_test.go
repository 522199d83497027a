package errmap

import (
	"testing"
)

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

import (
	"github.com/nanjiek/meetingkit/apierr"
)

func TestTranslate(t *testing.T) {
	m := ErrorMap{
		404: ByCode(map[int]string{1001: "not found"}),
		300: Literal("daily limit reached"),
	}

	tests := []struct {
		name     string
		status   int
		body     string
		kind     apierr.Category
		message  string
		code     int
		contains string
	}{
		{name: "mapped code", status: 404, body: `{"code":1001,"message":"User does not exist"}`, kind: apierr.CategoryMapped, message: "not found", code: 1001},
		{name: "string code", status: 404, body: `{"code":"1001"}`, kind: apierr.CategoryMapped, message: "not found", code: 1001},
		{name: "unmapped code", status: 404, body: `{"code":9999,"message":"??"}`, kind: apierr.CategoryUnmappedCode, code: 9999, contains: "could not be found"},
		{name: "missing code", status: 404, body: `{}`, kind: apierr.CategoryUnmappedCode, contains: "could not be found"},
		{name: "literal", status: 300, body: `{"code":3001}`, kind: apierr.CategoryMapped, message: "daily limit reached", code: 3001},
		{name: "unmapped status", status: 500, body: `{"code":42,"message":"boom"}`, kind: apierr.CategoryUnmapped, code: 42, contains: "status 500 and error code 42: boom"},
		{name: "garbage body", status: 502, body: `<html>bad gateway</html>`, kind: apierr.CategoryUnmapped, contains: "status 502"},
		{name: "empty body", status: 401, body: ``, kind: apierr.CategoryUnmapped, contains: "status 401"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Translate(tt.status, []byte(tt.body), m)
			require.NotNil(t, got)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.code, got.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, got.Message)
			}
			if tt.contains != "" {
				assert.Contains(t, got.Message, tt.contains)
			}
			assert.Equal(t, tt.kind, apierr.CategoryOf(got))
		})
	}
}

func TestTranslateNilMap(t *testing.T) {
	got := Translate(404, []byte(`{"code":1001}`), nil)
	assert.Equal(t, apierr.CategoryUnmapped, got.Kind)
	assert.Equal(t, 1001, got.Code)
}

func TestTranslateKeepsDetail(t *testing.T) {
	got := Translate(404, []byte(`{"code":1001,"message":" User does not exist "}`),
		ErrorMap{404: ByCode(map[int]string{1001: "not found"})})
	assert.Equal(t, "User does not exist", got.Detail)
	assert.Equal(t, "not found (status 404, code 1001)", got.Error())
}

func TestByCodeCopies(t *testing.T) {
	codes := map[int]string{1: "one"}
	e := ByCode(codes)
	codes[1] = "changed"

	got := Translate(400, []byte(`{"code":1}`), ErrorMap{400: e})
	assert.Equal(t, "one", got.Message)
	assert.False(t, e.IsLiteral())
	assert.True(t, Literal("x").IsLiteral())
}

func TestTranslateEmptyEntry(t *testing.T) {
	m := ErrorMap{404: {}, 409: Literal("  "), 400: ByCode(map[int]string{0: "never used"})}

	got := Translate(404, []byte(`{"code":3001,"message":"gone"}`), m)
	assert.Equal(t, apierr.CategoryUnmappedCode, got.Kind)
	assert.Equal(t, "The requested resource could not be found", got.Message)
	assert.Equal(t, 3001, got.Code)

	got = Translate(409, nil, m)
	assert.Equal(t, apierr.CategoryUnmappedCode, got.Kind)
	assert.NotEmpty(t, got.Message)

	got = Translate(400, []byte(`{"message":"no code"}`), m)
	assert.Equal(t, apierr.CategoryUnmappedCode, got.Kind, "code 0 means the body had none")
	assert.Equal(t, "The request was rejected by the provider as invalid", got.Message)
}
