package apierr_test

import (
	"encoding/json"
	"testing"

	"github.com/PMGEECODE/destinypal-sub002/pkg/apierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decode mimics what the HTTP client does: unmarshal a raw body into any.
func decode(t *testing.T, raw string) any {
	t.Helper()
	var body any
	err := json.Unmarshal([]byte(raw), &body)
	require.NoError(t, err)
	return body
}

func TestMessage_PlainString(t *testing.T) {
	assert.Equal(t, "something broke", apierr.Message("something broke"))
}

func TestMessage_DetailString(t *testing.T) {
	body := decode(t, `{"detail": "Invalid credentials"}`)
	assert.Equal(t, "Invalid credentials", apierr.Message(body))
}

func TestMessage_ValidationArray(t *testing.T) {
	body := decode(t, `{"detail": [{"loc": ["body", "email"], "msg": "invalid"}]}`)
	assert.Equal(t, "email: invalid", apierr.Message(body))
}

func TestMessage_ValidationArrayMultiple(t *testing.T) {
	body := decode(t, `{"detail": [
		{"loc": ["body", "email"], "msg": "invalid email"},
		{"loc": ["body", "password"], "msg": "too short"}
	]}`)
	assert.Equal(t, "email: invalid email, password: too short", apierr.Message(body))
}

func TestMessage_ValidationArrayMissingLoc(t *testing.T) {
	body := decode(t, `{"detail": [{"msg": "required"}]}`)
	assert.Equal(t, "field: required", apierr.Message(body))
}

func TestMessage_ValidationArrayMessageFallbacks(t *testing.T) {
	// "message" is accepted when "msg" is absent; neither yields the literal default
	body := decode(t, `{"detail": [
		{"loc": ["body", "phone"], "message": "digits only"},
		{"loc": ["query", "page"]}
	]}`)
	assert.Equal(t, "phone: digits only, page: Invalid value", apierr.Message(body))
}

func TestMessage_DetailObject(t *testing.T) {
	body := decode(t, `{"detail": {"code": 42}}`)
	assert.JSONEq(t, `{"code": 42}`, apierr.Message(body))
}

func TestMessage_MessageField(t *testing.T) {
	body := decode(t, `{"message": "account suspended"}`)
	assert.Equal(t, "account suspended", apierr.Message(body))
}

func TestMessage_ErrorField(t *testing.T) {
	body := decode(t, `{"error": "rate limit exceeded"}`)
	assert.Equal(t, "rate limit exceeded", apierr.Message(body))
}

func TestMessage_DetailTakesPrecedence(t *testing.T) {
	body := decode(t, `{"detail": "detail wins", "message": "not this", "error": "nor this"}`)
	assert.Equal(t, "detail wins", apierr.Message(body))
}

func TestMessage_Fallback(t *testing.T) {
	assert.Equal(t, apierr.FallbackMessage, apierr.Message(map[string]any{}))
	assert.Equal(t, apierr.FallbackMessage, apierr.Message(nil))
	assert.Equal(t, apierr.FallbackMessage, apierr.Message(42))
	assert.Equal(t, apierr.FallbackMessage, apierr.Message(decode(t, `{"message": 99}`)))
}

func TestNew(t *testing.T) {
	body := decode(t, `{"detail": "Invalid credentials"}`)
	err := apierr.New(401, body)

	assert.Equal(t, 401, err.Status)
	assert.Equal(t, "Invalid credentials", err.Message)
	assert.Equal(t, "Invalid credentials", err.Error())
	assert.Equal(t, body, err.Body)
}
