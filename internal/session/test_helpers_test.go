package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// mockTransport implements Transport for testing
type mockTransport struct {
	GetFunc  func(ctx context.Context, path string, out any) error
	PostFunc func(ctx context.Context, path string, body, out any) error

	// recorded calls, in order
	Calls []transportCall
}

type transportCall struct {
	Method string
	Path   string
	Body   any
}

func (m *mockTransport) Get(ctx context.Context, path string, out any) error {
	m.Calls = append(m.Calls, transportCall{Method: "GET", Path: path})
	if m.GetFunc != nil {
		return m.GetFunc(ctx, path, out)
	}
	return nil
}

func (m *mockTransport) Post(ctx context.Context, path string, body, out any) error {
	m.Calls = append(m.Calls, transportCall{Method: "POST", Path: path, Body: body})
	if m.PostFunc != nil {
		return m.PostFunc(ctx, path, body, out)
	}
	return nil
}

// respondJSON decodes a canned JSON response into the out parameter the way
// the real client would.
func respondJSON(t *testing.T, out any, raw string) {
	t.Helper()
	if out == nil {
		return
	}
	require.NoError(t, json.Unmarshal([]byte(raw), out))
}

// wireBody round-trips a request DTO through JSON so tests can assert on
// the exact wire field names and null values.
func wireBody(t *testing.T, body any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func newTestManager(transport Transport) *Manager {
	return NewManager(transport, slog.Default())
}

// meJSON is a canned GET /users/me body for a sponsor account.
const meJSON = `{
	"id": "1",
	"email": "a@b.com",
	"phone": "+254700000000",
	"role": "sponsor",
	"email_verified": true,
	"phone_verified": false,
	"two_factor_enabled": false,
	"created_at": "2025-01-01T00:00:00Z",
	"updated_at": "2025-06-01T00:00:00Z",
	"profile": {"full_name": "Alice B", "country": "KE"}
}`
