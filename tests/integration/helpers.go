// Package integration exercises the session manager against a running dev
// backend over real HTTP, cookies included.
package integration

import (
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PMGEECODE/destinypal-sub002/internal/config"
	"github.com/PMGEECODE/destinypal-sub002/internal/devbackend"
	"github.com/PMGEECODE/destinypal-sub002/internal/session"
	"github.com/PMGEECODE/destinypal-sub002/pkg/httpclient"
)

// TestEnv wires a dev backend behind an httptest server and a session
// manager talking to it through the production HTTP client.
type TestEnv struct {
	Backend *devbackend.Server
	Server  *httptest.Server
	Manager *session.Manager
}

func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := config.DevServerConfig{
		SessionTTL:         time.Hour,
		TokenSecret:        "integration-test-secret",
		LoginRateLimit:     1000,
		LoginRateWindow:    time.Minute,
		VerificationExpiry: 15 * time.Minute,
	}

	backend := devbackend.New(cfg, logger)
	server := httptest.NewServer(backend.Router())
	t.Cleanup(server.Close)

	client, err := httpclient.New(server.URL+"/api/v1", 10*time.Second, logger)
	require.NoError(t, err)

	return &TestEnv{
		Backend: backend,
		Server:  server,
		Manager: session.NewManager(client, logger),
	}
}

// NewManager builds an extra manager with its own cookie jar against the
// same backend, for tests that need a second independent client.
func (e *TestEnv) NewManager(t *testing.T) *session.Manager {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client, err := httpclient.New(e.Server.URL+"/api/v1", 10*time.Second, logger)
	require.NoError(t, err)
	return session.NewManager(client, logger)
}

// EmailToken fetches the latest token "mailed" to an address.
func (e *TestEnv) EmailToken(t *testing.T, email string) string {
	t.Helper()

	token, ok := e.Backend.LastEmailToken(email)
	require.True(t, ok, "expected a token for %s", email)
	return token
}
