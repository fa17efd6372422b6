package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteDetail(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteDetail(rec, http.StatusUnauthorized, "Not authenticated")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["detail"] != "Not authenticated" {
		t.Errorf("expected detail message, got %v", body)
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteJSON(rec, http.StatusCreated, map[string]any{"message": "created"})

	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"message":"created"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestDecodeJSON_Invalid(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))

	var out map[string]any
	if DecodeJSON(rec, req, &out) {
		t.Error("expected decode to fail")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{
			name:       "remote addr with port",
			remoteAddr: "10.0.0.5:41234",
			expected:   "10.0.0.5",
		},
		{
			name:       "x-forwarded-for wins",
			remoteAddr: "127.0.0.1:1000",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"},
			expected:   "203.0.113.7",
		},
		{
			name:       "invalid forwarded entries skipped",
			remoteAddr: "127.0.0.1:1000",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip, 203.0.113.7"},
			expected:   "203.0.113.7",
		},
		{
			name:       "x-real-ip fallback",
			remoteAddr: "127.0.0.1:1000",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			expected:   "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			if got := ClientIP(req); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}
