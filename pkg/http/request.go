package http

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

// DecodeJSON decodes a request body into out. On malformed input it writes
// the 400 response itself and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// ClientIP extracts the client address for logging. The dev server sits
// behind at most a local dev proxy, so forwarding headers are taken at face
// value; fall back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, ip := range strings.Split(xff, ",") {
			ip = strings.TrimSpace(ip)
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return ip
	}
	return r.RemoteAddr
}
