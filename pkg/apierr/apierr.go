// Package apierr converts the heterogeneous error bodies returned by the
// DestinyPal backend into single display strings and a typed error value.
package apierr

import (
	"encoding/json"
	"fmt"
)

// FallbackMessage is returned when no recognizable message can be extracted.
const FallbackMessage = "An unexpected error occurred"

// APIError represents a non-2xx response from the backend.
type APIError struct {
	Status  int    // HTTP status code
	Message string // Human-readable message extracted from the body
	Body    any    // Raw decoded body, for callers that need more
}

func (e *APIError) Error() string {
	return e.Message
}

// New builds an APIError from a status code and a decoded response body.
func New(status int, body any) *APIError {
	return &APIError{
		Status:  status,
		Message: Message(body),
		Body:    body,
	}
}

// Message extracts a human-readable message from a decoded error body.
// The backend is not consistent about error shapes: plain strings,
// {"detail": "..."} objects, FastAPI validation arrays, {"message": "..."}
// and {"error": "..."} all occur. Extraction order:
//
//  1. body is a string: returned as-is
//  2. body.detail is a string: returned as-is
//  3. body.detail is an array: joined "{field}: {msg}" entries
//  4. body.detail is an object: JSON-stringified
//  5. body.message is a string: returned as-is
//  6. body.error is a string: returned as-is
//  7. otherwise FallbackMessage
func Message(body any) string {
	if s, ok := body.(string); ok {
		return s
	}

	obj, ok := body.(map[string]any)
	if !ok {
		return FallbackMessage
	}

	if detail, ok := obj["detail"]; ok {
		if s, ok := detail.(string); ok {
			return s
		}
		if arr, ok := detail.([]any); ok {
			return joinValidationErrors(arr)
		}
		if m, ok := detail.(map[string]any); ok {
			if b, err := json.Marshal(m); err == nil {
				return string(b)
			}
		}
	}

	if msg, ok := obj["message"].(string); ok {
		return msg
	}
	if msg, ok := obj["error"].(string); ok {
		return msg
	}

	return FallbackMessage
}

// joinValidationErrors renders a FastAPI-style validation error array.
// Each entry contributes "{last loc segment}: {msg}"; entries are joined
// with ", ".
func joinValidationErrors(errs []any) string {
	out := ""
	for i, raw := range errs {
		field := "field"
		msg := "Invalid value"

		if entry, ok := raw.(map[string]any); ok {
			if loc, ok := entry["loc"].([]any); ok && len(loc) > 0 {
				field = fmt.Sprintf("%v", loc[len(loc)-1])
			}
			if m, ok := entry["msg"].(string); ok {
				msg = m
			} else if m, ok := entry["message"].(string); ok {
				msg = m
			}
		}

		if i > 0 {
			out += ", "
		}
		out += field + ": " + msg
	}
	return out
}
