// Package agentlog provides value types and pure functions for the
// request/response audit trail. Entries are append-only: they are created
// once per request cycle and never updated.
package agentlog

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Entry represents one audited request/response cycle (value type).
type Entry struct {
	ID           string          `json:"id"`
	Method       string          `json:"method"`
	Path         string          `json:"path"` // normalized path plus query
	StatusCode   int             `json:"status_code"`
	DurationMS   int             `json:"duration_ms"`
	RequestBody  json.RawMessage `json:"request_body,omitempty"`  // nil when absent or not JSON
	ResponseBody json.RawMessage `json:"response_body,omitempty"` // nil unless the response was JSON
	ClientIP     string          `json:"client_ip"`
	UserAgent    string          `json:"user_agent,omitempty"`
	SchemaID     string          `json:"schema_id,omitempty"` // best-effort correlation, may be empty
	SchemaSlug   string          `json:"schema_slug,omitempty"`
	Error        string          `json:"error,omitempty"` // extracted from a JSON error response, status >= 400
	CreatedAt    time.Time       `json:"created_at"`
}

// Filter narrows log queries. Zero values mean "no constraint".
type Filter struct {
	SchemaSlug string
	Method     string
	MinStatus  int
	Since      time.Time
	Until      time.Time
}

// Stats aggregates the audit trail for the stats endpoint.
type Stats struct {
	Total        int64            `json:"total"`
	ErrorCount   int64            `json:"error_count"`
	AvgDuration  float64          `json:"avg_duration_ms"`
	ByMethod     map[string]int64 `json:"by_method"`
	BySchemaSlug map[string]int64 `json:"by_schema_slug"`
}

// ClientIP extracts the caller's address: a trusted proxy header first,
// then the first entry of the forwarded-for list, else "unknown".
// This is a PURE function.
func ClientIP(h http.Header) string {
	if ip := strings.TrimSpace(h.Get("X-Real-Ip")); ip != "" {
		return ip
	}
	if fwd := h.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return "unknown"
}

// ExtractError pulls the "error" field out of a JSON error response body.
// Returns empty for non-error statuses, non-JSON bodies, or bodies
// without a usable error field.
// This is a PURE function.
func ExtractError(statusCode int, body json.RawMessage) string {
	if statusCode < 400 || len(body) == 0 {
		return ""
	}
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return ""
	}
	// The error field is either a plain string or a structured object.
	var msg string
	if err := json.Unmarshal(envelope.Error, &msg); err == nil {
		return msg
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(envelope.Error, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(envelope.Error)
}

// SnapshotJSON returns the body bytes when they parse as JSON, nil
// otherwise. Non-JSON and empty bodies are treated as absent, not as
// errors.
// This is a PURE function.
func SnapshotJSON(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if !json.Valid(body) {
		return nil
	}
	snapshot := make(json.RawMessage, len(body))
	copy(snapshot, body)
	return snapshot
}
