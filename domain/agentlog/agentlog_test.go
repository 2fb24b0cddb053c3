package agentlog

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"real ip preferred", map[string]string{"X-Real-Ip": "10.0.0.1", "X-Forwarded-For": "10.0.0.2"}, "10.0.0.1"},
		{"forwarded first entry", map[string]string{"X-Forwarded-For": "10.0.0.2, 10.0.0.3"}, "10.0.0.2"},
		{"forwarded whitespace", map[string]string{"X-Forwarded-For": "  10.0.0.4 ,10.0.0.5"}, "10.0.0.4"},
		{"none", nil, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			if got := ClientIP(h); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"plain string", 404, `{"error":"schema not found"}`, "schema not found"},
		{"structured", 400, `{"error":{"code":"invalid_state","message":"not waiting"}}`, "not waiting"},
		{"success status ignored", 200, `{"error":"nope"}`, ""},
		{"no error field", 500, `{"detail":"boom"}`, ""},
		{"not json", 500, `oops`, ""},
		{"empty", 500, ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractError(tt.status, json.RawMessage(tt.body))
			if got != tt.want {
				t.Errorf("ExtractError = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSnapshotJSON(t *testing.T) {
	if got := SnapshotJSON([]byte(`{"a":1}`)); string(got) != `{"a":1}` {
		t.Errorf("valid JSON snapshot = %q", got)
	}
	if got := SnapshotJSON([]byte("not json")); got != nil {
		t.Error("non-JSON body should snapshot as nil")
	}
	if got := SnapshotJSON(nil); got != nil {
		t.Error("empty body should snapshot as nil")
	}

	// Snapshot must be a copy, not an alias of the caller's buffer.
	buf := []byte(`{"a":1}`)
	snap := SnapshotJSON(buf)
	buf[2] = 'x'
	if string(snap) != `{"a":1}` {
		t.Error("snapshot aliases the source buffer")
	}
}
