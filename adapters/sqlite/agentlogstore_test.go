package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/JaYani55/service-cms-sub001/domain/agentlog"
	"github.com/JaYani55/service-cms-sub001/ports"
)

func seedLog(t *testing.T, store ports.AgentLogStore, i int, e agentlog.Entry) agentlog.Entry {
	t.Helper()
	if e.ID == "" {
		e.ID = "log_" + strconv.Itoa(i)
	}
	if e.Method == "" {
		e.Method = "GET"
	}
	if e.Path == "" {
		e.Path = "/api/schemas"
	}
	if e.ClientIP == "" {
		e.ClientIP = "unknown"
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = testTime.Add(time.Duration(i) * time.Minute)
	}
	if err := store.Create(context.Background(), e); err != nil {
		t.Fatalf("create log: %v", err)
	}
	return e
}

func TestAgentLogStore_ListFilters(t *testing.T) {
	store := NewAgentLogStore(testDB(t))
	ctx := context.Background()

	seedLog(t, store, 1, agentlog.Entry{SchemaSlug: "blog-post", StatusCode: 200})
	seedLog(t, store, 2, agentlog.Entry{SchemaSlug: "blog-post", StatusCode: 404, Method: "POST", Error: "schema not found"})
	seedLog(t, store, 3, agentlog.Entry{SchemaSlug: "landing", StatusCode: 200})

	tests := []struct {
		name   string
		filter agentlog.Filter
		want   int
	}{
		{"all", agentlog.Filter{}, 3},
		{"by slug", agentlog.Filter{SchemaSlug: "blog-post"}, 2},
		{"by method", agentlog.Filter{Method: "post"}, 1},
		{"errors only", agentlog.Filter{MinStatus: 400}, 1},
		{"since cutoff", agentlog.Filter{Since: testTime.Add(90 * time.Second)}, 2},
		{"combined", agentlog.Filter{SchemaSlug: "blog-post", MinStatus: 400}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.List(ctx, tt.filter, 100, 0)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
			n, err := store.Count(ctx, tt.filter)
			if err != nil {
				t.Fatalf("count: %v", err)
			}
			if int(n) != tt.want {
				t.Errorf("count = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestAgentLogStore_ListNewestFirst(t *testing.T) {
	store := NewAgentLogStore(testDB(t))

	seedLog(t, store, 1, agentlog.Entry{})
	seedLog(t, store, 2, agentlog.Entry{})

	got, err := store.List(context.Background(), agentlog.Filter{}, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "log_2" {
		t.Errorf("expected newest first, got %+v", got)
	}
}

func TestAgentLogStore_BodySnapshotsRoundTrip(t *testing.T) {
	store := NewAgentLogStore(testDB(t))

	seedLog(t, store, 1, agentlog.Entry{
		RequestBody:  json.RawMessage(`{"code":"abcd"}`),
		ResponseBody: json.RawMessage(`{"success":true}`),
	})

	got, err := store.List(context.Background(), agentlog.Filter{}, 1, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if string(got[0].RequestBody) != `{"code":"abcd"}` {
		t.Errorf("request body = %s", got[0].RequestBody)
	}
	if string(got[0].ResponseBody) != `{"success":true}` {
		t.Errorf("response body = %s", got[0].ResponseBody)
	}
}

func TestAgentLogStore_Stats(t *testing.T) {
	store := NewAgentLogStore(testDB(t))

	seedLog(t, store, 1, agentlog.Entry{SchemaSlug: "blog-post", StatusCode: 200, DurationMS: 10})
	seedLog(t, store, 2, agentlog.Entry{SchemaSlug: "blog-post", StatusCode: 500, DurationMS: 30, Method: "POST"})
	seedLog(t, store, 3, agentlog.Entry{StatusCode: 200, DurationMS: 20})

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 || stats.ErrorCount != 1 {
		t.Errorf("total=%d errors=%d", stats.Total, stats.ErrorCount)
	}
	if stats.AvgDuration != 20 {
		t.Errorf("avg duration = %f, want 20", stats.AvgDuration)
	}
	if stats.ByMethod["GET"] != 2 || stats.ByMethod["POST"] != 1 {
		t.Errorf("by method = %v", stats.ByMethod)
	}
	if stats.BySchemaSlug["blog-post"] != 2 {
		t.Errorf("by slug = %v", stats.BySchemaSlug)
	}
}

func TestAgentLogStore_Deletes(t *testing.T) {
	store := NewAgentLogStore(testDB(t))
	ctx := context.Background()

	seedLog(t, store, 1, agentlog.Entry{SchemaSlug: "blog-post"})
	seedLog(t, store, 2, agentlog.Entry{SchemaSlug: "landing"})
	seedLog(t, store, 3, agentlog.Entry{SchemaSlug: "landing"})

	if err := store.Delete(ctx, "log_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "log_1"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}

	n, err := store.DeleteByFilter(ctx, agentlog.Filter{SchemaSlug: "landing"})
	if err != nil {
		t.Fatalf("delete by filter: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}

	// Unfiltered bulk delete is refused.
	if _, err := store.DeleteByFilter(ctx, agentlog.Filter{}); err == nil {
		t.Error("unfiltered DeleteByFilter should be refused")
	}

	seedLog(t, store, 4, agentlog.Entry{})
	total, err := store.DeleteAll(ctx)
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if total != 1 {
		t.Errorf("delete all = %d, want 1", total)
	}
}
