package page

import (
	"testing"
	"time"
)

func TestPublish_StampsPublishedAtOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := New("pg_1", "sch_1", "Hello World", nil, now)

	if p.Status != StatusDraft || p.PublishedAt != nil {
		t.Fatal("new page should be an unpublished draft")
	}
	if p.Slug != "hello-world" {
		t.Errorf("slug = %q, want hello-world", p.Slug)
	}

	published := Publish(p, now.Add(time.Hour))
	if published.Status != StatusPublished {
		t.Errorf("status = %s, want published", published.Status)
	}
	if published.PublishedAt == nil || !published.PublishedAt.Equal(now.Add(time.Hour)) {
		t.Error("PublishedAt should be stamped on first publish")
	}

	// Re-publishing keeps the original timestamp.
	again := Publish(published, now.Add(2*time.Hour))
	if !again.PublishedAt.Equal(now.Add(time.Hour)) {
		t.Error("re-publish must not move PublishedAt")
	}
}

func TestUnpublish_ClearsPublishedAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := Publish(New("pg_1", "sch_1", "Hello", nil, now), now)

	draft := Unpublish(p, now.Add(time.Minute))
	if draft.Status != StatusDraft || draft.PublishedAt != nil {
		t.Error("unpublish should revert to draft and clear PublishedAt")
	}
}
