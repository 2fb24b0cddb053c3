package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/JaYani55/service-cms-sub001/domain/page"
	"github.com/JaYani55/service-cms-sub001/ports"
)

func TestPageStore_CountBySchema(t *testing.T) {
	db := testDB(t)
	schemas := NewSchemaStore(db)
	pages := NewPageStore(db)
	ctx := context.Background()

	sc := seedSchema(t, schemas, "Blog Post")
	other := seedSchema(t, schemas, "Landing")

	for i, name := range []string{"First", "Second", "Third"} {
		p := page.New("pg_"+name, sc.ID, name, nil, testTime)
		if i == 2 {
			p.SchemaID = other.ID
		}
		if err := pages.Create(ctx, p); err != nil {
			t.Fatalf("create page: %v", err)
		}
	}

	n, err := pages.CountBySchema(ctx, sc.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestPageStore_PublishRoundTrip(t *testing.T) {
	db := testDB(t)
	schemas := NewSchemaStore(db)
	pages := NewPageStore(db)
	ctx := context.Background()

	sc := seedSchema(t, schemas, "Blog Post")
	p := page.New("pg_1", sc.ID, "Hello World", []byte(`{"blocks":[]}`), testTime)
	if err := pages.Create(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := pages.Update(ctx, page.Publish(p, testTime)); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := pages.Get(ctx, "pg_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != page.StatusPublished {
		t.Errorf("status = %s, want published", got.Status)
	}
	if got.PublishedAt == nil || !got.PublishedAt.Equal(testTime) {
		t.Error("PublishedAt not persisted")
	}
	if string(got.Content) != `{"blocks":[]}` {
		t.Errorf("content = %s", got.Content)
	}
}

func TestPageStore_GetMissing(t *testing.T) {
	pages := NewPageStore(testDB(t))
	if _, err := pages.Get(context.Background(), "nope"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("get missing = %v, want ErrNotFound", err)
	}
}
