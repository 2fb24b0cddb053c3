package app_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaYani55/service-cms-sub001/adapters/memory"
	"github.com/JaYani55/service-cms-sub001/app"
	"github.com/JaYani55/service-cms-sub001/domain/schema"
	"github.com/JaYani55/service-cms-sub001/ports"
	"github.com/rs/zerolog"
)

func seedRegistered(t *testing.T, store *memory.SchemaStore, name, frontendURL, endpoint, secret string) schema.Schema {
	t.Helper()
	sc := seedSchema(t, store, name)
	sc = schema.Claim(sc, schema.ClaimRequest{
		Code:                 sc.RegistrationCode,
		FrontendURL:          frontendURL,
		RevalidationEndpoint: endpoint,
		RevalidationSecret:   secret,
	}, testTime)
	if err := store.Update(context.Background(), sc); err != nil {
		t.Fatalf("seed registered schema: %v", err)
	}
	return sc
}

func TestRevalidationService_TriggerBuildsWebhook(t *testing.T) {
	var got *http.Request
	frontend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.WriteHeader(http.StatusOK)
	}))
	defer frontend.Close()

	store := memory.NewSchemaStore()
	sc := seedRegistered(t, store, "Blog", frontend.URL, "/api/revalidate", "s3cret")
	svc := app.NewRevalidationService(store, zerolog.Nop(), nil)

	result, err := svc.Trigger(context.Background(), sc.Slug, "hello-world")
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if !result.Success || result.Status != http.StatusOK {
		t.Errorf("result = %+v", result)
	}

	if got == nil {
		t.Fatal("frontend never received the webhook")
	}
	if got.Method != http.MethodPost {
		t.Errorf("method = %q, want POST", got.Method)
	}
	if got.URL.Path != "/api/revalidate" {
		t.Errorf("path = %q", got.URL.Path)
	}
	q := got.URL.Query()
	if q.Get("secret") != "s3cret" {
		t.Errorf("secret = %q", q.Get("secret"))
	}
	if q.Get("path") != "hello-world" {
		t.Errorf("path param = %q", q.Get("path"))
	}
	if ct := got.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}
}

func TestRevalidationService_NoSecretOmitsParam(t *testing.T) {
	var query string
	frontend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
	}))
	defer frontend.Close()

	store := memory.NewSchemaStore()
	sc := seedRegistered(t, store, "Blog", frontend.URL, "/revalidate", "")
	svc := app.NewRevalidationService(store, zerolog.Nop(), nil)

	if _, err := svc.Trigger(context.Background(), sc.Slug, "about"); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if query != "path=about" {
		t.Errorf("query = %q, want path=about", query)
	}
}

func TestRevalidationService_FrontendRejectionIsSoftFailure(t *testing.T) {
	frontend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer frontend.Close()

	store := memory.NewSchemaStore()
	sc := seedRegistered(t, store, "Blog", frontend.URL, "/revalidate", "")
	svc := app.NewRevalidationService(store, zerolog.Nop(), nil)

	result, err := svc.Trigger(context.Background(), sc.Slug, "about")
	if err != nil {
		t.Fatalf("Trigger must not fail on a frontend error: %v", err)
	}
	if result.Success || result.Status != http.StatusInternalServerError {
		t.Errorf("result = %+v", result)
	}
}

func TestRevalidationService_UnreachableFrontendIsSoftFailure(t *testing.T) {
	frontend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := frontend.URL
	frontend.Close()

	store := memory.NewSchemaStore()
	sc := seedRegistered(t, store, "Blog", url, "/revalidate", "")
	svc := app.NewRevalidationService(store, zerolog.Nop(), nil)

	result, err := svc.Trigger(context.Background(), sc.Slug, "about")
	if err != nil {
		t.Fatalf("Trigger must not fail on a network error: %v", err)
	}
	if result.Success {
		t.Error("success against a closed server")
	}
	if result.Error == "" {
		t.Error("soft failure should carry the underlying error text")
	}
}

func TestRevalidationService_Preconditions(t *testing.T) {
	store := memory.NewSchemaStore()
	waiting := seedSchema(t, store, "Waiting")
	svc := app.NewRevalidationService(store, zerolog.Nop(), nil)

	if _, err := svc.Trigger(context.Background(), "missing", "x"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("unknown slug: err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Trigger(context.Background(), waiting.Slug, "x"); !errors.Is(err, schema.ErrInvalidState) {
		t.Errorf("waiting schema: err = %v, want ErrInvalidState", err)
	}

	// Registered but with no revalidation endpoint configured.
	bare := seedRegistered(t, store, "Bare", "https://bare.example.com", "", "")
	if _, err := svc.Trigger(context.Background(), bare.Slug, "x"); !errors.Is(err, schema.ErrNotConfigured) {
		t.Errorf("unconfigured schema: err = %v, want ErrNotConfigured", err)
	}
}
