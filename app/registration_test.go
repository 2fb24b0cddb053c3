package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/JaYani55/service-cms-sub001/adapters/clock"
	"github.com/JaYani55/service-cms-sub001/adapters/memory"
	"github.com/JaYani55/service-cms-sub001/app"
	"github.com/JaYani55/service-cms-sub001/domain/schema"
	"github.com/JaYani55/service-cms-sub001/ports"
	"github.com/rs/zerolog"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedSchema(t *testing.T, store *memory.SchemaStore, name string) schema.Schema {
	t.Helper()
	sc := schema.New("sch-"+name, name, "test schema", json.RawMessage(`{"fields":[]}`), testTime)
	if err := store.Create(context.Background(), sc); err != nil {
		t.Fatalf("seed schema: %v", err)
	}
	return sc
}

func newRegistrationService(store *memory.SchemaStore) *app.RegistrationService {
	return app.NewRegistrationService(store, clock.NewFake(testTime), zerolog.Nop(), nil)
}

func TestRegistrationService_StartIssuesFreshCode(t *testing.T) {
	store := memory.NewSchemaStore()
	sc := seedSchema(t, store, "Blog")
	svc := newRegistrationService(store)

	first := sc.RegistrationCode
	started, err := svc.Start(context.Background(), sc.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.RegistrationStatus != schema.StatusWaiting {
		t.Errorf("status = %q, want waiting", started.RegistrationStatus)
	}
	if started.RegistrationCode == "" || started.RegistrationCode == first {
		t.Errorf("expected a fresh code, got %q", started.RegistrationCode)
	}
}

func TestRegistrationService_StartUnknownSchema(t *testing.T) {
	svc := newRegistrationService(memory.NewSchemaStore())

	_, err := svc.Start(context.Background(), "missing")
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRegistrationService_ClaimHappyPath(t *testing.T) {
	store := memory.NewSchemaStore()
	sc := seedSchema(t, store, "Blog")
	svc := newRegistrationService(store)

	claimed, err := svc.Claim(context.Background(), sc.Slug, schema.ClaimRequest{
		Code:        sc.RegistrationCode,
		FrontendURL: "https://blog.example.com",
	})
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed.RegistrationStatus != schema.StatusRegistered {
		t.Errorf("status = %q, want registered", claimed.RegistrationStatus)
	}
	if claimed.FrontendURL != "https://blog.example.com" {
		t.Errorf("frontend_url = %q", claimed.FrontendURL)
	}

	stored, err := store.GetBySlug(context.Background(), sc.Slug)
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if stored.RegistrationCode != "" {
		t.Error("code survived a successful claim")
	}
}

func TestRegistrationService_ClaimWrongCode(t *testing.T) {
	store := memory.NewSchemaStore()
	sc := seedSchema(t, store, "Blog")
	svc := newRegistrationService(store)

	_, err := svc.Claim(context.Background(), sc.Slug, schema.ClaimRequest{
		Code:        "xxxx-xxxx-xxxx-xxxx",
		FrontendURL: "https://blog.example.com",
	})
	if !errors.Is(err, schema.ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestRegistrationService_ClaimReplayFails(t *testing.T) {
	store := memory.NewSchemaStore()
	sc := seedSchema(t, store, "Blog")
	svc := newRegistrationService(store)

	req := schema.ClaimRequest{Code: sc.RegistrationCode, FrontendURL: "https://a.example.com"}
	if _, err := svc.Claim(context.Background(), sc.Slug, req); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	// The code was cleared on success, so the replay fails the state
	// check before the code is ever compared.
	_, err := svc.Claim(context.Background(), sc.Slug, req)
	if !errors.Is(err, schema.ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
}

func TestRegistrationService_ClaimLosesRace(t *testing.T) {
	store := memory.NewSchemaStore()
	sc := seedSchema(t, store, "Blog")
	svc := newRegistrationService(store)

	// A competing claim lands between this caller's read and write.
	rival := schema.Claim(sc, schema.ClaimRequest{Code: sc.RegistrationCode, FrontendURL: "https://rival.example.com"}, testTime)
	if won, err := store.ClaimRegistration(context.Background(), rival); err != nil || !won {
		t.Fatalf("rival claim: won=%v err=%v", won, err)
	}

	_, err := svc.Claim(context.Background(), sc.Slug, schema.ClaimRequest{
		Code:        sc.RegistrationCode,
		FrontendURL: "https://late.example.com",
	})
	if !errors.Is(err, schema.ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}

	stored, _ := store.GetBySlug(context.Background(), sc.Slug)
	if stored.FrontendURL != "https://rival.example.com" {
		t.Errorf("frontend_url = %q, rival's binding was overwritten", stored.FrontendURL)
	}
}

func TestRegistrationService_CancelIsIdempotent(t *testing.T) {
	store := memory.NewSchemaStore()
	sc := seedSchema(t, store, "Blog")
	svc := newRegistrationService(store)

	if err := svc.Cancel(context.Background(), sc.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := svc.Cancel(context.Background(), sc.ID); err != nil {
		t.Fatalf("second Cancel: %v", err)
	}

	stored, _ := store.Get(context.Background(), sc.ID)
	if stored.RegistrationStatus != schema.StatusPending {
		t.Errorf("status = %q, want pending", stored.RegistrationStatus)
	}
	if stored.RegistrationCode != "" {
		t.Error("code survived cancellation")
	}
}

func TestRegistrationService_Status(t *testing.T) {
	store := memory.NewSchemaStore()
	sc := seedSchema(t, store, "Blog")
	svc := newRegistrationService(store)

	proj, err := svc.Status(context.Background(), sc.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if proj.RegistrationStatus != schema.StatusWaiting {
		t.Errorf("status = %q, want waiting", proj.RegistrationStatus)
	}
	if proj.FrontendURL != "" {
		t.Errorf("frontend_url = %q, want empty before claim", proj.FrontendURL)
	}

	if _, err := svc.Claim(context.Background(), sc.Slug, schema.ClaimRequest{
		Code:        sc.RegistrationCode,
		FrontendURL: "https://blog.example.com",
	}); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	proj, err = svc.Status(context.Background(), sc.ID)
	if err != nil {
		t.Fatalf("Status after claim: %v", err)
	}
	if proj.RegistrationStatus != schema.StatusRegistered || proj.FrontendURL != "https://blog.example.com" {
		t.Errorf("projection = %+v", proj)
	}
}
