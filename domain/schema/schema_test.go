package schema

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newWaiting(t *testing.T) Schema {
	t.Helper()
	s := New("sch_1", "Blog Post", "posts", json.RawMessage(`{"fields":[]}`), now)
	if err := CheckInvariants(s); err != nil {
		t.Fatalf("invariants after New: %v", err)
	}
	return s
}

func TestNew_StartsWaitingWithCode(t *testing.T) {
	s := newWaiting(t)

	if s.RegistrationStatus != StatusWaiting {
		t.Errorf("status = %s, want %s", s.RegistrationStatus, StatusWaiting)
	}
	if s.RegistrationCode == "" {
		t.Error("expected a registration code on creation")
	}
	if s.Slug != "blog-post" {
		t.Errorf("slug = %q, want blog-post", s.Slug)
	}
	if s.SlugStructure != DefaultSlugStructure {
		t.Errorf("slug structure = %q, want %q", s.SlugStructure, DefaultSlugStructure)
	}
}

func TestValidateClaim_StateCheckPrecedesCodeCheck(t *testing.T) {
	s := newWaiting(t)
	claimed := Claim(s, ClaimRequest{Code: s.RegistrationCode, FrontendURL: "https://x.test"}, now)

	// Correct code but no longer waiting: must be ErrInvalidState, never
	// ErrForbidden.
	err := ValidateClaim(claimed, ClaimRequest{Code: s.RegistrationCode})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("ValidateClaim after claim = %v, want ErrInvalidState", err)
	}
}

func TestValidateClaim_WrongCode(t *testing.T) {
	s := newWaiting(t)

	err := ValidateClaim(s, ClaimRequest{Code: "nope-nope-nope-nope"})
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("ValidateClaim = %v, want ErrForbidden", err)
	}
}

func TestClaim_BindsFrontendAndClearsCode(t *testing.T) {
	s := newWaiting(t)
	req := ClaimRequest{
		Code:                 s.RegistrationCode,
		FrontendURL:          "https://x.test",
		RevalidationEndpoint: "/api/revalidate",
		RevalidationSecret:   "shh",
	}
	if err := ValidateClaim(s, req); err != nil {
		t.Fatalf("ValidateClaim: %v", err)
	}

	claimed := Claim(s, req, now.Add(time.Minute))

	if claimed.RegistrationStatus != StatusRegistered {
		t.Errorf("status = %s, want registered", claimed.RegistrationStatus)
	}
	if claimed.RegistrationCode != "" {
		t.Error("code should be cleared after claim")
	}
	if claimed.FrontendURL != "https://x.test" {
		t.Errorf("frontend_url = %q", claimed.FrontendURL)
	}
	if claimed.SlugStructure != DefaultSlugStructure {
		t.Errorf("slug_structure = %q, want default", claimed.SlugStructure)
	}
	if err := CheckInvariants(claimed); err != nil {
		t.Errorf("invariants after claim: %v", err)
	}
}

func TestClaim_ReplayFailsStateCheck(t *testing.T) {
	s := newWaiting(t)
	code := s.RegistrationCode
	claimed := Claim(s, ClaimRequest{Code: code, FrontendURL: "https://x.test"}, now)

	err := ValidateClaim(claimed, ClaimRequest{Code: code, FrontendURL: "https://y.test"})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("replay = %v, want ErrInvalidState", err)
	}
}

func TestCancelRegistration(t *testing.T) {
	s := newWaiting(t)

	cancelled := CancelRegistration(s, now)
	if cancelled.RegistrationStatus != StatusPending {
		t.Errorf("status = %s, want pending", cancelled.RegistrationStatus)
	}
	if cancelled.RegistrationCode != "" {
		t.Error("code should be cleared on cancel")
	}
	if err := CheckInvariants(cancelled); err != nil {
		t.Errorf("invariants after cancel: %v", err)
	}

	// Idempotent when not waiting.
	again := CancelRegistration(cancelled, now.Add(time.Hour))
	if again.RegistrationStatus != StatusPending || !again.UpdatedAt.Equal(cancelled.UpdatedAt) {
		t.Error("cancel should be a no-op when not waiting")
	}
}

func TestStartRegistration_ClearsPriorFrontend(t *testing.T) {
	s := newWaiting(t)
	claimed := Claim(s, ClaimRequest{Code: s.RegistrationCode, FrontendURL: "https://x.test"}, now)

	restarted := StartRegistration(claimed, now.Add(time.Hour))

	if restarted.RegistrationStatus != StatusWaiting {
		t.Errorf("status = %s, want waiting", restarted.RegistrationStatus)
	}
	if restarted.RegistrationCode == "" {
		t.Error("expected a fresh code")
	}
	if restarted.FrontendURL != "" {
		t.Error("frontend_url should be cleared on restart")
	}
	if err := CheckInvariants(restarted); err != nil {
		t.Errorf("invariants after restart: %v", err)
	}
}

func TestArchive_FromAnyState(t *testing.T) {
	s := newWaiting(t)
	states := []Schema{
		s,
		CancelRegistration(s, now),
		Claim(s, ClaimRequest{Code: s.RegistrationCode, FrontendURL: "https://x.test"}, now),
	}
	for _, st := range states {
		archived := Archive(st, now)
		if archived.RegistrationStatus != StatusArchived {
			t.Errorf("archive from %s: status = %s", st.RegistrationStatus, archived.RegistrationStatus)
		}
		if archived.FrontendURL != "" {
			t.Errorf("archive from %s: frontend_url should be cleared", st.RegistrationStatus)
		}
		if err := CheckInvariants(archived); err != nil {
			t.Errorf("invariants after archive from %s: %v", st.RegistrationStatus, err)
		}
	}
}

func TestRename_DoesNotTouchRegistration(t *testing.T) {
	s := newWaiting(t)
	renamed := Rename(s, "Landing Page", now)

	if renamed.Slug != "landing-page" {
		t.Errorf("slug = %q, want landing-page", renamed.Slug)
	}
	if renamed.RegistrationStatus != StatusWaiting || renamed.RegistrationCode != s.RegistrationCode {
		t.Error("rename must not change registration state")
	}
}

func TestCanRevalidate(t *testing.T) {
	s := newWaiting(t)
	if err := CanRevalidate(s); !errors.Is(err, ErrInvalidState) {
		t.Errorf("waiting schema: %v, want ErrInvalidState", err)
	}

	claimed := Claim(s, ClaimRequest{Code: s.RegistrationCode, FrontendURL: "https://x.test"}, now)
	if err := CanRevalidate(claimed); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("no endpoint: %v, want ErrNotConfigured", err)
	}

	configured := Claim(s, ClaimRequest{
		Code: s.RegistrationCode, FrontendURL: "https://x.test",
		RevalidationEndpoint: "/api/revalidate",
	}, now)
	if err := CanRevalidate(configured); err != nil {
		t.Errorf("configured schema: %v, want nil", err)
	}
}

func TestGenerateCode_Format(t *testing.T) {
	codeRegex := regexp.MustCompile(`^[0-9a-z]{4}(-[0-9a-z]{4}){3}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateCode()
		if !codeRegex.MatchString(code) {
			t.Fatalf("code %q doesn't match segment format", code)
		}
		if seen[code] {
			t.Fatalf("duplicate code generated: %s", code)
		}
		seen[code] = true
	}
}

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Blog Post", "blog-post"},
		{"diacritics", "Über Café", "uber-cafe"},
		{"collapse", "Hello -- World!!", "hello-world"},
		{"trim", "  --Edge-- ", "edge"},
		{"numbers", "FAQ 2026", "faq-2026"},
		{"unicode punctuation", "a·b•c", "a-b-c"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateSlug(tt.in); got != tt.want {
				t.Errorf("GenerateSlug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGenerateSlug_Idempotent(t *testing.T) {
	for _, name := range []string{"Blog Post", "Über Café", "x"} {
		once := GenerateSlug(name)
		twice := GenerateSlug(once)
		if once != twice {
			t.Errorf("GenerateSlug not idempotent for %q: %q != %q", name, once, twice)
		}
	}
}

func TestRenderSpec_Waiting(t *testing.T) {
	s := newWaiting(t)
	doc := RenderSpec(s, 3, "https://cms.example")

	for _, want := range []string{
		"CONTENT SCHEMA SPEC: Blog Post",
		"Slug:        blog-post",
		"Pages:       3",
		"CONTENT BLOCK REFERENCE",
		s.RegistrationCode,
		"POST https://cms.example/api/schemas/blog-post/register",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("spec document missing %q", want)
		}
	}
	// Deterministic: same input, same output.
	if doc != RenderSpec(s, 3, "https://cms.example") {
		t.Error("RenderSpec is not deterministic")
	}
}

func TestRenderSpec_Registered(t *testing.T) {
	s := newWaiting(t)
	code := s.RegistrationCode
	s = Claim(s, ClaimRequest{Code: code, FrontendURL: "https://x.test", RevalidationEndpoint: "/api/reval"}, now)
	s.LLMInstructions = "Write in a friendly tone."

	doc := RenderSpec(s, 0, "https://cms.example")

	if !strings.Contains(doc, "FRONTEND BINDING") {
		t.Error("registered spec should include frontend binding")
	}
	if !strings.Contains(doc, "Write in a friendly tone.") {
		t.Error("spec should include LLM instructions")
	}
	if strings.Contains(doc, code) {
		t.Error("consumed registration code must not appear in the spec")
	}
}
