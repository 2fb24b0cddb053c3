// Package schema provides value types and pure functions for content
// schemas and their registration lifecycle. A schema is claimed by an
// external frontend through a short-lived code handshake; all state
// transitions are pure functions over the Schema value.
package schema

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"time"
)

// RegistrationStatus represents where a schema is in the claim handshake.
type RegistrationStatus string

const (
	// StatusPending means no registration is in progress: no code, no frontend.
	StatusPending RegistrationStatus = "pending"
	// StatusWaiting means a code has been issued and the schema awaits a claim.
	StatusWaiting RegistrationStatus = "waiting"
	// StatusRegistered means a frontend has claimed the schema.
	StatusRegistered RegistrationStatus = "registered"
	// StatusArchived is terminal; archived schemas are hidden from discovery.
	StatusArchived RegistrationStatus = "archived"
)

// DefaultSlugStructure is the URL pattern a frontend uses when none is
// supplied during the claim.
const DefaultSlugStructure = "/:slug"

// Registration state errors. The HTTP layer maps these onto status codes.
var (
	// ErrInvalidState means the operation is not valid for the schema's
	// current registration status.
	ErrInvalidState = errors.New("schema is not awaiting registration")
	// ErrForbidden means the supplied registration code does not match.
	ErrForbidden = errors.New("invalid registration code")
	// ErrNotConfigured means the schema lacks the frontend binding or
	// revalidation endpoint required for the operation.
	ErrNotConfigured = errors.New("schema has no revalidation endpoint configured")
)

// Schema represents a content schema (value type).
type Schema struct {
	ID              string
	Name            string
	Slug            string          // unique, derived from Name
	Description     string
	Definition      json.RawMessage // opaque content-schema definition
	LLMInstructions string          // free-text guidance for agents
	IsDefault       bool

	RegistrationStatus   RegistrationStatus
	RegistrationCode     string // non-empty iff StatusWaiting
	FrontendURL          string // non-empty iff StatusRegistered
	RevalidationEndpoint string // relative path on the frontend
	RevalidationSecret   string // shared secret appended to revalidation calls
	SlugStructure        string // URL pattern template, default "/:slug"

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a schema in StatusWaiting with a freshly generated
// registration code. Creating a schema IS the start of its registration.
// This is a PURE function apart from code generation.
func New(id, name, description string, definition json.RawMessage, now time.Time) Schema {
	return Schema{
		ID:                 id,
		Name:               name,
		Slug:               GenerateSlug(name),
		Description:        description,
		Definition:         definition,
		RegistrationStatus: StatusWaiting,
		RegistrationCode:   GenerateCode(),
		SlugStructure:      DefaultSlugStructure,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// ClaimRequest carries the fields a frontend supplies when claiming a schema.
type ClaimRequest struct {
	Code                 string
	FrontendURL          string
	RevalidationEndpoint string
	RevalidationSecret   string
	SlugStructure        string
}

// ValidateClaim checks a claim against the schema. The state check runs
// before the code check: claiming a schema that is not waiting returns
// ErrInvalidState even when the code would have matched.
// This is a PURE function.
func ValidateClaim(s Schema, req ClaimRequest) error {
	if s.RegistrationStatus != StatusWaiting {
		return ErrInvalidState
	}
	if req.Code != s.RegistrationCode {
		return ErrForbidden
	}
	return nil
}

// Claim binds a frontend to the schema. The registration code is cleared,
// so replaying the same code fails the state check on the next attempt.
// Callers must run ValidateClaim first.
// This is a PURE function - returns a new Schema.
func Claim(s Schema, req ClaimRequest, now time.Time) Schema {
	s.RegistrationStatus = StatusRegistered
	s.RegistrationCode = ""
	s.FrontendURL = req.FrontendURL
	s.RevalidationEndpoint = req.RevalidationEndpoint
	s.RevalidationSecret = req.RevalidationSecret
	s.SlugStructure = req.SlugStructure
	if s.SlugStructure == "" {
		s.SlugStructure = DefaultSlugStructure
	}
	s.UpdatedAt = now
	return s
}

// StartRegistration issues a new code and moves the schema to StatusWaiting,
// clearing any previously bound frontend. Restarting while already waiting
// replaces the old code.
// This is a PURE function apart from code generation - returns a new Schema.
func StartRegistration(s Schema, now time.Time) Schema {
	s.RegistrationStatus = StatusWaiting
	s.RegistrationCode = GenerateCode()
	s.FrontendURL = ""
	s.UpdatedAt = now
	return s
}

// CancelRegistration clears the code and reverts to StatusPending.
// Only meaningful while waiting; idempotent otherwise.
// This is a PURE function - returns a new Schema.
func CancelRegistration(s Schema, now time.Time) Schema {
	if s.RegistrationStatus != StatusWaiting {
		return s
	}
	s.RegistrationStatus = StatusPending
	s.RegistrationCode = ""
	s.UpdatedAt = now
	return s
}

// Archive soft-deletes the schema. Reachable from any state; archived
// schemas are excluded from discovery but not physically deleted.
// This is a PURE function - returns a new Schema.
func Archive(s Schema, now time.Time) Schema {
	s.RegistrationStatus = StatusArchived
	s.RegistrationCode = ""
	s.FrontendURL = ""
	s.UpdatedAt = now
	return s
}

// Rename updates the name and re-derives the slug without touching
// registration state.
// This is a PURE function - returns a new Schema.
func Rename(s Schema, name string, now time.Time) Schema {
	s.Name = name
	s.Slug = GenerateSlug(name)
	s.UpdatedAt = now
	return s
}

// CanRevalidate reports whether the schema is fully configured for
// cache-invalidation webhooks.
// This is a PURE function.
func CanRevalidate(s Schema) error {
	if s.RegistrationStatus != StatusRegistered || s.FrontendURL == "" {
		return ErrInvalidState
	}
	if s.RevalidationEndpoint == "" {
		return ErrNotConfigured
	}
	return nil
}

// CheckInvariants verifies the registration-field invariants:
// the code is present iff waiting, the frontend URL is present iff
// registered. Used by tests after every transition.
// This is a PURE function.
func CheckInvariants(s Schema) error {
	if (s.RegistrationCode != "") != (s.RegistrationStatus == StatusWaiting) {
		return errors.New("registration_code must be set exactly while waiting")
	}
	if (s.FrontendURL != "") != (s.RegistrationStatus == StatusRegistered) {
		return errors.New("frontend_url must be set exactly while registered")
	}
	return nil
}

// codeAlphabet is base-36: digits then lowercase letters.
const codeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateCode generates a registration code: four random base-36
// segments of four characters joined by hyphens. Sufficiently
// unguessable for a human-typed, short-lived secret; not meant to be
// cryptographically hardened.
func GenerateCode() string {
	segments := make([]string, 4)
	for i := range segments {
		var b strings.Builder
		for j := 0; j < 4; j++ {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
			if err != nil {
				// crypto/rand only fails when the OS entropy source is
				// broken; fall back to the first alphabet character so
				// the handshake still completes.
				b.WriteByte(codeAlphabet[0])
				continue
			}
			b.WriteByte(codeAlphabet[n.Int64()])
		}
		segments[i] = b.String()
	}
	return strings.Join(segments, "-")
}
