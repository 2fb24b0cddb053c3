// Package app contains the services that orchestrate domain logic over
// the storage and infrastructure ports. Both protocol front ends (REST
// and the tool-call surface) delegate to these services and never
// reimplement them.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/JaYani55/service-cms-sub001/adapters/metrics"
	"github.com/JaYani55/service-cms-sub001/domain/schema"
	"github.com/JaYani55/service-cms-sub001/ports"
	"github.com/rs/zerolog"
)

// RegistrationService owns the schema registration state machine and the
// code handshake.
type RegistrationService struct {
	schemas ports.SchemaStore
	clock   ports.Clock
	logger  zerolog.Logger
	metrics *metrics.Collector // optional
}

// NewRegistrationService creates a new registration service.
func NewRegistrationService(schemas ports.SchemaStore, clock ports.Clock, logger zerolog.Logger, m *metrics.Collector) *RegistrationService {
	return &RegistrationService{schemas: schemas, clock: clock, logger: logger, metrics: m}
}

// StatusProjection is the read-only view polled by the schema owner's UI.
type StatusProjection struct {
	RegistrationStatus schema.RegistrationStatus `json:"registration_status"`
	FrontendURL        string                    `json:"frontend_url,omitempty"`
}

// Start issues a fresh registration code and moves the schema to waiting,
// clearing any previously bound frontend. Restarting replaces the code.
func (s *RegistrationService) Start(ctx context.Context, schemaID string) (schema.Schema, error) {
	sc, err := s.schemas.Get(ctx, schemaID)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("start registration: %w", err)
	}

	sc = schema.StartRegistration(sc, s.clock.Now())
	if err := s.schemas.Update(ctx, sc); err != nil {
		return schema.Schema{}, fmt.Errorf("start registration: %w", err)
	}

	s.logger.Info().Str("schema_id", sc.ID).Str("slug", sc.Slug).Msg("registration started")
	return sc, nil
}

// Cancel clears the code and reverts a waiting schema to pending.
// Idempotent when the schema is not waiting.
func (s *RegistrationService) Cancel(ctx context.Context, schemaID string) error {
	sc, err := s.schemas.Get(ctx, schemaID)
	if err != nil {
		return fmt.Errorf("cancel registration: %w", err)
	}

	if sc.RegistrationStatus != schema.StatusWaiting {
		return nil
	}

	if err := s.schemas.Update(ctx, schema.CancelRegistration(sc, s.clock.Now())); err != nil {
		return fmt.Errorf("cancel registration: %w", err)
	}

	s.logger.Info().Str("schema_id", sc.ID).Msg("registration cancelled")
	return nil
}

// Claim is the handshake: an external frontend presents the registration
// code for a waiting schema and binds its own URL. The state check runs
// before the code check, and the final write is conditional on the row
// still being in waiting, so a concurrent claim cannot double-register.
func (s *RegistrationService) Claim(ctx context.Context, slug string, req schema.ClaimRequest) (schema.Schema, error) {
	sc, err := s.schemas.GetBySlug(ctx, slug)
	if err != nil {
		s.countClaim("not_found")
		return schema.Schema{}, fmt.Errorf("claim %q: %w", slug, err)
	}

	if err := schema.ValidateClaim(sc, req); err != nil {
		switch {
		case errors.Is(err, schema.ErrForbidden):
			s.countClaim("forbidden")
			s.logger.Warn().Str("slug", slug).Msg("claim with invalid registration code")
		default:
			s.countClaim("invalid_state")
		}
		return schema.Schema{}, err
	}

	claimed := schema.Claim(sc, req, s.clock.Now())
	won, err := s.schemas.ClaimRegistration(ctx, claimed)
	if err != nil {
		s.countClaim("error")
		return schema.Schema{}, fmt.Errorf("claim %q: %w", slug, err)
	}
	if !won {
		// Another claim got there between our read and write.
		s.countClaim("invalid_state")
		return schema.Schema{}, schema.ErrInvalidState
	}

	s.countClaim("registered")
	s.logger.Info().
		Str("schema_id", claimed.ID).
		Str("slug", claimed.Slug).
		Str("frontend_url", claimed.FrontendURL).
		Msg("schema registered to frontend")
	return claimed, nil
}

// Status returns the registration projection polled by the client.
func (s *RegistrationService) Status(ctx context.Context, schemaID string) (StatusProjection, error) {
	sc, err := s.schemas.Get(ctx, schemaID)
	if err != nil {
		return StatusProjection{}, fmt.Errorf("registration status: %w", err)
	}
	return StatusProjection{
		RegistrationStatus: sc.RegistrationStatus,
		FrontendURL:        sc.FrontendURL,
	}, nil
}

func (s *RegistrationService) countClaim(outcome string) {
	if s.metrics != nil {
		s.metrics.Registrations.WithLabelValues(outcome).Inc()
	}
}
