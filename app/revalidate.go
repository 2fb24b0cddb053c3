package app

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/JaYani55/service-cms-sub001/adapters/metrics"
	"github.com/JaYani55/service-cms-sub001/domain/schema"
	"github.com/JaYani55/service-cms-sub001/ports"
	"github.com/rs/zerolog"
)

// revalidateTimeout bounds the outbound webhook call.
const revalidateTimeout = 10 * time.Second

// RevalidationService fires cache-invalidation webhooks at registered
// frontends.
type RevalidationService struct {
	schemas ports.SchemaStore
	client  *http.Client
	logger  zerolog.Logger
	metrics *metrics.Collector // optional
}

// NewRevalidationService creates a new revalidation service.
func NewRevalidationService(schemas ports.SchemaStore, logger zerolog.Logger, m *metrics.Collector) *RevalidationService {
	return &RevalidationService{
		schemas: schemas,
		client:  &http.Client{Timeout: revalidateTimeout},
		logger:  logger,
		metrics: m,
	}
}

// SetTimeout overrides the default webhook timeout. Zero and negative
// durations are ignored.
func (s *RevalidationService) SetTimeout(d time.Duration) {
	if d > 0 {
		s.client.Timeout = d
	}
}

// RevalidationResult is the outcome of one webhook dispatch. Network
// failures land here as Success=false with Error set; they are never
// returned as an error from Trigger.
type RevalidationResult struct {
	Success bool   `json:"success"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Trigger dispatches a revalidation webhook for one page of a schema's
// frontend. Preconditions (schema exists, is registered, has a
// revalidation endpoint) fail hard; the outbound call itself fails soft.
func (s *RevalidationService) Trigger(ctx context.Context, slug, pageSlug string) (RevalidationResult, error) {
	sc, err := s.schemas.GetBySlug(ctx, slug)
	if err != nil {
		return RevalidationResult{}, fmt.Errorf("revalidate %q: %w", slug, err)
	}
	if err := schema.CanRevalidate(sc); err != nil {
		return RevalidationResult{}, err
	}

	target, err := buildRevalidationURL(sc, pageSlug)
	if err != nil {
		return RevalidationResult{}, fmt.Errorf("revalidate %q: %w", slug, err)
	}

	result := s.dispatch(ctx, target)
	outcome := "failure"
	if result.Success {
		outcome = "success"
	}
	if s.metrics != nil {
		s.metrics.Revalidations.WithLabelValues(outcome).Inc()
	}
	s.logger.Info().
		Str("slug", slug).
		Str("page_slug", pageSlug).
		Bool("success", result.Success).
		Int("status", result.Status).
		Msg("revalidation dispatched")
	return result, nil
}

// buildRevalidationURL resolves the schema's revalidation endpoint
// against its frontend URL and appends the secret and page path as
// query parameters.
func buildRevalidationURL(sc schema.Schema, pageSlug string) (string, error) {
	base, err := url.Parse(sc.FrontendURL)
	if err != nil {
		return "", fmt.Errorf("parse frontend_url: %w", err)
	}
	endpoint, err := url.Parse(sc.RevalidationEndpoint)
	if err != nil {
		return "", fmt.Errorf("parse revalidation_endpoint: %w", err)
	}

	target := base.ResolveReference(endpoint)
	q := target.Query()
	if sc.RevalidationSecret != "" {
		q.Set("secret", sc.RevalidationSecret)
	}
	q.Set("path", pageSlug)
	target.RawQuery = q.Encode()
	return target.String(), nil
}

func (s *RevalidationService) dispatch(ctx context.Context, target string) RevalidationResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader([]byte("{}")))
	if err != nil {
		return RevalidationResult{Success: false, Message: "revalidation request could not be built", Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn().Err(err).Str("target", redactSecret(target)).Msg("revalidation call failed")
		return RevalidationResult{Success: false, Message: "revalidation call failed", Error: err.Error()}
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	msg := "revalidation accepted by frontend"
	if !ok {
		msg = fmt.Sprintf("frontend rejected revalidation with status %d", resp.StatusCode)
	}
	return RevalidationResult{Success: ok, Status: resp.StatusCode, Message: msg}
}

// redactSecret strips the secret query parameter before the URL is
// logged.
func redactSecret(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	if q.Has("secret") {
		q.Set("secret", "redacted")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
