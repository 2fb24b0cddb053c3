package app

import (
	"context"
	"net/http"
	"time"

	"github.com/JaYani55/service-cms-sub001/adapters/metrics"
	"github.com/JaYani55/service-cms-sub001/domain/schema"
	"github.com/JaYani55/service-cms-sub001/ports"
	"github.com/rs/zerolog"
)

// probeTimeout bounds one outbound HEAD probe.
const probeTimeout = 5 * time.Second

// HealthStatus is the probe verdict.
type HealthStatus string

const (
	HealthOnline  HealthStatus = "online"
	HealthOffline HealthStatus = "offline"
)

// HealthResult reports an outbound probe. Probe failures are values,
// never errors: DNS failures, refused connections, and timeouts all
// land in Reason.
type HealthResult struct {
	Status     HealthStatus `json:"status"`
	LatencyMS  int64        `json:"latency_ms"`
	HTTPStatus int          `json:"http_status,omitempty"`
	Reason     string       `json:"reason,omitempty"`
}

// HealthService probes frontend liveness with bounded HEAD requests.
type HealthService struct {
	schemas ports.SchemaStore
	clock   ports.Clock
	client  *http.Client
	logger  zerolog.Logger
	metrics *metrics.Collector // optional
}

// NewHealthService creates a new health service.
func NewHealthService(schemas ports.SchemaStore, clock ports.Clock, logger zerolog.Logger, m *metrics.Collector) *HealthService {
	return &HealthService{
		schemas: schemas,
		clock:   clock,
		client:  &http.Client{Timeout: probeTimeout},
		logger:  logger,
		metrics: m,
	}
}

// SetTimeout overrides the default probe timeout. Zero and negative
// durations are ignored.
func (s *HealthService) SetTimeout(d time.Duration) {
	if d > 0 {
		s.client.Timeout = d
	}
}

// Check probes an arbitrary URL with a HEAD request.
func (s *HealthService) Check(ctx context.Context, target string) HealthResult {
	start := s.clock.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return s.offline(start, "invalid URL")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Debug().Err(err).Str("target", target).Msg("health probe failed")
		return s.offline(start, "Connection failed or timed out")
	}
	resp.Body.Close()

	result := HealthResult{
		Status:     HealthOnline,
		LatencyMS:  s.clock.Now().Sub(start).Milliseconds(),
		HTTPStatus: resp.StatusCode,
	}
	s.countProbe(HealthOnline)
	return result
}

// CheckSchema probes a schema's registered frontend. An unknown slug or
// an unregistered schema short-circuits to offline without touching the
// network.
func (s *HealthService) CheckSchema(ctx context.Context, slug string) HealthResult {
	sc, err := s.schemas.GetBySlug(ctx, slug)
	if err != nil {
		return s.offline(s.clock.Now(), "schema not found")
	}
	if sc.RegistrationStatus != schema.StatusRegistered || sc.FrontendURL == "" {
		return s.offline(s.clock.Now(), "no frontend registered")
	}
	return s.Check(ctx, sc.FrontendURL)
}

func (s *HealthService) offline(start time.Time, reason string) HealthResult {
	s.countProbe(HealthOffline)
	return HealthResult{
		Status:    HealthOffline,
		LatencyMS: s.clock.Now().Sub(start).Milliseconds(),
		Reason:    reason,
	}
}

func (s *HealthService) countProbe(status HealthStatus) {
	if s.metrics != nil {
		s.metrics.HealthProbes.WithLabelValues(string(status)).Inc()
	}
}
