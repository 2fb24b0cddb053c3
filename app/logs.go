package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/JaYani55/service-cms-sub001/adapters/metrics"
	"github.com/JaYani55/service-cms-sub001/domain/agentlog"
	"github.com/JaYani55/service-cms-sub001/ports"
	"github.com/rs/zerolog"
)

// downloadCap bounds a log export so one request cannot drain the table.
const downloadCap = 5000

// ErrConfirmRequired is returned when a bulk purge is attempted without
// explicit confirmation.
var ErrConfirmRequired = errors.New("bulk delete requires confirmation")

// AgentLogService persists and queries the request audit trail.
type AgentLogService struct {
	logs    ports.AgentLogStore
	clock   ports.Clock
	ids     ports.IDGenerator
	logger  zerolog.Logger
	metrics *metrics.Collector // optional
	cap     int
}

// NewAgentLogService creates a new agent log service.
func NewAgentLogService(logs ports.AgentLogStore, clock ports.Clock, ids ports.IDGenerator, logger zerolog.Logger, m *metrics.Collector) *AgentLogService {
	return &AgentLogService{logs: logs, clock: clock, ids: ids, logger: logger, metrics: m, cap: downloadCap}
}

// SetDownloadCap overrides the default export cap. Non-positive values
// are ignored.
func (s *AgentLogService) SetDownloadCap(n int) {
	if n > 0 {
		s.cap = n
	}
}

// Record persists one audit entry. It never returns an error: audit
// persistence failing must not affect the request being audited, so
// failures are logged and counted here and swallowed.
func (s *AgentLogService) Record(ctx context.Context, e agentlog.Entry) {
	e.ID = s.ids.New()
	e.CreatedAt = s.clock.Now()

	if err := s.logs.Create(ctx, e); err != nil {
		if s.metrics != nil {
			s.metrics.AuditWriteErrors.Inc()
		}
		s.logger.Error().Err(err).
			Str("method", e.Method).
			Str("path", e.Path).
			Msg("audit write failed")
		return
	}
	if s.metrics != nil {
		s.metrics.AuditWrites.Inc()
	}
}

// LogPage is one page of audit entries.
type LogPage struct {
	Entries []agentlog.Entry `json:"entries"`
	Total   int64            `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// List returns a page of audit entries, newest first.
func (s *AgentLogService) List(ctx context.Context, f agentlog.Filter, limit, offset int) (LogPage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.logs.List(ctx, f, limit, offset)
	if err != nil {
		return LogPage{}, fmt.Errorf("list logs: %w", err)
	}
	total, err := s.logs.Count(ctx, f)
	if err != nil {
		return LogPage{}, fmt.Errorf("count logs: %w", err)
	}
	return LogPage{Entries: entries, Total: total, Limit: limit, Offset: offset}, nil
}

// Stats aggregates the audit trail.
func (s *AgentLogService) Stats(ctx context.Context) (agentlog.Stats, error) {
	stats, err := s.logs.Stats(ctx)
	if err != nil {
		return agentlog.Stats{}, fmt.Errorf("log stats: %w", err)
	}
	return stats, nil
}

// Download returns entries for export, capped so a single call cannot
// pull the whole table at once.
func (s *AgentLogService) Download(ctx context.Context, f agentlog.Filter) ([]agentlog.Entry, error) {
	entries, err := s.logs.List(ctx, f, s.cap, 0)
	if err != nil {
		return nil, fmt.Errorf("download logs: %w", err)
	}
	return entries, nil
}

// Delete removes a single entry by ID.
func (s *AgentLogService) Delete(ctx context.Context, id string) error {
	if err := s.logs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete log %q: %w", id, err)
	}
	return nil
}

// DeleteByFilter purges entries matching a non-empty filter.
func (s *AgentLogService) DeleteByFilter(ctx context.Context, f agentlog.Filter) (int64, error) {
	n, err := s.logs.DeleteByFilter(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("delete logs: %w", err)
	}
	s.logger.Info().Int64("deleted", n).Msg("audit entries purged")
	return n, nil
}

// DeleteAll truncates the whole trail. The caller must pass confirm to
// make the destructive intent explicit.
func (s *AgentLogService) DeleteAll(ctx context.Context, confirm bool) (int64, error) {
	if !confirm {
		return 0, ErrConfirmRequired
	}
	n, err := s.logs.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete all logs: %w", err)
	}
	s.logger.Warn().Int64("deleted", n).Msg("audit trail truncated")
	return n, nil
}
