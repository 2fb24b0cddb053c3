package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/JaYani55/service-cms-sub001/domain/agentlog"
	"github.com/JaYani55/service-cms-sub001/ports"
)

const logColumns = `id, method, path, status_code, duration_ms, request_body,
       response_body, client_ip, user_agent, schema_id, schema_slug, error,
       created_at`

// agentLogStore implements ports.AgentLogStore using SQLite.
type agentLogStore struct {
	db *sql.DB
}

// NewAgentLogStore creates a new SQLite agent log store.
func NewAgentLogStore(db *DB) ports.AgentLogStore {
	return &agentLogStore{db: db.DB}
}

func (s *agentLogStore) Create(ctx context.Context, e agentlog.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_logs (`+logColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Method, e.Path, e.StatusCode, e.DurationMS,
		definitionText(e.RequestBody), definitionText(e.ResponseBody),
		e.ClientIP, e.UserAgent, nullable(e.SchemaID), nullable(e.SchemaSlug),
		e.Error, e.CreatedAt)
	return err
}

// filterClause builds the WHERE clause and arguments for a filter.
func filterClause(f agentlog.Filter) (string, []any) {
	var conds []string
	var args []any
	if f.SchemaSlug != "" {
		conds = append(conds, "schema_slug = ?")
		args = append(args, f.SchemaSlug)
	}
	if f.Method != "" {
		conds = append(conds, "method = ?")
		args = append(args, strings.ToUpper(f.Method))
	}
	if f.MinStatus > 0 {
		conds = append(conds, "status_code >= ?")
		args = append(args, f.MinStatus)
	}
	if !f.Since.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.Since)
	}
	if !f.Until.IsZero() {
		conds = append(conds, "created_at < ?")
		args = append(args, f.Until)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *agentLogStore) List(ctx context.Context, f agentlog.Filter, limit, offset int) ([]agentlog.Entry, error) {
	where, args := filterClause(f)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+logColumns+`
		FROM agent_logs`+where+`
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []agentlog.Entry
	for rows.Next() {
		e, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *agentLogStore) Count(ctx context.Context, f agentlog.Filter) (int64, error) {
	where, args := filterClause(f)
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM agent_logs"+where, args...).Scan(&n)
	return n, err
}

func (s *agentLogStore) Stats(ctx context.Context) (agentlog.Stats, error) {
	stats := agentlog.Stats{
		ByMethod:     make(map[string]int64),
		BySchemaSlug: make(map[string]int64),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status_code >= 400 THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(duration_ms), 0)
		FROM agent_logs
	`).Scan(&stats.Total, &stats.ErrorCount, &stats.AvgDuration)
	if err != nil {
		return agentlog.Stats{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT method, COUNT(*) FROM agent_logs GROUP BY method")
	if err != nil {
		return agentlog.Stats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var method string
		var n int64
		if err := rows.Scan(&method, &n); err != nil {
			return agentlog.Stats{}, err
		}
		stats.ByMethod[method] = n
	}
	if err := rows.Err(); err != nil {
		return agentlog.Stats{}, err
	}

	slugRows, err := s.db.QueryContext(ctx, `
		SELECT schema_slug, COUNT(*)
		FROM agent_logs
		WHERE schema_slug IS NOT NULL
		GROUP BY schema_slug
	`)
	if err != nil {
		return agentlog.Stats{}, err
	}
	defer slugRows.Close()
	for slugRows.Next() {
		var slug string
		var n int64
		if err := slugRows.Scan(&slug, &n); err != nil {
			return agentlog.Stats{}, err
		}
		stats.BySchemaSlug[slug] = n
	}
	return stats, slugRows.Err()
}

func (s *agentLogStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM agent_logs WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (s *agentLogStore) DeleteByFilter(ctx context.Context, f agentlog.Filter) (int64, error) {
	where, args := filterClause(f)
	if where == "" {
		// An unconstrained bulk delete must go through DeleteAll, which
		// callers gate behind an explicit confirmation.
		return 0, errors.New("refusing unfiltered delete; use DeleteAll")
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM agent_logs"+where, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *agentLogStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM agent_logs")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanLog(row scanner) (agentlog.Entry, error) {
	var e agentlog.Entry
	var reqBody, respBody, schemaID, schemaSlug sql.NullString

	err := row.Scan(&e.ID, &e.Method, &e.Path, &e.StatusCode, &e.DurationMS,
		&reqBody, &respBody, &e.ClientIP, &e.UserAgent, &schemaID,
		&schemaSlug, &e.Error, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return agentlog.Entry{}, ports.ErrNotFound
	}
	if err != nil {
		return agentlog.Entry{}, err
	}

	if reqBody.Valid {
		e.RequestBody = json.RawMessage(reqBody.String)
	}
	if respBody.Valid {
		e.ResponseBody = json.RawMessage(respBody.String)
	}
	e.SchemaID = schemaID.String
	e.SchemaSlug = schemaSlug.String
	return e, nil
}
