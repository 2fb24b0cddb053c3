package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/JaYani55/service-cms-sub001/domain/page"
	"github.com/JaYani55/service-cms-sub001/ports"
)

const pageColumns = `id, schema_id, name, slug, content, status, published_at,
       created_at, updated_at`

// pageStore implements ports.PageStore using SQLite.
type pageStore struct {
	db *sql.DB
}

// NewPageStore creates a new SQLite page store.
func NewPageStore(db *DB) ports.PageStore {
	return &pageStore{db: db.DB}
}

func (s *pageStore) Get(ctx context.Context, id string) (page.Page, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+pageColumns+`
		FROM pages
		WHERE id = ?
	`, id)
	return scanPage(row)
}

func (s *pageStore) ListBySchema(ctx context.Context, schemaID string, limit, offset int) ([]page.Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+pageColumns+`
		FROM pages
		WHERE schema_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, schemaID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []page.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *pageStore) CountBySchema(ctx context.Context, schemaID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pages WHERE schema_id = ?", schemaID).Scan(&n)
	return n, err
}

func (s *pageStore) Create(ctx context.Context, p page.Page) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pages (`+pageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.SchemaID, p.Name, p.Slug, definitionText(p.Content),
		string(p.Status), publishedAt(p.PublishedAt), p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *pageStore) Update(ctx context.Context, p page.Page) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pages
		SET name = ?, slug = ?, content = ?, status = ?, published_at = ?,
		    updated_at = ?
		WHERE id = ?
	`, p.Name, p.Slug, definitionText(p.Content), string(p.Status),
		publishedAt(p.PublishedAt), p.UpdatedAt, p.ID)
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

func scanPage(row scanner) (page.Page, error) {
	var p page.Page
	var content sql.NullString
	var status string
	var published sql.NullTime

	err := row.Scan(&p.ID, &p.SchemaID, &p.Name, &p.Slug, &content, &status,
		&published, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return page.Page{}, ports.ErrNotFound
	}
	if err != nil {
		return page.Page{}, err
	}

	p.Status = page.Status(status)
	if content.Valid && content.String != "" {
		p.Content = json.RawMessage(content.String)
	}
	if published.Valid {
		t := published.Time
		p.PublishedAt = &t
	}
	return p, nil
}

func publishedAt(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
