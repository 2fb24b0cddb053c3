package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/JaYani55/service-cms-sub001/domain/schema"
	"github.com/JaYani55/service-cms-sub001/ports"
)

const schemaColumns = `id, name, slug, description, definition, llm_instructions,
       is_default, registration_status, registration_code, frontend_url,
       revalidation_endpoint, revalidation_secret, slug_structure,
       created_at, updated_at`

// schemaStore implements ports.SchemaStore using SQLite.
type schemaStore struct {
	db *sql.DB
}

// NewSchemaStore creates a new SQLite schema store.
func NewSchemaStore(db *DB) ports.SchemaStore {
	return &schemaStore{db: db.DB}
}

func (s *schemaStore) Get(ctx context.Context, id string) (schema.Schema, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+schemaColumns+`
		FROM schemas
		WHERE id = ?
	`, id)
	return scanSchema(row)
}

func (s *schemaStore) GetBySlug(ctx context.Context, slug string) (schema.Schema, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+schemaColumns+`
		FROM schemas
		WHERE slug = ?
	`, slug)
	return scanSchema(row)
}

func (s *schemaStore) List(ctx context.Context) ([]schema.Schema, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+schemaColumns+`
		FROM schemas
		WHERE registration_status != ?
		ORDER BY is_default DESC, name COLLATE NOCASE ASC
	`, string(schema.StatusArchived))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schema.Schema
	for rows.Next() {
		sc, err := scanSchema(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *schemaStore) Create(ctx context.Context, sc schema.Schema) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schemas (`+schemaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sc.ID, sc.Name, sc.Slug, sc.Description, definitionText(sc.Definition),
		sc.LLMInstructions, sc.IsDefault, string(sc.RegistrationStatus),
		nullable(sc.RegistrationCode), nullable(sc.FrontendURL),
		nullable(sc.RevalidationEndpoint), nullable(sc.RevalidationSecret),
		sc.SlugStructure, sc.CreatedAt, sc.UpdatedAt)
	return err
}

func (s *schemaStore) Update(ctx context.Context, sc schema.Schema) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE schemas
		SET name = ?, slug = ?, description = ?, definition = ?,
		    llm_instructions = ?, is_default = ?, registration_status = ?,
		    registration_code = ?, frontend_url = ?, revalidation_endpoint = ?,
		    revalidation_secret = ?, slug_structure = ?, updated_at = ?
		WHERE id = ?
	`, sc.Name, sc.Slug, sc.Description, definitionText(sc.Definition),
		sc.LLMInstructions, sc.IsDefault, string(sc.RegistrationStatus),
		nullable(sc.RegistrationCode), nullable(sc.FrontendURL),
		nullable(sc.RevalidationEndpoint), nullable(sc.RevalidationSecret),
		sc.SlugStructure, sc.UpdatedAt, sc.ID)
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

// ClaimRegistration writes the claimed schema only while the stored row
// is still waiting. The status condition makes the transition atomic:
// of two concurrent claims that both passed validation, exactly one
// affects a row.
func (s *schemaStore) ClaimRegistration(ctx context.Context, sc schema.Schema) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE schemas
		SET registration_status = ?, registration_code = NULL,
		    frontend_url = ?, revalidation_endpoint = ?,
		    revalidation_secret = ?, slug_structure = ?, updated_at = ?
		WHERE id = ? AND registration_status = ?
	`, string(schema.StatusRegistered), nullable(sc.FrontendURL),
		nullable(sc.RevalidationEndpoint), nullable(sc.RevalidationSecret),
		sc.SlugStructure, sc.UpdatedAt, sc.ID, string(schema.StatusWaiting))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSchema(row scanner) (schema.Schema, error) {
	var sc schema.Schema
	var definition, code, frontend, endpoint, secret sql.NullString
	var status string

	err := row.Scan(&sc.ID, &sc.Name, &sc.Slug, &sc.Description, &definition,
		&sc.LLMInstructions, &sc.IsDefault, &status, &code, &frontend,
		&endpoint, &secret, &sc.SlugStructure, &sc.CreatedAt, &sc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Schema{}, ports.ErrNotFound
	}
	if err != nil {
		return schema.Schema{}, err
	}

	sc.RegistrationStatus = schema.RegistrationStatus(status)
	if definition.Valid && definition.String != "" {
		sc.Definition = json.RawMessage(definition.String)
	}
	sc.RegistrationCode = code.String
	sc.FrontendURL = frontend.String
	sc.RevalidationEndpoint = endpoint.String
	sc.RevalidationSecret = secret.String
	return sc, nil
}

func definitionText(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}
