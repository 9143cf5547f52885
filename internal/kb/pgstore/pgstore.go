// Package pgstore provides a PostgreSQL implementation of kb.Store.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/sift/internal/kb"
)

var tracer = otel.Tracer("github.com/linnemanlabs/sift/internal/kb/pgstore")

//go:embed schema.sql
var schema string

// Store persists knowledge-base records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply kb schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const personColumns = `id, email, name, company, role, notes, tags, created_at, updated_at`

// GetPersonByEmail retrieves a person by exact email equality.
func (s *Store) GetPersonByEmail(ctx context.Context, email string) (*kb.Person, bool, error) {
	ctx, span := tracer.Start(ctx, "kb.pgstore.GetPersonByEmail", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + personColumns + ` FROM people WHERE email = $1`
	var p kb.Person
	err := s.pool.QueryRow(ctx, query, email).Scan(
		&p.ID, &p.Email, &p.Name, &p.Company, &p.Role, &p.Notes, &p.Tags, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("scan person: %w", err)
	}
	return &p, true, nil
}

// PutPerson inserts or updates a person (upsert on email).
func (s *Store) PutPerson(ctx context.Context, p *kb.Person) error {
	ctx, span := tracer.Start(ctx, "kb.pgstore.PutPerson", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	query := `INSERT INTO people (` + personColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	ON CONFLICT (email) DO UPDATE SET
		name       = EXCLUDED.name,
		company    = EXCLUDED.company,
		role       = EXCLUDED.role,
		notes      = EXCLUDED.notes,
		tags       = EXCLUDED.tags,
		updated_at = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.Email, p.Name, p.Company, p.Role, p.Notes, tagsOrEmpty(p.Tags), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert person: %w", err)
	}
	return nil
}

// ListPeople returns all people ordered by creation time.
func (s *Store) ListPeople(ctx context.Context) ([]kb.Person, error) {
	ctx, span := tracer.Start(ctx, "kb.pgstore.ListPeople", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT `+personColumns+` FROM people ORDER BY created_at`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query people: %w", err)
	}
	defer rows.Close()

	var out []kb.Person
	for rows.Next() {
		var p kb.Person
		if err := rows.Scan(&p.ID, &p.Email, &p.Name, &p.Company, &p.Role, &p.Notes, &p.Tags, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate people: %w", err)
	}
	return out, nil
}

const projectColumns = `id, name, description, status, notes, tags, created_at, updated_at`

// GetProjectByName retrieves a project matched case-insensitively by name.
func (s *Store) GetProjectByName(ctx context.Context, name string) (*kb.Project, bool, error) {
	ctx, span := tracer.Start(ctx, "kb.pgstore.GetProjectByName", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + projectColumns + ` FROM projects WHERE lower(name) = lower($1)`
	var p kb.Project
	err := s.pool.QueryRow(ctx, query, name).Scan(
		&p.ID, &p.Name, &p.Description, &p.Status, &p.Notes, &p.Tags, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("scan project: %w", err)
	}
	return &p, true, nil
}

// PutProject inserts or updates a project (upsert on case-folded name).
func (s *Store) PutProject(ctx context.Context, p *kb.Project) error {
	ctx, span := tracer.Start(ctx, "kb.pgstore.PutProject", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	query := `INSERT INTO projects (` + projectColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	ON CONFLICT (lower(name)) DO UPDATE SET
		description = EXCLUDED.description,
		status      = EXCLUDED.status,
		notes       = EXCLUDED.notes,
		tags        = EXCLUDED.tags,
		updated_at  = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Status, p.Notes, tagsOrEmpty(p.Tags), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert project: %w", err)
	}
	return nil
}

// ListProjects returns all projects ordered by creation time.
func (s *Store) ListProjects(ctx context.Context) ([]kb.Project, error) {
	ctx, span := tracer.Start(ctx, "kb.pgstore.ListProjects", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at`)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var out []kb.Project
	for rows.Next() {
		var p kb.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.Notes, &p.Tags, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return out, nil
}

// tagsOrEmpty keeps nil slices out of the text[] column.
func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
