// Package pgstore provides a PostgreSQL implementation of mail.Store.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/sift/internal/mail"
)

var tracer = otel.Tracer("github.com/linnemanlabs/sift/internal/mail/pgstore")

//go:embed schema.sql
var schema string

// Store persists threads and drafts in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply mail schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const threadColumns = `id, subject, participants, status, importance, summary, draft_id, created_at`

// GetThread retrieves a thread by ID.
func (s *Store) GetThread(ctx context.Context, id string) (*mail.Thread, bool, error) {
	ctx, span := tracer.Start(ctx, "mail.pgstore.GetThread", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + threadColumns + ` FROM threads WHERE id = $1`
	t, err := scanThread(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if t == nil {
		return nil, false, nil
	}
	return t, true, nil
}

// PutThread inserts or updates a thread.
func (s *Store) PutThread(ctx context.Context, t *mail.Thread) error {
	ctx, span := tracer.Start(ctx, "mail.pgstore.PutThread", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	query := `INSERT INTO threads (` + threadColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	ON CONFLICT (id) DO UPDATE SET
		subject      = EXCLUDED.subject,
		participants = EXCLUDED.participants,
		status       = EXCLUDED.status,
		importance   = EXCLUDED.importance,
		summary      = EXCLUDED.summary,
		draft_id     = EXCLUDED.draft_id`

	participants := t.Participants
	if participants == nil {
		participants = []string{}
	}

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.Subject, participants, string(t.Status), t.Importance, t.Summary, t.DraftID, t.CreatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert thread: %w", err)
	}
	return nil
}

// ListThreads returns threads with the given status, newest first; an empty
// status matches everything.
func (s *Store) ListThreads(ctx context.Context, status mail.ThreadStatus) ([]mail.Thread, error) {
	ctx, span := tracer.Start(ctx, "mail.pgstore.ListThreads", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + threadColumns + ` FROM threads ORDER BY created_at DESC`
	args := []any{}
	if status != "" {
		query = `SELECT ` + threadColumns + ` FROM threads WHERE status = $1 ORDER BY created_at DESC`
		args = append(args, string(status))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query threads: %w", err)
	}
	defer rows.Close()

	var out []mail.Thread
	for rows.Next() {
		var t mail.Thread
		var st string
		if err := rows.Scan(&t.ID, &t.Subject, &t.Participants, &st, &t.Importance, &t.Summary, &t.DraftID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		t.Status = mail.ThreadStatus(st)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}
	return out, nil
}

const draftColumns = `id, thread_id, body, status, created_at, sent_at`

// GetDraft retrieves a draft by ID.
func (s *Store) GetDraft(ctx context.Context, id string) (*mail.Draft, bool, error) {
	ctx, span := tracer.Start(ctx, "mail.pgstore.GetDraft", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + draftColumns + ` FROM drafts WHERE id = $1`
	d, err := scanDraft(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if d == nil {
		return nil, false, nil
	}
	return d, true, nil
}

// CreateDraft inserts a new draft. The partial unique index on pending
// drafts enforces the one-pending-per-thread invariant; a violation maps to
// mail.ErrPendingDraftExists.
func (s *Store) CreateDraft(ctx context.Context, d *mail.Draft) error {
	ctx, span := tracer.Start(ctx, "mail.pgstore.CreateDraft", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	query := `INSERT INTO drafts (` + draftColumns + `) VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := s.pool.Exec(ctx, query,
		d.ID, d.ThreadID, d.Body, string(d.Status), d.CreatedAt, nullableTime(d.SentAt),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "drafts_one_pending_idx" {
			return mail.ErrPendingDraftExists
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("insert draft: %w", err)
	}
	return nil
}

// PutDraft inserts or updates a draft.
func (s *Store) PutDraft(ctx context.Context, d *mail.Draft) error {
	ctx, span := tracer.Start(ctx, "mail.pgstore.PutDraft", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "UPSERT"),
	))
	defer span.End()

	query := `INSERT INTO drafts (` + draftColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6)
	ON CONFLICT (id) DO UPDATE SET
		body    = EXCLUDED.body,
		status  = EXCLUDED.status,
		sent_at = EXCLUDED.sent_at`

	_, err := s.pool.Exec(ctx, query,
		d.ID, d.ThreadID, d.Body, string(d.Status), d.CreatedAt, nullableTime(d.SentAt),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upsert draft: %w", err)
	}
	return nil
}

// PendingDraft returns the thread's pending draft, if any.
func (s *Store) PendingDraft(ctx context.Context, threadID string) (*mail.Draft, bool, error) {
	ctx, span := tracer.Start(ctx, "mail.pgstore.PendingDraft", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	query := `SELECT ` + draftColumns + ` FROM drafts WHERE thread_id = $1 AND status = 'pending'`
	d, err := scanDraft(s.pool.QueryRow(ctx, query, threadID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, err
	}
	if d == nil {
		return nil, false, nil
	}
	return d, true, nil
}

// scanThread scans one row into a Thread. Returns (nil, nil) on no row.
func scanThread(row pgx.Row) (*mail.Thread, error) {
	var t mail.Thread
	var status string
	err := row.Scan(&t.ID, &t.Subject, &t.Participants, &status, &t.Importance, &t.Summary, &t.DraftID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan thread: %w", err)
	}
	t.Status = mail.ThreadStatus(status)
	return &t, nil
}

// scanDraft scans one row into a Draft. Returns (nil, nil) on no row.
func scanDraft(row pgx.Row) (*mail.Draft, error) {
	var d mail.Draft
	var status string
	var sentAt *time.Time
	err := row.Scan(&d.ID, &d.ThreadID, &d.Body, &status, &d.CreatedAt, &sentAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan draft: %w", err)
	}
	d.Status = mail.DraftStatus(status)
	if sentAt != nil {
		d.SentAt = *sentAt
	}
	return &d, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
