package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/atelier/internal/artifact"
)

// Querier is the subset of pgx operations the store needs. pgxpool.Pool
// satisfies it; tests substitute a fake.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store persists sessions in PostgreSQL. Turn history and the current
// artifact set are stored as JSONB and written back wholesale: the save
// contract is last-write-wins, with no transactional coupling to the
// caller's in-memory state.
type Store struct {
	db     Querier
	logger *slog.Logger
}

// New creates a Store. logger may be nil.
func New(db Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// NewWithPool creates a Store backed by a pgx connection pool.
func NewWithPool(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return New(pool, logger)
}

// Create inserts a new empty session for the owner. The artifact set
// starts at its sentinel state so the UI can tell "no prompt yet" from
// "nothing generated".
func (s *Store) Create(ctx context.Context, ownerID string) (*Session, error) {
	if ownerID == "" {
		return nil, errors.New("owner id is required")
	}

	empty, err := json.Marshal(artifact.EmptySet())
	if err != nil {
		return nil, fmt.Errorf("marshal empty artifact set: %w", err)
	}

	const q = `INSERT INTO sessions (owner_id, turns, artifacts)
		VALUES ($1, '[]'::jsonb, $2)
		RETURNING id, created_at, updated_at`

	var (
		id                   pgtype.UUID
		createdAt, updatedAt pgtype.Timestamptz
	)
	if err := s.db.QueryRow(ctx, q, ownerID, empty).Scan(&id, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	sess := &Session{
		ID:        uuid.UUID(id.Bytes),
		OwnerID:   ownerID,
		CreatedAt: createdAt.Time,
		UpdatedAt: updatedAt.Time,
	}
	s.logger.Debug("created session", "id", sess.ID, "owner", ownerID)
	return sess, nil
}

// List returns the owner's sessions ordered by most recent activity.
func (s *Store) List(ctx context.Context, ownerID string) ([]*Session, error) {
	const q = `SELECT id, created_at, updated_at FROM sessions
		WHERE owner_id = $1 ORDER BY updated_at DESC`

	rows, err := s.db.Query(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var (
			id                   pgtype.UUID
			createdAt, updatedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, &Session{
			ID:        uuid.UUID(id.Bytes),
			OwnerID:   ownerID,
			CreatedAt: createdAt.Time,
			UpdatedAt: updatedAt.Time,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	s.logger.Debug("listed sessions", "owner", ownerID, "count", len(sessions))
	return sessions, nil
}

// Load retrieves the full turn history and current artifact set.
// Returns ErrNotFound when the session is absent or owned by someone
// else.
func (s *Store) Load(ctx context.Context, ownerID string, id uuid.UUID) (*Record, error) {
	const q = `SELECT turns, artifacts, created_at, updated_at FROM sessions
		WHERE id = $1 AND owner_id = $2`

	var (
		turnsJSON, artifactsJSON []byte
		createdAt, updatedAt     pgtype.Timestamptz
	)
	err := s.db.QueryRow(ctx, q, pgUUID(id), ownerID).Scan(&turnsJSON, &artifactsJSON, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	rec := &Record{
		CreatedAt: createdAt.Time,
		UpdatedAt: updatedAt.Time,
		Artifacts: artifact.EmptySet(),
	}
	if err := json.Unmarshal(turnsJSON, &rec.Turns); err != nil {
		return nil, fmt.Errorf("decode turns for session %s: %w", id, err)
	}
	if err := json.Unmarshal(artifactsJSON, &rec.Artifacts); err != nil {
		return nil, fmt.Errorf("decode artifacts for session %s: %w", id, err)
	}

	s.logger.Debug("loaded session", "id", id, "turns", len(rec.Turns))
	return rec, nil
}

// Save replaces the stored turn history and artifact set wholesale and
// returns the new updated_at. Returns ErrNotFound when the session is
// absent or not owned.
func (s *Store) Save(ctx context.Context, ownerID string, id uuid.UUID, turns []Turn, set artifact.Set) (time.Time, error) {
	turnsJSON, err := json.Marshal(turns)
	if err != nil {
		return time.Time{}, fmt.Errorf("encode turns: %w", err)
	}
	artifactsJSON, err := json.Marshal(set)
	if err != nil {
		return time.Time{}, fmt.Errorf("encode artifacts: %w", err)
	}

	const q = `UPDATE sessions SET turns = $1, artifacts = $2, updated_at = now()
		WHERE id = $3 AND owner_id = $4
		RETURNING updated_at`

	var updatedAt pgtype.Timestamptz
	err = s.db.QueryRow(ctx, q, turnsJSON, artifactsJSON, pgUUID(id), ownerID).Scan(&updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, fmt.Errorf("save session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("save session %s: %w", id, err)
	}

	s.logger.Debug("saved session", "id", id, "turns", len(turns))
	return updatedAt.Time, nil
}

// Delete removes a session. Returns ErrNotFound when absent or not
// owned.
func (s *Store) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	const q = `DELETE FROM sessions WHERE id = $1 AND owner_id = $2`

	tag, err := s.db.Exec(ctx, q, pgUUID(id), ownerID)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete session %s: %w", id, ErrNotFound)
	}
	s.logger.Debug("deleted session", "id", id)
	return nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
