package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadcrm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// User represents the user database model.
type User struct {
	ID           uuid.UUID `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Name         string    `db:"name"`
	Roles        []string  `db:"roles"`
	CreatedAt    time.Time `db:"created_at"`
}

// Session represents one work session of a principal. At most one row per
// user has is_active=true, enforced by a partial unique index.
type Session struct {
	ID              uuid.UUID  `db:"id"`
	UserID          uuid.UUID  `db:"user_id"`
	StartedAt       time.Time  `db:"started_at"`
	EndedAt         *time.Time `db:"ended_at"`
	DurationSeconds *int64     `db:"duration_seconds"`
	IsActive        bool       `db:"is_active"`
}

// Repository provides database operations for users and sessions.
type Repository struct {
	pool *pgxpool.Pool
}

const pgUniqueViolation = "23505"

const sessionColumns = `id, user_id, started_at, ended_at, duration_seconds, is_active`

// New creates a new auth repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateUser persists a new user. A duplicate email returns Conflict.
func (r *Repository) CreateUser(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (id, email, password_hash, name, roles, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query, u.ID, u.Email, u.PasswordHash, u.Name, u.Roles, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperr.Conflict("email already registered")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT id, email, password_hash, name, roles, created_at
		FROM users WHERE lower(email) = lower($1)`

	var u User
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Roles, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &u, nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT id, email, password_hash, name, roles, created_at FROM users WHERE id = $1`

	var u User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Roles, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

// StartSession atomically replaces any active session for the user with a new
// one. The deactivation and the insert run in one transaction; the partial
// unique index on (user_id) WHERE is_active catches a concurrent start, which
// surfaces as Conflict so the caller can retry against the winner.
func (r *Repository) StartSession(ctx context.Context, userID uuid.UUID, now time.Time) (started *Session, ended *Session, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin session transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	endQuery := `
		UPDATE user_sessions
		SET is_active = false, ended_at = $2,
			duration_seconds = EXTRACT(EPOCH FROM ($2 - started_at))::bigint
		WHERE user_id = $1 AND is_active = true
		RETURNING ` + sessionColumns

	var prev Session
	err = tx.QueryRow(ctx, endQuery, userID, now).Scan(
		&prev.ID, &prev.UserID, &prev.StartedAt, &prev.EndedAt, &prev.DurationSeconds, &prev.IsActive,
	)
	switch {
	case err == nil:
		ended = &prev
	case errors.Is(err, pgx.ErrNoRows):
		// no prior active session
	default:
		return nil, nil, fmt.Errorf("failed to end prior session: %w", err)
	}

	next := Session{
		ID:        uuid.New(),
		UserID:    userID,
		StartedAt: now,
		IsActive:  true,
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO user_sessions (id, user_id, started_at, is_active) VALUES ($1, $2, $3, true)`,
		next.ID, next.UserID, next.StartedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, nil, apperr.Conflict("another session was started concurrently")
		}
		return nil, nil, fmt.Errorf("failed to start session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, nil, apperr.Conflict("another session was started concurrently")
		}
		return nil, nil, fmt.Errorf("failed to commit session transaction: %w", err)
	}

	return &next, ended, nil
}

// EndSession closes the user's active session, stamping end time and duration.
func (r *Repository) EndSession(ctx context.Context, userID uuid.UUID, now time.Time) (*Session, error) {
	query := `
		UPDATE user_sessions
		SET is_active = false, ended_at = $2,
			duration_seconds = EXTRACT(EPOCH FROM ($2 - started_at))::bigint
		WHERE user_id = $1 AND is_active = true
		RETURNING ` + sessionColumns

	var s Session
	err := r.pool.QueryRow(ctx, query, userID, now).Scan(
		&s.ID, &s.UserID, &s.StartedAt, &s.EndedAt, &s.DurationSeconds, &s.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("no active session")
		}
		return nil, fmt.Errorf("failed to end session: %w", err)
	}

	return &s, nil
}

// GetActiveSession returns the user's active session, or NotFound.
func (r *Repository) GetActiveSession(ctx context.Context, userID uuid.UUID) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM user_sessions WHERE user_id = $1 AND is_active = true`

	var s Session
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&s.ID, &s.UserID, &s.StartedAt, &s.EndedAt, &s.DurationSeconds, &s.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("no active session")
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}

	return &s, nil
}
