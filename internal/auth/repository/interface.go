package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the auth persistence contract consumed by the service layer.
// Implementations must guarantee at most one active session per user even
// under concurrent StartSession calls.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	// StartSession replaces any active session with a new one, returning the
	// new session and the replaced one (nil if none). A concurrent start that
	// loses to the active-session uniqueness constraint returns Conflict.
	StartSession(ctx context.Context, userID uuid.UUID, now time.Time) (started *Session, ended *Session, err error)
	EndSession(ctx context.Context, userID uuid.UUID, now time.Time) (*Session, error)
	GetActiveSession(ctx context.Context, userID uuid.UUID) (*Session, error)
}

var _ Store = (*Repository)(nil)
