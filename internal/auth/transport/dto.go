package transport

import (
	"time"

	"github.com/google/uuid"
)

// SignInRequest is the request body for signing in.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateUserRequest is the admin request body for creating a user.
type CreateUserRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=8"`
	Name     string   `json:"name" validate:"required,min=1,max=200"`
	Roles    []string `json:"roles" validate:"omitempty,dive,oneof=admin agent"`
}

// UserResponse is the response body for a user.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionResponse is the response body for a work session. For an active
// session DurationSeconds is computed from the current time, since no end
// time exists yet.
type SessionResponse struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"userId"`
	StartedAt       time.Time  `json:"startedAt"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	DurationSeconds int64      `json:"durationSeconds"`
	IsActive        bool       `json:"isActive"`
}

// SignInResponse is the response body for a successful sign-in.
type SignInResponse struct {
	AccessToken string          `json:"accessToken"`
	ExpiresIn   int64           `json:"expiresIn"`
	User        UserResponse    `json:"user"`
	Session     SessionResponse `json:"session"`
}
