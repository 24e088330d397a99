// Package service implements authentication and the session guard: signing in
// issues a JWT and starts a work session, of which at most one is active per
// user at any time.
package service

import (
	"context"
	"time"

	"leadcrm_backend/internal/auth/password"
	"leadcrm_backend/internal/auth/repository"
	"leadcrm_backend/internal/auth/transport"
	"leadcrm_backend/internal/events"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/clock"
	"leadcrm_backend/platform/config"
	"leadcrm_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// startSessionAttempts bounds retries when a concurrent sign-in wins the
// active-session uniqueness race.
const startSessionAttempts = 3

// Service provides authentication business logic.
type Service struct {
	repo     repository.Store
	cfg      config.AuthServiceConfig
	eventBus events.Bus
	clk      clock.Clock
	log      *logger.Logger
}

// New creates a new auth service.
func New(repo repository.Store, cfg config.AuthServiceConfig, eventBus events.Bus, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		cfg:      cfg,
		eventBus: eventBus,
		clk:      clk,
		log:      log,
	}
}

// SignIn verifies credentials, issues an access token and starts a work
// session, displacing any session still active from a stale client.
func (s *Service) SignIn(ctx context.Context, req transport.SignInRequest) (*transport.SignInResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			s.log.AuthEvent("sign_in", req.Email, false, "unknown email")
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, err
	}

	if !password.Verify(user.PasswordHash, req.Password) {
		s.log.AuthEvent("sign_in", req.Email, false, "wrong password")
		return nil, apperr.Unauthorized("invalid credentials")
	}

	session, err := s.startSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	token, expiresIn, err := s.issueAccessToken(user)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to issue token", err)
	}

	s.log.AuthEvent("sign_in", req.Email, true, "")

	return &transport.SignInResponse{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		User:        toUserResponse(user),
		Session:     s.toSessionResponse(session),
	}, nil
}

// startSession starts a new session, retrying when a concurrent start from
// another client wins the unique-active-session race. Each retry re-runs the
// deactivate+insert transaction, so the invariant holds regardless of
// interleaving.
func (s *Service) startSession(ctx context.Context, userID uuid.UUID) (*repository.Session, error) {
	var lastErr error
	for attempt := 0; attempt < startSessionAttempts; attempt++ {
		started, ended, err := s.repo.StartSession(ctx, userID, s.clk.Now())
		if err == nil {
			s.publishSessionChange(ctx, started, ended)
			return started, nil
		}
		if !apperr.Is(err, apperr.KindConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *Service) publishSessionChange(ctx context.Context, started, ended *repository.Session) {
	if s.eventBus == nil {
		return
	}
	if ended != nil {
		var duration int64
		if ended.DurationSeconds != nil {
			duration = *ended.DurationSeconds
		}
		s.eventBus.Publish(ctx, events.SessionEnded{
			BaseEvent:       events.NewBaseEvent(),
			SessionID:       ended.ID,
			UserID:          ended.UserID,
			DurationSeconds: duration,
		})
	}
	s.eventBus.Publish(ctx, events.SessionStarted{
		BaseEvent: events.NewBaseEvent(),
		SessionID: started.ID,
		UserID:    started.UserID,
	})
}

// SignOut ends the caller's active session.
func (s *Service) SignOut(ctx context.Context, userID uuid.UUID) (*transport.SessionResponse, error) {
	session, err := s.repo.EndSession(ctx, userID, s.clk.Now())
	if err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		var duration int64
		if session.DurationSeconds != nil {
			duration = *session.DurationSeconds
		}
		s.eventBus.Publish(ctx, events.SessionEnded{
			BaseEvent:       events.NewBaseEvent(),
			SessionID:       session.ID,
			UserID:          session.UserID,
			DurationSeconds: duration,
		})
	}

	resp := s.toSessionResponse(session)
	return &resp, nil
}

// ActiveSession returns the caller's active session with its running duration.
func (s *Service) ActiveSession(ctx context.Context, userID uuid.UUID) (*transport.SessionResponse, error) {
	session, err := s.repo.GetActiveSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := s.toSessionResponse(session)
	return &resp, nil
}

// CreateUser creates a new user account; admin-only at the route layer.
func (s *Service) CreateUser(ctx context.Context, req transport.CreateUserRequest) (*transport.UserResponse, error) {
	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	roles := req.Roles
	if len(roles) == 0 {
		roles = []string{"agent"}
	}

	user := &repository.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Roles:        roles,
		CreatedAt:    s.clk.Now(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// GetUserEmail resolves a user's email address for notification delivery.
func (s *Service) GetUserEmail(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Email, nil
}

func (s *Service) issueAccessToken(user *repository.User) (string, int64, error) {
	now := s.clk.Now()
	ttl := s.cfg.GetAccessTokenTTL()

	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"roles": user.Roles,
		"type":  "access",
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
	if err != nil {
		return "", 0, err
	}

	return signed, int64(ttl / time.Second), nil
}

// toSessionResponse computes an active session's duration on the fly; an
// active row has no stored end time.
func (s *Service) toSessionResponse(session *repository.Session) transport.SessionResponse {
	resp := transport.SessionResponse{
		ID:        session.ID,
		UserID:    session.UserID,
		StartedAt: session.StartedAt,
		EndedAt:   session.EndedAt,
		IsActive:  session.IsActive,
	}

	if session.IsActive {
		resp.DurationSeconds = int64(s.clk.Now().Sub(session.StartedAt) / time.Second)
	} else if session.DurationSeconds != nil {
		resp.DurationSeconds = *session.DurationSeconds
	}

	return resp
}

func toUserResponse(u *repository.User) transport.UserResponse {
	return transport.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Roles:     u.Roles,
		CreatedAt: u.CreatedAt,
	}
}
