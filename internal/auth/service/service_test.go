package service

import (
	"context"
	"testing"
	"time"

	"leadcrm_backend/internal/auth/password"
	"leadcrm_backend/internal/auth/repository"
	"leadcrm_backend/internal/auth/transport"
	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/clock"
	"leadcrm_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

type fakeStore struct {
	users    map[uuid.UUID]*repository.User
	sessions map[uuid.UUID]*repository.Session
	// conflictsBeforeSuccess makes StartSession fail with Conflict that many
	// times, simulating lost races against concurrent sign-ins.
	conflictsBeforeSuccess int
	startCalls             int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[uuid.UUID]*repository.User),
		sessions: make(map[uuid.UUID]*repository.Session),
	}
}

func (f *fakeStore) CreateUser(_ context.Context, u *repository.User) error {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return apperr.Conflict("email already registered")
		}
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*repository.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (f *fakeStore) GetUserByID(_ context.Context, id uuid.UUID) (*repository.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) StartSession(_ context.Context, userID uuid.UUID, now time.Time) (*repository.Session, *repository.Session, error) {
	f.startCalls++
	if f.conflictsBeforeSuccess > 0 {
		f.conflictsBeforeSuccess--
		return nil, nil, apperr.Conflict("another session was started concurrently")
	}

	var ended *repository.Session
	for _, s := range f.sessions {
		if s.UserID == userID && s.IsActive {
			s.IsActive = false
			endedAt := now
			s.EndedAt = &endedAt
			duration := int64(now.Sub(s.StartedAt) / time.Second)
			s.DurationSeconds = &duration
			cp := *s
			ended = &cp
		}
	}

	next := &repository.Session{
		ID:        uuid.New(),
		UserID:    userID,
		StartedAt: now,
		IsActive:  true,
	}
	f.sessions[next.ID] = next
	cp := *next
	return &cp, ended, nil
}

func (f *fakeStore) EndSession(_ context.Context, userID uuid.UUID, now time.Time) (*repository.Session, error) {
	for _, s := range f.sessions {
		if s.UserID == userID && s.IsActive {
			s.IsActive = false
			endedAt := now
			s.EndedAt = &endedAt
			duration := int64(now.Sub(s.StartedAt) / time.Second)
			s.DurationSeconds = &duration
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("no active session")
}

func (f *fakeStore) GetActiveSession(_ context.Context, userID uuid.UUID) (*repository.Session, error) {
	for _, s := range f.sessions {
		if s.UserID == userID && s.IsActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("no active session")
}

var _ repository.Store = (*fakeStore)(nil)

type testConfig struct{}

func (testConfig) GetJWTAccessSecret() string       { return testSecret }
func (testConfig) GetAccessTokenTTL() time.Duration { return 12 * time.Hour }

type fixture struct {
	svc    *Service
	store  *fakeStore
	clk    *clock.Fake
	userID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newFakeStore()
	clk := clock.NewFake(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))

	hash, err := password.Hash("s3cret-password")
	if err != nil {
		t.Fatalf("failed to hash test password: %v", err)
	}
	userID := uuid.New()
	store.users[userID] = &repository.User{
		ID:           userID,
		Email:        "agent@example.com",
		PasswordHash: hash,
		Name:         "Test Agent",
		Roles:        []string{"agent"},
	}

	svc := New(store, testConfig{}, nil, clk, logger.New("test"))

	return &fixture{svc: svc, store: store, clk: clk, userID: userID}
}

func signIn(t *testing.T, fx *fixture) *transport.SignInResponse {
	t.Helper()
	resp, err := fx.svc.SignIn(context.Background(), transport.SignInRequest{
		Email:    "agent@example.com",
		Password: "s3cret-password",
	})
	if err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}
	return resp
}

func activeSessionCount(store *fakeStore, userID uuid.UUID) int {
	count := 0
	for _, s := range store.sessions {
		if s.UserID == userID && s.IsActive {
			count++
		}
	}
	return count
}

func TestSignInIssuesValidAccessToken(t *testing.T) {
	fx := newFixture(t)
	resp := signIn(t, fx)

	token, err := jwt.Parse(resp.AccessToken, func(t *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	}, jwt.WithTimeFunc(fx.clk.Now))
	if err != nil || !token.Valid {
		t.Fatalf("expected a valid token, got %v", err)
	}

	claims := token.Claims.(jwt.MapClaims)
	if claims["type"] != "access" {
		t.Fatalf("expected access token type, got %v", claims["type"])
	}
	if claims["sub"] != fx.userID.String() {
		t.Fatalf("expected sub=%s, got %v", fx.userID, claims["sub"])
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.SignIn(context.Background(), transport.SignInRequest{
		Email:    "agent@example.com",
		Password: "wrong",
	})
	if apperr.GetKind(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSignInRejectsUnknownEmailWithSameError(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.SignIn(context.Background(), transport.SignInRequest{
		Email:    "nobody@example.com",
		Password: "s3cret-password",
	})
	if apperr.GetKind(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
	if err.Error() != "invalid credentials" {
		t.Fatalf("unknown email must not be distinguishable, got %q", err.Error())
	}
}

func TestSecondSignInDisplacesFirstSession(t *testing.T) {
	fx := newFixture(t)

	first := signIn(t, fx)
	fx.clk.Advance(30 * time.Minute)
	second := signIn(t, fx)

	if second.Session.ID == first.Session.ID {
		t.Fatal("expected a fresh session on re-sign-in")
	}
	if activeSessionCount(fx.store, fx.userID) != 1 {
		t.Fatalf("expected exactly one active session, got %d", activeSessionCount(fx.store, fx.userID))
	}

	displaced := fx.store.sessions[first.Session.ID]
	if displaced.IsActive {
		t.Fatal("first session must be deactivated")
	}
	if displaced.DurationSeconds == nil || *displaced.DurationSeconds != 1800 {
		t.Fatalf("displaced session must carry computed duration, got %v", displaced.DurationSeconds)
	}
}

func TestStartSessionRetriesOnConcurrentConflict(t *testing.T) {
	fx := newFixture(t)
	fx.store.conflictsBeforeSuccess = 2

	signIn(t, fx)

	if fx.store.startCalls != 3 {
		t.Fatalf("expected 3 start attempts, got %d", fx.store.startCalls)
	}
	if activeSessionCount(fx.store, fx.userID) != 1 {
		t.Fatal("expected exactly one active session after retries")
	}
}

func TestStartSessionGivesUpAfterRepeatedConflicts(t *testing.T) {
	fx := newFixture(t)
	fx.store.conflictsBeforeSuccess = 10

	_, err := fx.svc.SignIn(context.Background(), transport.SignInRequest{
		Email:    "agent@example.com",
		Password: "s3cret-password",
	})
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict after exhausted retries, got %v", err)
	}
}

func TestSignOutStampsDuration(t *testing.T) {
	fx := newFixture(t)
	signIn(t, fx)

	fx.clk.Advance(45 * time.Minute)
	session, err := fx.svc.SignOut(context.Background(), fx.userID)
	if err != nil {
		t.Fatalf("sign-out failed: %v", err)
	}

	if session.IsActive {
		t.Fatal("ended session must not be active")
	}
	if session.EndedAt == nil {
		t.Fatal("ended session must carry an end time")
	}
	if session.DurationSeconds != 2700 {
		t.Fatalf("expected 2700s duration, got %d", session.DurationSeconds)
	}
}

func TestSignOutWithoutActiveSessionIsNotFound(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.SignOut(context.Background(), fx.userID)
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestActiveSessionComputesRunningDuration(t *testing.T) {
	fx := newFixture(t)
	signIn(t, fx)

	fx.clk.Advance(10 * time.Minute)
	session, err := fx.svc.ActiveSession(context.Background(), fx.userID)
	if err != nil {
		t.Fatalf("active session lookup failed: %v", err)
	}

	if !session.IsActive {
		t.Fatal("expected an active session")
	}
	if session.EndedAt != nil {
		t.Fatal("active session has no end time")
	}
	if session.DurationSeconds != 600 {
		t.Fatalf("expected on-the-fly duration of 600s, got %d", session.DurationSeconds)
	}
}
