package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgAuth "github.com/jpcontreras/vendia-backend/pkg/auth"
	"github.com/jpcontreras/vendia-backend/pkg/auth/session"
	"github.com/jpcontreras/vendia-backend/pkg/config"
	"github.com/jpcontreras/vendia-backend/pkg/db/models"
	"github.com/jpcontreras/vendia-backend/pkg/enums"
	pkgerrors "github.com/jpcontreras/vendia-backend/pkg/errors"
	"github.com/jpcontreras/vendia-backend/pkg/outbox"
	"github.com/jpcontreras/vendia-backend/pkg/security"
)

var testJWTConfig = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "vendia-test",
	ExpirationMinutes: 15,
}

type stubUserRepo struct {
	usersByEmail map[string]*models.User
	usersByID    map[uuid.UUID]*models.User
	lastLogin    *time.Time
}

func newStubUserRepo(list ...*models.User) *stubUserRepo {
	repo := &stubUserRepo{
		usersByEmail: map[string]*models.User{},
		usersByID:    map[uuid.UUID]*models.User{},
	}
	for _, u := range list {
		repo.usersByEmail[u.Email] = u
		repo.usersByID[u.ID] = u
	}
	return repo
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.usersByEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := s.usersByID[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.lastLogin = &at
	return nil
}

type stubSessionManager struct {
	sessions map[string]string
	revoked  []string
}

func newStubSessionManager() *stubSessionManager {
	return &stubSessionManager{sessions: map[string]string{}}
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	token := "refresh-" + accessID
	s.sessions[accessID] = token
	return token, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	stored, ok := s.sessions[oldAccessID]
	if !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.sessions, oldAccessID)
	newAccessID := session.NewAccessID()
	token := "refresh-" + newAccessID
	s.sessions[newAccessID] = token
	return newAccessID, token, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	delete(s.sessions, accessID)
	return nil
}

func testUser(t *testing.T, email, password string, role enums.Role, active bool) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Ana",
		LastName:     "Prueba",
		Role:         role,
		IsActive:     active,
	}
}

func TestLoginReturnsTokenPair(t *testing.T) {
	user := testUser(t, "ana@example.com", "super-secret", enums.RoleClient, true)
	repo := newStubUserRepo(user)
	sessions := newStubSessionManager()

	svc, err := NewService(ServiceParams{UserRepo: repo, SessionManager: sessions, JWTConfig: testJWTConfig})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "Ana@Example.com ", Password: "super-secret"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("missing tokens in response")
	}
	if repo.lastLogin == nil {
		t.Fatalf("last login must be recorded")
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != enums.RoleClient {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if _, ok := sessions.sessions[claims.ID]; !ok {
		t.Fatalf("refresh session must be stored under jti")
	}
}

func TestLoginWrongPasswordUnauthorized(t *testing.T) {
	user := testUser(t, "ana@example.com", "super-secret", enums.RoleClient, true)
	svc, _ := NewService(ServiceParams{UserRepo: newStubUserRepo(user), SessionManager: newStubSessionManager(), JWTConfig: testJWTConfig})

	_, err := svc.Login(context.Background(), LoginRequest{Email: "ana@example.com", Password: "wrong"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLoginInactiveUserUnauthorized(t *testing.T) {
	user := testUser(t, "ana@example.com", "super-secret", enums.RoleClient, false)
	svc, _ := NewService(ServiceParams{UserRepo: newStubUserRepo(user), SessionManager: newStubSessionManager(), JWTConfig: testJWTConfig})

	_, err := svc.Login(context.Background(), LoginRequest{Email: "ana@example.com", Password: "super-secret"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	user := testUser(t, "ana@example.com", "super-secret", enums.RoleClient, true)
	repo := newStubUserRepo(user)
	sessions := newStubSessionManager()
	svc, _ := NewService(ServiceParams{UserRepo: repo, SessionManager: sessions, JWTConfig: testJWTConfig})

	login, err := svc.Login(context.Background(), LoginRequest{Email: "ana@example.com", Password: "super-secret"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Fatalf("refresh token must rotate")
	}

	// The old pair is dead after rotation.
	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("reused refresh token must fail, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	sessions := newStubSessionManager()
	svc, _ := NewService(ServiceParams{UserRepo: newStubUserRepo(), SessionManager: sessions, JWTConfig: testJWTConfig})

	if err := svc.Logout(context.Background(), "access-id-1"); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "access-id-1" {
		t.Fatalf("unexpected revocations %v", sessions.revoked)
	}
}

type stubAuthTxRunner struct{}

func (stubAuthTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubAuthOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubAuthOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func TestRevokeSessionsRequiresAdmin(t *testing.T) {
	user := testUser(t, "ana@example.com", "super-secret", enums.RoleClient, true)
	revoker, err := NewSessionRevoker(newStubUserRepo(user), stubAuthTxRunner{}, &stubAuthOutbox{})
	if err != nil {
		t.Fatalf("revoker constructor failed: %v", err)
	}

	err = revoker.Revoke(context.Background(), RevokeSessionsInput{
		TargetUserID: user.ID,
		Actor:        Actor{UserID: uuid.New(), Role: enums.RoleClient},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRevokeSessionsEmitsEvent(t *testing.T) {
	user := testUser(t, "ana@example.com", "super-secret", enums.RoleClient, true)
	publisher := &stubAuthOutbox{}
	revoker, _ := NewSessionRevoker(newStubUserRepo(user), stubAuthTxRunner{}, publisher)

	adminID := uuid.New()
	err := revoker.Revoke(context.Background(), RevokeSessionsInput{
		TargetUserID: user.ID,
		Actor:        Actor{UserID: adminID, Role: enums.RoleAdmin},
	})
	if err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.EventType != enums.EventSessionRevoked || event.AggregateID != user.ID {
		t.Fatalf("unexpected event %+v", event)
	}
}
