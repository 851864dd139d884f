package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/stockpoint-erp/stockpoint-erp/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	sessions *SessionManager
}

// NewService constructs a new Service.
func NewService(repo Repository, sessions *SessionManager) *Service {
	return &Service{repo: repo, sessions: sessions}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues a session token. The session is also written
// to postgres for auditing; that write is best-effort.
func (s *Service) Login(ctx context.Context, email, password, ip, ua string) (*User, string, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, "", err
	}
	token, err := s.sessions.Create(ctx, user)
	if err != nil {
		return nil, "", err
	}
	expiresAt := time.Now().Add(s.sessions.TTL())
	_ = s.repo.CreateSession(ctx, token, user.ID, expiresAt, ip, ua)
	return user, token, nil
}

// Logout revokes the session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return err
	}
	return s.repo.DeleteSession(ctx, token)
}
