package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/enstockapp/mono-stock/internal/platform/httpx"
	"github.com/enstockapp/mono-stock/internal/shared"
)

// RepositoryPort abstracts user persistence for the service.
type RepositoryPort interface {
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, u User) (User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

// PermissionSource resolves the permission names a user holds.
type PermissionSource interface {
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

// SessionStore abstracts the Redis-backed session manager.
type SessionStore interface {
	Create(ctx context.Context, data shared.SessionData) (string, error)
	Delete(ctx context.Context, token string) error
}

// Service authenticates users and manages their sessions.
type Service struct {
	repo     RepositoryPort
	perms    PermissionSource
	sessions SessionStore
}

// NewService builds Service.
func NewService(repo RepositoryPort, perms PermissionSource, sessions SessionStore) *Service {
	return &Service{repo: repo, perms: perms, sessions: sessions}
}

// Login verifies the credentials, resolves the user's permissions and opens a
// session. Unknown emails and wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (string, User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", User{}, fmt.Errorf("%w: %s", httpx.ErrUnauthorized, ErrInvalidCredentials)
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return "", User{}, fmt.Errorf("%w: %s", httpx.ErrUnauthorized, ErrInvalidCredentials)
		}
		return "", User{}, err
	}
	if user.Status != UserActive {
		return "", User{}, fmt.Errorf("%w: account disabled", httpx.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", User{}, fmt.Errorf("%w: %s", httpx.ErrUnauthorized, ErrInvalidCredentials)
	}

	permissions, err := s.perms.EffectivePermissions(ctx, user.ID)
	if err != nil {
		return "", User{}, fmt.Errorf("auth: resolve permissions: %w", err)
	}

	token, err := s.sessions.Create(ctx, shared.SessionData{
		UserID:      user.ID,
		ClientID:    user.ClientID.String(),
		Email:       user.Email,
		Permissions: permissions,
	})
	if err != nil {
		return "", User{}, fmt.Errorf("auth: open session: %w", err)
	}
	return token, user, nil
}

// Logout drops the session behind the token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Register creates a user under the given tenant with a bcrypt-hashed
// password.
func (s *Service) Register(ctx context.Context, clientID uuid.UUID, email, name, password string) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return User{}, fmt.Errorf("%w: email is required", httpx.ErrValidation)
	}
	if len(password) < 8 {
		return User{}, fmt.Errorf("%w: password must be at least 8 characters", httpx.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("auth: hash password: %w", err)
	}
	return s.repo.Create(ctx, User{
		ClientID:     clientID,
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		Status:       UserActive,
	})
}

// ChangePassword re-verifies the current password before storing a new hash.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return fmt.Errorf("%w: %s", httpx.ErrUnauthorized, ErrInvalidCredentials)
	}
	if len(next) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", httpx.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, userID, string(hash))
}
