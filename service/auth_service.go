package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"campuswatch/core"
	"campuswatch/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned on any login failure. Unknown email
// and wrong password are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService implements account registration, anonymous onboarding, and
// credential verification.
type AuthService struct {
	provider storage.Provider
	logger   *zap.SugaredLogger
}

// NewAuthService creates a new auth service.
func NewAuthService(provider storage.Provider, logger *zap.SugaredLogger) *AuthService {
	if provider == nil {
		panic("provider is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &AuthService{provider: provider, logger: logger}
}

// Register creates a registered account with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, email, password, campusID string) (*core.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, core.NewValidationError("email", "email is required")
	}
	if len(password) < 8 {
		return nil, core.NewValidationError("password", "password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &core.User{
		AnonymousID: uuid.NewString(),
		Email:       email,
		Password:    string(hash),
		Role:        core.RoleUser,
		CampusID:    campusID,
		Active:      true,
	}
	if err := s.provider.Backend(ctx).CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Infow("User registered", "user_id", user.ID)
	return user, nil
}

// RegisterAnonymous creates an account with no email or password. Anonymous
// reporters are full accounts with the user role; only their identity
// handling differs.
func (s *AuthService) RegisterAnonymous(ctx context.Context) (*core.User, error) {
	user := &core.User{
		AnonymousID: uuid.NewString(),
		Role:        core.RoleUser,
		IsAnonymous: true,
		Active:      true,
	}
	if err := s.provider.Backend(ctx).CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and refreshes the account's last-active time.
func (s *AuthService) Login(ctx context.Context, email, password string) (*core.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	store := s.provider.Backend(ctx)
	user, err := store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Active {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	user.LastActive = time.Now().UTC()
	if err := store.UpdateUser(ctx, user); err != nil {
		// Stale last-active is not worth failing a valid login over.
		s.logger.Warnw("Failed to update last active", "user_id", user.ID, "error", err)
	}

	return user, nil
}

// GetUser returns the account behind an identity.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*core.User, error) {
	return s.provider.Backend(ctx).GetUser(ctx, userID)
}
