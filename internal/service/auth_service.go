package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reparafacil/repair-service/internal/auth"
	"github.com/reparafacil/repair-service/internal/config"
	"github.com/reparafacil/repair-service/internal/domain"
	"github.com/reparafacil/repair-service/internal/repository"
	"github.com/reparafacil/repair-service/pkg/util/errorutil"
)

const userResource = "user"

// AuthService coordinates registration and login flows.
type AuthService struct {
	users       repository.UserRepository
	tokenMgr    *auth.TokenManager
	logger      *zap.Logger
	now         func() time.Time
	bcryptCost  int
	maxAttempts int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Logger   *zap.Logger
	Clock    func() time.Time
}

// RegisterInput carries a self-registration request.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// Session is the result of a successful register or login.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	maxAttempts := cfg.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &AuthService{
		users:       deps.UserRepo,
		tokenMgr:    auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		logger:      logger,
		now:         clock,
		bcryptCost:  cfg.BcryptCost,
		maxAttempts: maxAttempts,
	}
}

// Register creates a CLIENT account and signs it in.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	user, err := s.createUser(ctx, input, domain.UserRoleClient)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// CreateUser creates an account with an explicit role.
func (s *AuthService) CreateUser(ctx context.Context, input RegisterInput, role domain.UserRole) (*domain.User, error) {
	return s.createUser(ctx, input, role)
}

func (s *AuthService) createUser(ctx context.Context, input RegisterInput, role domain.UserRole) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	email := normalizeEmail(input.Email)
	if err := s.ensureUnique(ctx, username, email, ""); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, errorutil.NewInternalError(err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        trimmedPtr(input.Phone),
		Role:         role,
		Active:       true,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, errorutil.NewStorageError(err)
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

// Login authenticates by username and locks the account after repeated failures.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorutil.NewUnauthorized("invalid credentials")
		}
		return nil, errorutil.NewStorageError(err)
	}
	if !user.Active {
		return nil, errorutil.NewForbidden("account is inactive")
	}
	if user.Locked {
		return nil, errorutil.NewAccountLocked("account is locked")
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		user.FailedLogins++
		if user.FailedLogins >= s.maxAttempts {
			user.Locked = true
		}
		if err := s.users.Update(ctx, user); err != nil {
			return nil, errorutil.NewStorageError(err)
		}
		if user.Locked {
			s.logger.Warn("account locked", zap.String("user_id", user.ID), zap.Int("failed_logins", user.FailedLogins))
			return nil, errorutil.NewAccountLocked("account is locked")
		}
		return nil, errorutil.NewUnauthorized("invalid credentials")
	}

	now := s.now()
	user.FailedLogins = 0
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, errorutil.NewStorageError(err)
	}
	return s.issue(user)
}

// Unlock clears the lock and failed login counter.
func (s *AuthService) Unlock(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, storeError(err, userResource, username)
	}
	user.Locked = false
	user.FailedLogins = 0
	if err := s.users.Update(ctx, user); err != nil {
		return nil, storeError(err, userResource, user.ID)
	}
	s.logger.Info("account unlocked", zap.String("user_id", user.ID))
	return user, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AuthService) ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return storeError(err, userResource, username)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return errorutil.NewUnauthorized("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return errorutil.NewInternalError(err)
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return storeError(err, userResource, user.ID)
	}
	return nil
}

// UsernameExists reports whether the username is taken.
func (s *AuthService) UsernameExists(ctx context.Context, username string) (bool, error) {
	return exists(s.users.GetByUsername(ctx, strings.TrimSpace(username)))
}

// EmailExists reports whether the email is taken.
func (s *AuthService) EmailExists(ctx context.Context, email string) (bool, error) {
	return exists(s.users.GetByEmail(ctx, normalizeEmail(email)))
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// HashPassword hashes with the configured cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	return auth.HashPassword(password, s.bcryptCost)
}

func (s *AuthService) issue(user *domain.User) (*Session, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	return &Session{User: user, Token: token, ExpiresAt: exp}, nil
}

// ensureUnique checks username and email, ignoring the account being edited.
func (s *AuthService) ensureUnique(ctx context.Context, username, email, selfID string) error {
	if username != "" {
		existing, err := s.users.GetByUsername(ctx, username)
		if err == nil && existing.ID != selfID {
			return errorutil.NewConflict("username already registered", map[string]any{"username": username})
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return errorutil.NewStorageError(err)
		}
	}
	if email != "" {
		existing, err := s.users.GetByEmail(ctx, email)
		if err == nil && existing.ID != selfID {
			return errorutil.NewConflict("email already registered", map[string]any{"email": email})
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return errorutil.NewStorageError(err)
		}
	}
	return nil
}

func exists(_ *domain.User, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return false, errorutil.NewStorageError(err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
