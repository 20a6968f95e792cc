package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// ErrInvalidCredentials is the single answer to a failed login, whichever
// half of the pair was wrong.
var ErrInvalidCredentials = apperrors.NewUnauthorized("Invalid email or password")

// AuthService coordinates registration, login and account administration.
type AuthService struct {
	users     repository.UserRepository
	tokenMgr  *auth.TokenManager
	revoked   auth.RevocationStore
	passwords *auth.PasswordHasher
	logger    *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	TokenManager *auth.TokenManager
	Revocations  auth.RevocationStore
	Logger       *zap.Logger
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	AccessToken string
	TokenType   string
	Role        domain.Role
	Name        string
	RedirectURL string
	ExpiresAt   time.Time
}

// AgentUpdate carries optional agent profile changes.
type AgentUpdate struct {
	Name  *string
	Email *string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	tokens := deps.TokenManager
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes)
	}
	revoked := deps.Revocations
	if revoked == nil {
		revoked = auth.NopRevocationStore{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:     deps.UserRepo,
		tokenMgr:  tokens,
		revoked:   revoked,
		passwords: auth.NewPasswordHasher(cfg.BcryptCost),
		logger:    logger,
	}
}

// Register creates a customer or agent account. Admins exist only through
// EnsureAdmin.
func (s *AuthService) Register(ctx context.Context, role domain.Role, name, email, password string) (*domain.User, error) {
	if role != domain.RoleCustomer && role != domain.RoleAgent {
		return nil, apperrors.NewValidationError("role must be customer or agent", map[string]any{"role": role})
	}
	name = strings.TrimSpace(name)
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if err := auth.CheckPasswordPolicy(password); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"field": "password"})
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("Email already registered", map[string]any{"email": email})
		}
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInternalError(err)
		}
		_ = s.passwords.Compare("", password)
		return nil, ErrInvalidCredentials
	}
	if err := s.passwords.Compare(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("stored password hash unreadable", zap.Int64("user_id", user.ID), zap.Error(err))
		}
		return nil, ErrInvalidCredentials
	}

	raw, token, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{
		AccessToken: raw,
		TokenType:   "bearer",
		Role:        user.Role,
		Name:        user.Name,
		RedirectURL: "/dashboard/" + string(user.Role),
		ExpiresAt:   token.ExpiresAt,
	}, nil
}

// Logout revokes a token id until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	if err := s.revoked.Revoke(ctx, tokenID, expiresAt); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// ListUsers returns all users of a role.
func (s *AuthService) ListUsers(ctx context.Context, role domain.Role) ([]domain.User, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	users, err := s.users.ListByRole(ctx, role)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return users, nil
}

// ListAgents returns all agents.
func (s *AuthService) ListAgents(ctx context.Context) ([]domain.User, error) {
	return s.ListUsers(ctx, domain.RoleAgent)
}

// DeleteAgent removes an agent account.
func (s *AuthService) DeleteAgent(ctx context.Context, id int64) error {
	if _, err := s.agent(ctx, id); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return agentNotFound(id)
		}
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("agent deleted", zap.Int64("user_id", id))
	return nil
}

// UpdateAgent changes an agent's name or email. The role never changes.
func (s *AuthService) UpdateAgent(ctx context.Context, id int64, update AgentUpdate) (*domain.User, error) {
	user, err := s.agent(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
		}
		user.Name = name
	}
	if update.Email != nil {
		email, err := normalizeEmail(*update.Email)
		if err != nil {
			return nil, err
		}
		user.Email = email
	}
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("Email already registered", map[string]any{"email": user.Email})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap admin if no account uses the email yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) (*domain.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if existing.Role != domain.RoleAdmin {
			s.logger.Warn("bootstrap admin email belongs to another role", zap.String("email", email))
		}
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}
	admin := &domain.User{Name: strings.TrimSpace(name), Email: email, PasswordHash: hash, Role: domain.RoleAdmin}
	if err := s.users.Create(ctx, admin); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("bootstrap admin created", zap.String("email", email))
	return admin, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) agent(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, agentNotFound(id)
		}
		return nil, apperrors.NewInternalError(err)
	}
	if user.Role != domain.RoleAgent {
		return nil, agentNotFound(id)
	}
	return user, nil
}

func agentNotFound(id int64) error {
	return apperrors.NewNotFound("Agent", map[string]any{"id": id})
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperrors.NewValidationError("email is required", map[string]any{"field": "email"})
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperrors.NewValidationError("email is invalid", map[string]any{"field": "email"})
	}
	return email, nil
}
