package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/authgate/jwt-auth/internal/auth"
	"github.com/authgate/jwt-auth/internal/config"
	"github.com/authgate/jwt-auth/internal/domain"
	"github.com/authgate/jwt-auth/internal/events"
	"github.com/authgate/jwt-auth/internal/repository"
)

var (
	// ErrInvalidCredentials covers unknown users, inactive users and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated is returned for any token that does not grant access.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrMissingCredentials is returned when username or password is empty.
	ErrMissingCredentials = errors.New("username and password required")
)

// AuthService coordinates registration, login and token authentication flows.
type AuthService struct {
	users      repository.UserStore
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	dummyHash  string
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Users      repository.UserStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service. The token manager is created eagerly so an
// unusable secret fails startup.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies, opts ...auth.TokenOption) (*AuthService, error) {
	tokenMgr, err := auth.NewTokenManager(cfg.TokenConfig(), opts...)
	if err != nil {
		return nil, err
	}

	// Compared against when the username is unknown so both paths pay for a bcrypt check.
	dummyHash, err := auth.HashPassword(uuid.NewString(), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthService{
		users:      deps.Users,
		tokenMgr:   tokenMgr,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: cfg.BcryptCost,
		dummyHash:  dummyHash,
	}, nil
}

// Register creates a new active user and returns a token for it.
func (s *AuthService) Register(ctx context.Context, username, password string) (domain.Identity, domain.IssuedToken, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.IssuedToken{}, ErrMissingCredentials
	}

	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, domain.IssuedToken{}, err
	}
	if exists {
		return nil, domain.IssuedToken{}, repository.ErrUsernameTaken
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, domain.IssuedToken{}, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, domain.IssuedToken{}, err
	}

	issued, err := s.issue(user.Username)
	if err != nil {
		return nil, domain.IssuedToken{}, err
	}
	s.publish(ctx, events.EventUserRegistered, user.Username, "")
	return user, issued, nil
}

// Login authenticates a user by username and password.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.Identity, domain.IssuedToken, error) {
	if username == "" || password == "" {
		return nil, domain.IssuedToken{}, ErrMissingCredentials
	}

	identity, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, domain.ErrIdentityNotFound) {
			return nil, domain.IssuedToken{}, err
		}
		_ = auth.ComparePassword(s.dummyHash, password)
		s.publish(ctx, events.EventLoginFailed, username, "unknown user")
		return nil, domain.IssuedToken{}, ErrInvalidCredentials
	}

	if err := auth.ComparePassword(identity.GetPassword(), password); err != nil {
		s.publish(ctx, events.EventLoginFailed, username, "password mismatch")
		return nil, domain.IssuedToken{}, ErrInvalidCredentials
	}
	if !identity.IsActive() {
		s.publish(ctx, events.EventLoginFailed, username, "inactive user")
		return nil, domain.IssuedToken{}, ErrInvalidCredentials
	}

	issued, err := s.issue(identity.GetUsername())
	if err != nil {
		return nil, domain.IssuedToken{}, err
	}
	s.publish(ctx, events.EventLoginSucceeded, identity.GetUsername(), "")
	return identity, issued, nil
}

// Authenticate resolves the active identity behind a bearer token.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	if !s.tokenMgr.Validate(token) {
		s.publish(ctx, events.EventTokenRejected, "", "invalid or expired")
		return nil, ErrUnauthenticated
	}

	username, err := s.tokenMgr.ExtractSubject(token)
	if err != nil {
		s.publish(ctx, events.EventTokenRejected, "", err.Error())
		return nil, ErrUnauthenticated
	}

	identity, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			s.publish(ctx, events.EventTokenRejected, username, "unknown subject")
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if !identity.IsActive() {
		s.publish(ctx, events.EventTokenRejected, username, "inactive subject")
		return nil, ErrUnauthenticated
	}
	return identity, nil
}

// Introspect reports the individual checks for a token, for diagnostics.
func (s *AuthService) Introspect(token string) domain.TokenStatus {
	status := domain.TokenStatus{
		Valid:   s.tokenMgr.IsValid(token),
		Expired: s.tokenMgr.IsExpired(token),
	}
	status.Active = status.Valid && !status.Expired
	if status.Valid {
		if subject, err := s.tokenMgr.ExtractSubject(token); err == nil {
			status.Subject = subject
		}
	}
	return status
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(username string) (domain.IssuedToken, error) {
	token, expiresAt, err := s.tokenMgr.IssueWithExpiry(username)
	if err != nil {
		return domain.IssuedToken{}, err
	}
	return domain.IssuedToken{Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, username, reason string) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, events.NewEvent(eventType, username, reason)); err != nil {
		s.logger.Warn("publish auth event", zap.String("type", string(eventType)), zap.Error(err))
	}
}
