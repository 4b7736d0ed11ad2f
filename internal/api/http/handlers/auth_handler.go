package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/authgate/jwt-auth/internal/api/dto"
	"github.com/authgate/jwt-auth/internal/auth"
	"github.com/authgate/jwt-auth/internal/domain"
	"github.com/authgate/jwt-auth/internal/repository"
	"github.com/authgate/jwt-auth/internal/service"
	apperrors "github.com/authgate/jwt-auth/pkg/util/errorutil"
)

// AuthHandler exposes the authentication endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	identity, issued, err := h.auth.Register(c.UserContext(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingCredentials), errors.Is(err, auth.ErrPasswordTooLong):
			return apperrors.NewValidationError(err.Error(), nil)
		case errors.Is(err, repository.ErrUsernameTaken):
			return apperrors.NewConflict(err.Error(), map[string]any{"username": req.Username})
		}
		return apperrors.MapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"user": userResponse(identity),
			"auth": h.authResponse(issued),
		},
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	identity, issued, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingCredentials):
			return apperrors.NewValidationError(err.Error(), nil)
		case errors.Is(err, service.ErrInvalidCredentials):
			return apperrors.NewUnauthorized(err.Error())
		}
		return apperrors.MapError(err)
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": userResponse(identity),
			"auth": h.authResponse(issued),
		},
	})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("invalid token")
	}
	return c.JSON(fiber.Map{"data": userResponse(principal.Identity)})
}

// Introspect handles POST /auth/token/introspect.
func (h *AuthHandler) Introspect(c *fiber.Ctx) error {
	var req dto.IntrospectRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	status := h.auth.Introspect(req.Token)
	return c.JSON(fiber.Map{
		"data": dto.IntrospectResponse{
			Active:  status.Active,
			Valid:   status.Valid,
			Expired: status.Expired,
			Subject: status.Subject,
		},
	})
}

func (h *AuthHandler) authResponse(issued domain.IssuedToken) dto.AuthResponse {
	return dto.AuthResponse{
		Token:     issued.Token,
		TokenType: "Bearer",
		ExpiresAt: issued.ExpiresAt,
		ExpiresIn: expiresInSeconds(h.auth.TokenManager().Expiration()),
	}
}

// expiresInSeconds rounds up so a positive lifetime never reports zero.
func expiresInSeconds(ttl time.Duration) int64 {
	return int64((ttl + time.Second - 1) / time.Second)
}

func userResponse(identity domain.Identity) dto.UserResponse {
	return dto.UserResponse{
		ID:       identity.GetID(),
		Username: identity.GetUsername(),
		Active:   identity.IsActive(),
	}
}
