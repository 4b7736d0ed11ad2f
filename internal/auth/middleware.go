package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/authgate/jwt-auth/internal/domain"
	apperrors "github.com/authgate/jwt-auth/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Authenticator resolves the identity behind a bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}

// Principal represents the authenticated caller.
type Principal struct {
	Identity domain.Identity
	Token    string
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	authenticator Authenticator
	rejected      []error
}

// NewAuthMiddleware constructs middleware. Errors matching any of rejected are
// answered with 401; other errors are treated as internal failures.
func NewAuthMiddleware(authenticator Authenticator, rejected ...error) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator, rejected: rejected}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}
	token := strings.TrimSpace(parts[1])

	identity, err := m.authenticator.Authenticate(c.UserContext(), token)
	if err != nil {
		if m.isRejection(err) {
			// Expired, tampered, malformed and unknown-subject tokens share one response.
			return apperrors.NewUnauthorized("invalid token")
		}
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, &Principal{Identity: identity, Token: token})
	return c.Next()
}

func (m *AuthMiddleware) isRejection(err error) bool {
	for _, target := range m.rejected {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// RequirePrincipal ensures an authenticated principal is present.
func RequirePrincipal() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized(fiber.ErrUnauthorized.Message)
		}
		return c.Next()
	}
}
