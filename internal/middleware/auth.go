// Package middleware provides HTTP middleware components for the application.
// It includes authentication, authorization and idempotent replay for the
// fiber web framework.
package middleware

import (
	"strings"

	apperrors "finops/internal/errors"
	"finops/internal/models"
	"finops/internal/services/auth"
	"finops/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const identityKey = "identity"

// AuthMiddleware verifies the bearer token and stores the caller's
// server-side Identity in the request locals.
type AuthMiddleware struct {
	authService auth.Service
	log         logrus.FieldLogger
}

func NewAuthMiddleware(authService auth.Service, log logrus.FieldLogger) *AuthMiddleware {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuthMiddleware{
		authService: authService,
		log:         log.WithField("component", "auth_middleware"),
	}
}

// Handler checks for:
// - Presence of Authorization header with Bearer token
// - Valid HS256 signature, expiry and audience
// - An active profile with a known role
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return response.Error(c, apperrors.Unauthenticated("missing authorization header"))
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return response.Error(c, apperrors.Unauthenticated("invalid authorization format"))
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

	identity, err := m.authService.Authenticate(c.UserContext(), token)
	if err != nil {
		m.log.WithError(err).WithField("path", c.Path()).Debug("request not authenticated")
		return response.Error(c, err)
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

// Identity returns the caller stored by AuthMiddleware.
func Identity(c *fiber.Ctx) (auth.Identity, bool) {
	id, ok := c.Locals(identityKey).(auth.Identity)
	return id, ok
}

// RequireCapability rejects callers whose role lacks the capability
// selected by has.
func RequireCapability(has func(models.Capabilities) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := Identity(c)
		if !ok {
			return response.Error(c, apperrors.Unauthenticated("unauthenticated"))
		}
		if !has(id.Can()) {
			return response.Error(c, apperrors.ErrInsufficientPermissions)
		}
		return c.Next()
	}
}

// AdminTier allows only sous_admin and admin_general.
func AdminTier() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := Identity(c)
		if !ok {
			return response.Error(c, apperrors.Unauthenticated("unauthenticated"))
		}
		if !id.Role.IsAdminTier() {
			return response.Error(c, apperrors.ErrInsufficientPermissions)
		}
		return c.Next()
	}
}
