package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/lendkeeper/lendkeeper/internal/apperr"
	"github.com/lendkeeper/lendkeeper/internal/audit"
)

// Locals keys under which the authentication middleware stores the
// verified identity for downstream handlers.
const (
	LocalsClaims = "claims"
	LocalsUserID = audit.LocalsUserID
)

// Identity returns the verified claims for the current request, or nil
// when the request is unauthenticated.
func Identity(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(LocalsClaims).(*Claims)

	return claims
}

// UserID returns the acting user's id, or "" when unauthenticated.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalsUserID).(string)

	return id
}

// RequireAuth creates middleware that verifies the bearer access token
// and stores the identity in the request locals.
func RequireAuth(issuer *TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)

		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			return apperr.Unauthorized(apperr.CodeUnauthenticated)
		}

		claims, err := issuer.VerifyAccess(token)
		if err != nil {
			log.Debug().Err(err).Str("path", c.Path()).Msg("Rejected access token")

			return apperr.Unauthorized(apperr.CodeInvalidToken)
		}

		c.Locals(LocalsClaims, claims)
		c.Locals(LocalsUserID, claims.Subject)

		return c.Next()
	}
}

// RequirePermissions creates middleware that verifies the authenticated
// user holds every listed permission. Grants are checked against the
// database on each request so revocations apply immediately. With no
// permissions listed the middleware only requires authentication.
func RequirePermissions(service *Service, permissions ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserID(c)
		if userID == "" {
			return apperr.Unauthorized(apperr.CodeUnauthenticated)
		}

		if len(permissions) == 0 {
			return c.Next()
		}

		missing, err := service.CheckPermissions(userID, permissions)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to check permissions")

			return apperr.Wrap(err, apperr.KindInternal, apperr.CodeInternal)
		}

		if len(missing) > 0 {
			log.Warn().Str("user_id", userID).Strs("missing", missing).
				Msg("User lacks required permissions")

			return apperr.MissingPermissions(missing)
		}

		return c.Next()
	}
}
