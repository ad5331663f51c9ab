// Package middleware provides authentication, logging, metrics and rate limiting middleware.
package middleware

import (
	"context"
	"strings"

	"sociallink/internal/auth"
	"sociallink/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by the auth middleware.
const (
	LocalUserID = "userID"
	LocalClaims = "claims"
)

const notAuthenticated = "User not authenticated."

// Authenticator verifies bearer tokens and consults the revocation list.
type Authenticator struct {
	tokens  *auth.TokenManager
	revoker auth.Revoker
}

// NewAuthenticator builds the auth middleware factory.
func NewAuthenticator(tokens *auth.TokenManager, revoker auth.Revoker) *Authenticator {
	return &Authenticator{tokens: tokens, revoker: revoker}
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// authenticate resolves the token into claims. A revoked jti is treated as
// an invalid token; a Redis outage fails open like the rate limiter.
func (a *Authenticator) authenticate(c *fiber.Ctx, token string) (*auth.Claims, uint, bool) {
	if token == "" {
		return nil, 0, false
	}
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, 0, false
	}
	if a.revoker != nil {
		revoked, err := a.revoker.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			Logger.WarnContext(c.UserContext(), "token revocation check failed", "error", err)
		} else if revoked {
			return nil, 0, false
		}
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, 0, false
	}
	return claims, userID, true
}

func (a *Authenticator) attach(c *fiber.Ctx, claims *auth.Claims, userID uint) {
	c.Locals(LocalUserID, userID)
	c.Locals(LocalClaims, claims)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}

// Required rejects requests without a valid bearer token.
func (a *Authenticator) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, userID, ok := a.authenticate(c, bearerToken(c))
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(notAuthenticated))
		}
		a.attach(c, claims, userID)
		return c.Next()
	}
}

// Optional attaches the caller when a valid token is present and lets
// anonymous requests through otherwise.
func (a *Authenticator) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if claims, userID, ok := a.authenticate(c, bearerToken(c)); ok {
			a.attach(c, claims, userID)
		}
		return c.Next()
	}
}

// WebSocket accepts the token from the query string, since browsers cannot
// set headers on the upgrade request.
func (a *Authenticator) WebSocket() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			token = bearerToken(c)
		}
		claims, userID, ok := a.authenticate(c, token)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(notAuthenticated))
		}
		a.attach(c, claims, userID)
		return c.Next()
	}
}

// UserID returns the authenticated user id, or false for anonymous requests.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(LocalUserID).(uint)
	return id, ok && id != 0
}

// Claims returns the verified token claims of the request.
func Claims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals(LocalClaims).(*auth.Claims)
	return claims, ok
}
