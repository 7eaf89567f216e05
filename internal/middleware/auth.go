package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bilgisen/newstrust/internal/apperr"
	"github.com/bilgisen/newstrust/internal/logger"
	"github.com/bilgisen/newstrust/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	// PrincipalKey is the Locals key holding the authenticated models.Principal.
	PrincipalKey = "principal"

	tokenErrorKey = "token_error"
)

// Claims is the token payload issued by the auth service. UID falls back
// to the registered subject.
type Claims struct {
	UID  string      `json:"uid,omitempty"`
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthConfig defines the config for the JWT middleware
type AuthConfig struct {
	// Skip defines a function to skip middleware.
	// Optional. Default: nil
	Next func(c *fiber.Ctx) bool

	// Secret is the HS256 signing key.
	// Required.
	Secret string
}

// JWTAuth parses a bearer token when present and stores the principal.
// Requests without a usable token continue anonymously; RequireAuth
// rejects them later with the reason recorded here.
func JWTAuth(cfg AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Next()
		}
		if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.Locals(tokenErrorKey, true)
			return c.Next()
		}

		p, err := ParseToken(cfg.Secret, strings.TrimSpace(header[7:]))
		if err != nil {
			logger.Ctx(c.UserContext()).Warn().
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Err(err).
				Msg("Authentication failed")
			c.Locals(tokenErrorKey, true)
			return c.Next()
		}

		c.Locals(PrincipalKey, p)
		return c.Next()
	}
}

// ParseToken validates an HS256 token and returns its principal.
func ParseToken(secret, tokenStr string) (models.Principal, error) {
	if secret == "" {
		return models.Principal{}, errors.New("missing JWT secret")
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return models.Principal{}, fmt.Errorf("invalid token: %w", err)
	}

	uid := claims.UID
	if uid == "" {
		uid = claims.Subject
	}
	id, err := bson.ObjectIDFromHex(uid)
	if err != nil {
		return models.Principal{}, fmt.Errorf("invalid uid %q: %w", uid, err)
	}

	role := claims.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return models.Principal{}, fmt.Errorf("unknown role %q", role)
	}
	return models.Principal{UserID: id, Role: role}, nil
}

// IssueToken signs a token for p. The auth service owns issuance; this is
// used by tooling and tests.
func IssueToken(secret string, p models.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UID:  p.UserID.Hex(),
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// CurrentPrincipal returns the request's principal, or the zero value for
// anonymous requests.
func CurrentPrincipal(c *fiber.Ctx) models.Principal {
	if p, ok := c.Locals(PrincipalKey).(models.Principal); ok {
		return p
	}
	return models.Principal{}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentPrincipal(c).UserID.IsZero() {
			if failed, _ := c.Locals(tokenErrorKey).(bool); failed {
				return apperr.Unauthorized("Not authorized, token failed")
			}
			return apperr.Unauthorized("Not authorized, no token")
		}
		return c.Next()
	}
}

// RequireRole rejects requests whose principal holds none of roles. It runs
// before body parsing so a caller without the role sees 403, not a
// validation error.
func RequireRole(roles ...models.Role) fiber.Handler {
	auth := RequireAuth()
	return func(c *fiber.Ctx) error {
		p := CurrentPrincipal(c)
		if p.UserID.IsZero() {
			return auth(c)
		}
		if !p.HasRole(roles...) {
			return apperr.Forbidden("User role " + string(p.Role) + " is not authorized to access this resource")
		}
		return c.Next()
	}
}
