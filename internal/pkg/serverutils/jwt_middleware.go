// FILE: internal/pkg/serverutils/jwt_middleware.go
package serverutils

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	LocalUserId = "user_id"
	LocalEmail  = "email"
)

var ErrInvalidToken = errors.New("invalid token")

// ParseToken validates an HS256 session token and returns the subject id and email.
func ParseToken(secret, tokenStr string) (uuid.UUID, string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, "", ErrInvalidToken
	}
	rawId, _ := claims["user_id"].(string)
	userId, err := uuid.Parse(rawId)
	if err != nil {
		return uuid.Nil, "", ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	return userId, email, nil
}

// IssueToken signs a session token. The identity provider owns real logins;
// this is used by the seed/verify tools and tests.
func IssueToken(secret string, userId uuid.UUID, email string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userId.String(),
		"email":   email,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func bearerToken(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}
	return authHeader[7:]
}

// JwtMiddleware rejects requests without a valid session token.
func JwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := bearerToken(ctx)
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, "Missing token"))
		}
		userId, email, err := ParseToken(secret, tokenStr)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, "Invalid token"))
		}
		ctx.Locals(LocalUserId, userId)
		ctx.Locals(LocalEmail, email)
		return ctx.Next()
	}
}

// OptionalJwtMiddleware records the session when one is presented and
// otherwise lets the request through unauthenticated.
func OptionalJwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if tokenStr := bearerToken(ctx); tokenStr != "" {
			if userId, email, err := ParseToken(secret, tokenStr); err == nil {
				ctx.Locals(LocalUserId, userId)
				ctx.Locals(LocalEmail, email)
			}
		}
		return ctx.Next()
	}
}

// UserIdFromContext returns the authenticated subject, if any.
func UserIdFromContext(ctx *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := ctx.Locals(LocalUserId).(uuid.UUID)
	return id, ok && id != uuid.Nil
}
