package serverutils

import (
	"context"
	"errors"

	"crm-access-be/pkg/access"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	localPrincipal      = "principal"
	localPrincipalReady = "principal_ready"
)

// ErrNoPrincipalContext means a handler asked for the principal on a route
// that does not run PrincipalMiddleware.
var ErrNoPrincipalContext = errors.New("principal accessed outside PrincipalMiddleware")

// PrincipalResolver turns an authenticated subject into a principal. A nil
// principal with no error means the subject is unknown or not active.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, userId uuid.UUID, email string) (*access.Principal, error)
}

// PrincipalMiddleware resolves the caller once per request. It must run after
// JwtMiddleware or OptionalJwtMiddleware; without a session the principal is nil.
func PrincipalMiddleware(resolver PrincipalResolver) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		var principal *access.Principal
		if userId, ok := UserIdFromContext(ctx); ok {
			email, _ := ctx.Locals(LocalEmail).(string)
			p, err := resolver.ResolvePrincipal(ctx.UserContext(), userId, email)
			if err != nil {
				return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(500, "Failed to load principal"))
			}
			principal = p
		}
		ctx.Locals(localPrincipal, principal)
		ctx.Locals(localPrincipalReady, true)
		return ctx.Next()
	}
}

// GetPrincipal returns the request principal, nil when unauthenticated.
func GetPrincipal(ctx *fiber.Ctx) (*access.Principal, error) {
	if ready, _ := ctx.Locals(localPrincipalReady).(bool); !ready {
		return nil, ErrNoPrincipalContext
	}
	p, _ := ctx.Locals(localPrincipal).(*access.Principal)
	return p, nil
}

// MustPrincipal panics when the principal middleware is missing.
func MustPrincipal(ctx *fiber.Ctx) *access.Principal {
	p, err := GetPrincipal(ctx)
	if err != nil {
		panic(err)
	}
	return p
}
