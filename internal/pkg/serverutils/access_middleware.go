package serverutils

import (
	"crm-access-be/pkg/access"

	"github.com/gofiber/fiber/v2"
)

// Denial is the data payload of a rejected request.
type Denial struct {
	Reason   access.Reason      `json:"reason"`
	Resource access.ResourceKey `json:"resource,omitempty"`
}

var denialMessages = map[access.Reason]string{
	access.ReasonAuthRequired:    "Authentication required",
	access.ReasonNoProductTier:   "A product tier is required",
	access.ReasonRoleDenied:      "Your role cannot access this resource",
	access.ReasonFeatureDenied:   "Your product tier does not include this feature",
	access.ReasonUnknownResource: "Unknown resource",
	access.ReasonFeatureDisabled: "This feature is currently disabled",
}

// Deny writes the envelope for a denial reason with the matching status.
func Deny(ctx *fiber.Ctx, reason access.Reason, resource access.ResourceKey) error {
	status := reason.HTTPStatus()
	if status == fiber.StatusOK {
		status = fiber.StatusForbidden
	}
	msg, ok := denialMessages[reason]
	if !ok {
		msg = "Access denied"
	}
	return ctx.Status(status).JSON(ErrorResponseWithData(status, msg, Denial{Reason: reason, Resource: resource}))
}

// RequireAuth rejects requests without a resolved principal.
func RequireAuth() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if MustPrincipal(ctx) == nil {
			return Deny(ctx, access.ReasonAuthRequired, "")
		}
		return ctx.Next()
	}
}

// RequireProductTier rejects principals without a tier. super_admin and
// break-glass accounts pass.
func RequireProductTier(engine *access.Engine) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		p := MustPrincipal(ctx)
		if p == nil {
			return Deny(ctx, access.ReasonAuthRequired, "")
		}
		if !p.HasTier() && !engine.Unrestricted(p) {
			return Deny(ctx, access.ReasonNoProductTier, "")
		}
		return ctx.Next()
	}
}

// RequireAccess runs the authoritative check for key on every request.
func RequireAccess(checker access.FeatureChecker, key access.ResourceKey) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		decision, err := checker.CheckFeature(ctx.UserContext(), MustPrincipal(ctx), key)
		if err != nil {
			return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(500, "Access check failed"))
		}
		if !decision.Allowed {
			return Deny(ctx, decision.Reason, key)
		}
		return ctx.Next()
	}
}
