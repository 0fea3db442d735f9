package controller

import (
	"crm-access-be/internal/pkg/serverutils"
	"crm-access-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAuthController interface {
	RegisterRoutes(r fiber.Router, session ...fiber.Handler)
	GetUserRole(ctx *fiber.Ctx) error
}

type authController struct {
	service service.IAccessService
}

func NewAuthController(service service.IAccessService) IAuthController {
	return &authController{service: service}
}

func (c *authController) RegisterRoutes(r fiber.Router, session ...fiber.Handler) {
	h := r.Group("/auth", session...)
	h.Get("/user-role", c.GetUserRole)
}

// GetUserRole returns the caller's role, tier and status as the access layer
// sees them.
func (c *authController) GetUserRole(ctx *fiber.Ctx) error {
	p := serverutils.MustPrincipal(ctx)
	return ctx.JSON(serverutils.SuccessResponse("Success get user role", c.service.GetUserRole(p)))
}
