package controller

import (
	"crm-access-be/internal/dto"
	"crm-access-be/internal/pkg/serverutils"
	"crm-access-be/internal/service"
	"crm-access-be/pkg/access"

	"github.com/gofiber/fiber/v2"
)

type IFeatureController interface {
	RegisterRoutes(r fiber.Router, session []fiber.Handler, optionalSession []fiber.Handler)
	CheckFeature(ctx *fiber.Ctx) error
	GetEffectiveFeatures(ctx *fiber.Ctx) error
	GetEffectiveFeature(ctx *fiber.Ctx) error
	EvaluateGate(ctx *fiber.Ctx) error
	GetCatalog(ctx *fiber.Ctx) error
	EvaluateGuard(ctx *fiber.Ctx) error
}

type featureController struct {
	service service.IAccessService
	engine  *access.Engine
}

func NewFeatureController(service service.IAccessService, engine *access.Engine) IFeatureController {
	return &featureController{service: service, engine: engine}
}

func (c *featureController) RegisterRoutes(r fiber.Router, session []fiber.Handler, optionalSession []fiber.Handler) {
	h := r.Group("/features", session...)
	h.Get("/check", c.CheckFeature)
	h.Get("/gate", c.EvaluateGate)
	h.Get("/catalog", c.GetCatalog)
	// The per-user feature set is tier based.
	h.Get("/effective/:key", serverutils.RequireProductTier(c.engine), c.GetEffectiveFeature)
	h.Get("/", serverutils.RequireProductTier(c.engine), c.GetEffectiveFeatures)

	// Unauthenticated callers get a sign-in redirect rather than a 401.
	g := r.Group("/access", optionalSession...)
	g.Post("/guard", c.EvaluateGuard)
}

func (c *featureController) CheckFeature(ctx *fiber.Ctx) error {
	key := access.NormalizeKey(ctx.Query("key"))
	if key == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "key is required"))
	}

	decision, err := c.service.CheckFeature(ctx.UserContext(), serverutils.MustPrincipal(ctx), key)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, "Access check failed"))
	}
	return ctx.JSON(serverutils.SuccessResponse("Success check feature", dto.FeatureCheckResponse{
		FeatureKey: key.String(),
		Allowed:    decision.Allowed,
		Reason:     decision.Reason,
	}))
}

func (c *featureController) GetEffectiveFeatures(ctx *fiber.Ctx) error {
	res, err := c.service.EffectiveFeatures(ctx.UserContext(), serverutils.MustPrincipal(ctx))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get features", res))
}

func (c *featureController) GetEffectiveFeature(ctx *fiber.Ctx) error {
	res, err := c.service.EffectiveFeature(ctx.UserContext(), serverutils.MustPrincipal(ctx), access.ResourceKey(ctx.Params("key")))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get feature", res))
}

func (c *featureController) EvaluateGate(ctx *fiber.Ctx) error {
	var q dto.GateQuery
	if err := ctx.QueryParser(&q); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid query"))
	}

	// Unknown modes fall back to the upgrade prompt instead of failing.
	res, err := c.service.EvaluateGate(ctx.UserContext(), serverutils.MustPrincipal(ctx), q)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, "Access check failed"))
	}
	return ctx.JSON(serverutils.SuccessResponse("Success evaluate gate", res))
}

func (c *featureController) GetCatalog(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get catalog", c.service.Catalog(serverutils.MustPrincipal(ctx))))
}

func (c *featureController) EvaluateGuard(ctx *fiber.Ctx) error {
	var req dto.GuardRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateStruct(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.service.EvaluateRoute(ctx.UserContext(), serverutils.MustPrincipal(ctx), req)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Success evaluate route", res))
}
