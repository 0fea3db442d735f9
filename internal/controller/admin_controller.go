package controller

import (
	"errors"
	"strconv"

	"crm-access-be/internal/dto"
	"crm-access-be/internal/pkg/serverutils"
	"crm-access-be/internal/service"
	"crm-access-be/pkg/access"
	"crm-access-be/pkg/admin"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router, session ...fiber.Handler)

	// Feature Catalog
	GetAllFeatures(ctx *fiber.Ctx) error
	GetFeature(ctx *fiber.Ctx) error
	CreateFeature(ctx *fiber.Ctx) error
	UpdateFeature(ctx *fiber.Ctx) error
	DeleteFeature(ctx *fiber.Ctx) error

	// Tier Catalog
	GetTierFeatures(ctx *fiber.Ctx) error
	AddTierFeature(ctx *fiber.Ctx) error
	RemoveTierFeature(ctx *fiber.Ctx) error
	GetDrift(ctx *fiber.Ctx) error

	// Principals & Overrides
	GetAllUsers(ctx *fiber.Ctx) error
	GetUserDetail(ctx *fiber.Ctx) error
	UpdateUserAccess(ctx *fiber.Ctx) error
	GetUserOverrides(ctx *fiber.Ctx) error
	GrantUserOverride(ctx *fiber.Ctx) error
	RevokeUserOverride(ctx *fiber.Ctx) error
	GetUserEffectiveFeature(ctx *fiber.Ctx) error

	GetAccessLog(ctx *fiber.Ctx) error
}

type adminController struct {
	service service.IAccessAdminService
	checker service.IAccessService
}

func NewAdminController(service service.IAccessAdminService, checker service.IAccessService) IAdminController {
	return &adminController{
		service: service,
		checker: checker,
	}
}

func (c *adminController) RegisterRoutes(r fiber.Router, session ...fiber.Handler) {
	h := r.Group("/admin", session...)
	// The service re-checks every call; this only rejects early with the reason.
	h.Use(serverutils.RequireAccess(c.checker, service.AdminResource))

	// Feature Catalog
	h.Get("/features", c.GetAllFeatures)
	h.Get("/features/:id", c.GetFeature)
	h.Post("/features", c.CreateFeature)
	h.Patch("/features/:id", c.UpdateFeature)
	h.Delete("/features/:id", c.DeleteFeature)

	// Tier Catalog
	h.Get("/tier-features/:tier", c.GetTierFeatures)
	h.Post("/tier-features/:tier", c.AddTierFeature)
	h.Delete("/tier-features/:tier", c.RemoveTierFeature)
	h.Get("/drift", c.GetDrift)

	// Principals & Overrides
	h.Get("/users", c.GetAllUsers)
	h.Get("/users/:id", c.GetUserDetail)
	h.Patch("/users/:id/access", c.UpdateUserAccess)
	h.Get("/users/:id/features", c.GetUserOverrides)
	h.Post("/users/:id/features", c.GrantUserOverride)
	h.Delete("/users/:id/features", c.RevokeUserOverride)
	h.Get("/users/:id/features/effective/:key", c.GetUserEffectiveFeature)

	h.Get("/access-log", c.GetAccessLog)
}

// adminError maps manager and service sentinels onto the response envelope.
func adminError(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, admin.ErrForbidden):
		code = fiber.StatusForbidden
	case errors.Is(err, admin.ErrFeatureNotFound),
		errors.Is(err, admin.ErrProfileNotFound),
		errors.Is(err, admin.ErrOverrideNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, admin.ErrDuplicateKey),
		errors.Is(err, admin.ErrFeatureHasChildren):
		code = fiber.StatusConflict
	case errors.Is(err, admin.ErrParentNotFound),
		errors.Is(err, admin.ErrFeatureCycle),
		errors.Is(err, admin.ErrInvalidTier),
		errors.Is(err, admin.ErrInvalidRole),
		errors.Is(err, admin.ErrInvalidStatus),
		errors.Is(err, admin.ErrInvalidExpiry):
		code = fiber.StatusBadRequest
	}
	return ctx.Status(code).JSON(serverutils.ErrorResponse(code, err.Error()))
}

func badRequest(ctx *fiber.Ctx, message string) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, message))
}

// ============================================================================
// Feature Catalog
// ============================================================================

func (c *adminController) GetAllFeatures(ctx *fiber.Ctx) error {
	actor := serverutils.MustPrincipal(ctx)
	if ctx.QueryBool("tree") {
		tree, err := c.service.GetFeatureTree(ctx.UserContext(), actor)
		if err != nil {
			return adminError(ctx, err)
		}
		return ctx.JSON(serverutils.SuccessResponse("Feature tree", tree))
	}

	features, err := c.service.GetAllFeatures(ctx.UserContext(), actor)
	if err != nil {
		return adminError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("All features", features))
}

func (c *adminController) GetFeature(ctx *fiber.Ctx) error {
	featureId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return badRequest(ctx, "Invalid feature ID")
	}
	feature, err := c.service.GetFeature(ctx.UserContext(), serverutils.MustPrincipal(ctx), featureId)
	if err != nil {
		return adminError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Feature detail", feature))
}

func (c *adminController) CreateFeature(ctx *fiber.Ctx) error {
	var req dto.CreateFeatureRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	if err := serverutils.ValidateStruct(req); err != nil {
		return badRequest(ctx, err.Error())
	}

	feature, err := c.service.CreateFeature(ctx.UserContext(), serverutils.MustPrincipal(ctx), req)
	if err != nil {
		return adminError(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Feature created", feature))
}

func (c *adminController) UpdateFeature(ctx *fiber.Ctx) error {
	featureId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return badRequest(ctx, "Invalid feature ID")
	}

	var req dto.UpdateFeatureRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	if err := serverutils.ValidateStruct(req); err != nil {
		return badRequest(ctx, err.Error())
	}

	feature, err := c.service.UpdateFeature(ctx.UserContext(), serverutils.MustPrincipal(ctx), featureId, req)
	if err != nil {
		return adminError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Feature updated", feature))
}

func (c *adminController) DeleteFeature(ctx *fiber.Ctx) error {
	featureId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return badRequest(ctx, "Invalid feature ID")
	}
	if err := c.service.DeleteFeature(ctx.UserContext(), serverutils.MustPrincipal(ctx), featureId); err != nil {
		return adminError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Feature deleted", nil))
}

// ============================================================================
// Tier Catalog
// ============================================================================

func (c *adminController) GetTierFeatures(ctx *fiber.Ctx) error {
	rows, err := c.service.GetTierFeatures(ctx.UserContext(), serverutils.MustPrincipal(ctx), ctx.Params("tier"))
	if err != nil {
		return adminError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Tier features", rows))
}

func (c *adminController) AddTierFeature(ctx *fiber.Ctx) error {
	var req dto.TierFeatureRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	if req.FeatureId == nil && req.FeatureKey == "" {
		return badRequest(ctx, "feature_id or feature_key is required")
	}

	row, err := c.service.AddTierFeature(ctx.UserContext(), serverutils.MustPrincipal(ctx), ctx.Params("tier"), req)
	if err != nil {
		return adminError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Tier feature saved", row))
}

func (c *adminController) RemoveTierFeature(ctx *fiber.Ctx) error {
	var req dto.RemoveTierFeatureRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	if err := serverutils.ValidateStruct(req); err != nil {
		return badRequest(ctx, err.Error())
	}

	if err := c.service.RemoveTierFeature(ctx.UserContext(), serverutils.MustPrincipal(ctx), ctx.Params("tier"), req.FeatureId); err != nil {
		return adminError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Tier feature removed", nil))
}

func (c *adminController) GetDrift(ctx *fiber.Ctx) error {
	drift, err := c.service.Drift(ctx.UserContext(), serverutils.MustPrincipal(ctx))
	if err != nil {
		return adminError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Catalog drift", drift))
}

// ============================================================================
// Principals & Overrides
// ============================================================================

func (c *adminController) GetAllUsers(ctx *fiber.Ctx) error {
	var q dto.ProfileListQuery
	if err := ctx.QueryParser(&q); err != nil {
		return badRequest(ctx, "Invalid query")
	}

	profiles, total, err := c.service.GetProfiles(ctx.UserContext(), serverutils.MustPrincipal(ctx), q)
	if err != nil {
		return adminError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("All users", dto.ProfileListResponse{
		Profiles: profiles,
		Total:    total,
		Page:     q.Page,
		Limit:    q.Limit,
	}))
}

func (c *adminController) GetUserDetail(ctx *fiber.Ctx) error {
	userId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return badRequest(ctx, "Invalid user ID")
	}
	profile, err := c.service.GetProfile(ctx.UserContext(), serverutils.MustPrincipal(ctx), userId)
	if err != nil {
		return adminError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("User detail", profile))
}

func (c *adminController) UpdateUserAccess(ctx *fiber.Ctx) error {
	userId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return badRequest(ctx, "Invalid user ID")
	}

	var req dto.UpdateAccessRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	if err := serverutils.ValidateStruct(req); err != nil {
		return badRequest(ctx, err.Error())
	}

	profile, err := c.service.UpdateAccess(ctx.UserContext(), serverutils.MustPrincipal(ctx), userId, req)
	if err != nil {
		return adminError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("User access updated", profile))
}

func (c *adminController) GetUserOverrides(ctx *fiber.Ctx) error {
	userId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return badRequest(ctx, "Invalid user ID")
	}
	overrides, err := c.service.GetOverrides(ctx.UserContext(), serverutils.MustPrincipal(ctx), userId)
	if err != nil {
		return adminError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("User feature overrides", overrides))
}

func (c *adminController) GrantUserOverride(ctx *fiber.Ctx) error {
	userId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return badRequest(ctx, "Invalid user ID")
	}

	var req dto.GrantOverrideRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	if err := serverutils.ValidateStruct(req); err != nil {
		return badRequest(ctx, err.Error())
	}

	override, err := c.service.GrantOverride(ctx.UserContext(), serverutils.MustPrincipal(ctx), userId, req)
	if err != nil {
		return adminError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Feature override granted", override))
}

func (c *adminController) RevokeUserOverride(ctx *fiber.Ctx) error {
	userId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return badRequest(ctx, "Invalid user ID")
	}

	var req dto.RevokeOverrideRequest
	if err := ctx.BodyParser(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	if err := serverutils.ValidateStruct(req); err != nil {
		return badRequest(ctx, err.Error())
	}

	if err := c.service.RevokeOverride(ctx.UserContext(), serverutils.MustPrincipal(ctx), userId, req.FeatureKey); err != nil {
		return adminError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Feature override revoked", nil))
}

func (c *adminController) GetAccessLog(ctx *fiber.Ctx) error {
	page, _ := strconv.Atoi(ctx.Query("page", "1"))
	limit, _ := strconv.Atoi(ctx.Query("limit", "100"))
	q := dto.AccessLogQuery{Level: ctx.Query("level", ""), Page: page, Limit: limit}
	if err := serverutils.ValidateStruct(q); err != nil {
		return badRequest(ctx, err.Error())
	}

	entries, err := c.service.GetAccessLog(ctx.UserContext(), serverutils.MustPrincipal(ctx), q)
	if err != nil {
		return adminError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Access log", entries))
}

// GetUserEffectiveFeature answers what the user would get for one feature.
// The group middleware has already required admin_features.
func (c *adminController) GetUserEffectiveFeature(ctx *fiber.Ctx) error {
	userId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return badRequest(ctx, "Invalid user ID")
	}
	key := access.NormalizeKey(ctx.Params("key"))
	if key == "" {
		return badRequest(ctx, "key is required")
	}

	res, err := c.checker.EffectiveFeatureOf(ctx.UserContext(), userId, key)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	if res == nil {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "User not found or not active"))
	}
	return ctx.JSON(serverutils.SuccessResponse("User effective feature", res))
}
