package controller_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"crm-access-be/internal/cache"
	"crm-access-be/internal/controller"
	"crm-access-be/internal/dto"
	"crm-access-be/internal/entity"
	"crm-access-be/internal/metrics"
	"crm-access-be/internal/pkg/logger"
	"crm-access-be/internal/pkg/serverutils"
	"crm-access-be/internal/repository/unitofwork"
	"crm-access-be/internal/service"
	"crm-access-be/internal/testutil"
	"crm-access-be/pkg/access"
	adminEvents "crm-access-be/pkg/admin/events"
	"crm-access-be/pkg/admin/feature"
	"crm-access-be/pkg/admin/override"
	"crm-access-be/pkg/admin/principal"
	"crm-access-be/pkg/admin/tier"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "controller-test-secret"

type nopMailer struct{}

func (nopMailer) SendOverrideNotice(string, string, bool, *time.Time) error { return nil }
func (nopMailer) SendAccessChanged(string, string, string) error            { return nil }

type stack struct {
	t        *testing.T
	app      *fiber.App
	factory  unitofwork.RepositoryFactory
	features map[string]*entity.Feature
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()
	factory := unitofwork.NewRepositoryFactory(testutil.NewDB(t))
	engine := access.NewEngine(access.Config{})
	accessMetrics := metrics.NewAccessMetrics(prometheus.NewRegistry(), metrics.Config{})

	accessService := service.NewAccessService(
		factory,
		engine,
		cache.NewDecisionCache(time.Minute),
		cache.NewEffectiveCache(time.Minute, nil),
		accessMetrics,
		logger.NewNopLogger(),
		logger.NewNopLogger(),
		service.AccessServiceConfig{},
	)
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })
	adminService := service.NewAccessAdminService(
		factory,
		engine,
		logger.NewNopLogger(),
		logger.NewNopLogger(),
		service.NewInvalidationService(pubSub, accessService, accessMetrics),
		adminEvents.NopPublisher{},
		nopMailer{},
		feature.NewManager(),
		tier.NewManager(),
		override.NewManager(nil),
		principal.NewManager(logger.NewNopLogger()),
		nil,
	)

	optional := []fiber.Handler{
		serverutils.OptionalJwtMiddleware(testSecret),
		serverutils.PrincipalMiddleware(accessService),
	}
	session := append(append([]fiber.Handler{}, optional...), serverutils.RequireAuth())

	app := fiber.New(fiber.Config{ErrorHandler: serverutils.FiberErrorHandler})
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	controller.NewAuthController(accessService).RegisterRoutes(api, session...)
	controller.NewFeatureController(accessService, engine).RegisterRoutes(api, session, optional)
	controller.NewAdminController(adminService, accessService).RegisterRoutes(api, session...)

	s := &stack{t: t, app: app, factory: factory, features: map[string]*entity.Feature{}}
	uow := factory.NewUnitOfWork(ctx)
	for _, key := range []string{"contacts", "video_email"} {
		f := &entity.Feature{Key: key, Name: engine.Catalog().DisplayName(access.ResourceKey(key)), IsEnabled: true}
		require.NoError(t, uow.FeatureRepository().Create(ctx, f))
		s.features[key] = f
	}
	require.NoError(t, uow.TierFeatureRepository().Upsert(ctx, &entity.TierFeature{
		ProductTier: access.TierSmartCRM, FeatureId: s.features["contacts"].Id, IncludedByDefault: true,
	}))
	require.NoError(t, uow.TierFeatureRepository().Upsert(ctx, &entity.TierFeature{
		ProductTier: access.TierAICommunication, FeatureId: s.features["video_email"].Id, IncludedByDefault: true,
	}))
	return s
}

func (s *stack) profile(email string, role access.Role, t *access.ProductTier) *entity.Profile {
	p := &entity.Profile{Email: email, Role: role, ProductTier: t, Status: access.StatusActive}
	require.NoError(s.t, s.factory.NewUnitOfWork(context.Background()).ProfileRepository().Create(context.Background(), p))
	return p
}

func (s *stack) token(p *entity.Profile) string {
	tok, err := serverutils.IssueToken(testSecret, p.Id, p.Email, time.Hour)
	require.NoError(s.t, err)
	return tok
}

// do sends a request and decodes the envelope's data into out when non-nil.
func (s *stack) do(method, path, token string, body interface{}, out interface{}) int {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	if out != nil {
		raw, err := io.ReadAll(resp.Body)
		require.NoError(s.t, err)
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		require.NoError(s.t, json.Unmarshal(raw, &envelope), string(raw))
		if len(envelope.Data) > 0 {
			require.NoError(s.t, json.Unmarshal(envelope.Data, out), string(raw))
		}
	}
	return resp.StatusCode
}

func TestFeatureController_Check(t *testing.T) {
	s := newStack(t)
	rep := s.token(s.profile("rep@example.com", access.RoleRegularUser, access.TierPtr(access.TierSmartCRM)))
	free := s.token(s.profile("free@example.com", access.RoleRegularUser, nil))

	tests := []struct {
		name        string
		token       string
		path        string
		wantStatus  int
		wantAllowed bool
		wantReason  access.Reason
	}{
		{"anonymous", "", "/api/features/check?key=contacts", 401, false, access.ReasonAuthRequired},
		{"missing key", rep, "/api/features/check", 400, false, ""},
		{"tier allowed", rep, "/api/features/check?key=contacts", 200, true, access.ReasonTierAllowed},
		{"key is normalized", rep, "/api/features/check?key=%20Contacts%20", 200, true, access.ReasonTierAllowed},
		{"other tier", rep, "/api/features/check?key=video_email", 200, false, access.ReasonFeatureDenied},
		{"no tier", free, "/api/features/check?key=contacts", 200, false, access.ReasonNoProductTier},
		{"unknown", rep, "/api/features/check?key=teleport", 200, false, access.ReasonUnknownResource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res dto.FeatureCheckResponse
			status := s.do("GET", tt.path, tt.token, nil, &res)
			assert.Equal(t, tt.wantStatus, status)
			if status == 200 {
				assert.Equal(t, tt.wantAllowed, res.Allowed)
				assert.Equal(t, tt.wantReason, res.Reason)
			}
		})
	}
}

func TestAuthController_UserRole(t *testing.T) {
	s := newStack(t)
	p := s.profile("wl@example.com", access.RoleWLUser, access.TierPtr(access.TierWhitelabel))

	var res dto.UserRoleResponse
	require.Equal(t, 200, s.do("GET", "/api/auth/user-role", s.token(p), nil, &res))
	assert.Equal(t, p.Id, res.Id)
	assert.Equal(t, "wl_user", res.Role)
	require.NotNil(t, res.ProductTier)
	assert.Equal(t, "whitelabel", *res.ProductTier)

	assert.Equal(t, 401, s.do("GET", "/api/auth/user-role", "", nil, nil))
}

func TestFeatureController_Gate(t *testing.T) {
	s := newStack(t)
	rep := s.token(s.profile("rep@example.com", access.RoleRegularUser, access.TierPtr(access.TierSmartCRM)))

	tests := []struct {
		query string
		want  access.Render
	}{
		{"key=contacts", access.RenderChildren},
		{"key=video_email", access.RenderUpgradePrompt},
		{"key=video_email&mode=hidden", access.RenderNothing},
		{"key=video_email&mode=hidden&fallback=true", access.RenderFallback},
		{"key=video_email&mode=sparkle", access.RenderUpgradePrompt},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var res access.GateResult
			require.Equal(t, 200, s.do("GET", "/api/features/gate?"+tt.query, rep, nil, &res))
			assert.Equal(t, tt.want, res.Render)
		})
	}
}

func TestFeatureController_Guard(t *testing.T) {
	s := newStack(t)
	rep := s.token(s.profile("rep@example.com", access.RoleRegularUser, access.TierPtr(access.TierSmartCRM)))

	t.Run("anonymous is sent to sign in", func(t *testing.T) {
		var res dto.GuardResponse
		require.Equal(t, 200, s.do("POST", "/api/access/guard", "", dto.GuardRequest{Path: "/contacts", FeatureKey: "contacts"}, &res))
		assert.Equal(t, access.StateRedirected, res.State)
		require.NotNil(t, res.Redirect)
		assert.Equal(t, access.DefaultSignInPath, res.Redirect.To)
		assert.Equal(t, "/contacts", res.Redirect.State.From)
	})

	t.Run("missing feature is sent to upgrade", func(t *testing.T) {
		var res dto.GuardResponse
		require.Equal(t, 200, s.do("POST", "/api/access/guard", rep, dto.GuardRequest{Path: "/video", FeatureKey: "video_email"}, &res))
		assert.Equal(t, access.StateRedirected, res.State)
		require.NotNil(t, res.Redirect)
		assert.Equal(t, access.DefaultUpgradePath, res.Redirect.To)
		assert.Equal(t, access.ResourceKey("video_email"), res.Redirect.State.RequiredFeature)
	})

	t.Run("allowed renders", func(t *testing.T) {
		var res dto.GuardResponse
		require.Equal(t, 200, s.do("POST", "/api/access/guard", rep, dto.GuardRequest{Path: "/contacts", FeatureKey: "contacts", RequireProductTier: true}, &res))
		assert.Equal(t, access.StateRendered, res.State)
		assert.Nil(t, res.Redirect)
	})

	t.Run("path is required", func(t *testing.T) {
		assert.Equal(t, 400, s.do("POST", "/api/access/guard", rep, dto.GuardRequest{FeatureKey: "contacts"}, nil))
	})
}

func TestAdminController_RequiresSuperAdmin(t *testing.T) {
	s := newStack(t)
	rep := s.token(s.profile("rep@example.com", access.RoleRegularUser, access.TierPtr(access.TierSmartCRM)))

	var denial serverutils.Denial
	assert.Equal(t, 403, s.do("GET", "/api/admin/features", rep, nil, &denial))
	assert.Equal(t, access.ReasonRoleDenied, denial.Reason)
	assert.Equal(t, access.ResourceAdminFeatures, denial.Resource)

	assert.Equal(t, 401, s.do("GET", "/api/admin/features", "", nil, nil))
}

func TestAdminController_OverrideFlow(t *testing.T) {
	s := newStack(t)
	root := s.token(s.profile("root@example.com", access.RoleSuperAdmin, nil))
	repProfile := s.profile("rep@example.com", access.RoleRegularUser, access.TierPtr(access.TierSmartCRM))
	rep := s.token(repProfile)
	checkPath := "/api/features/check?key=video_email"
	overridesPath := "/api/admin/users/" + repProfile.Id.String() + "/features"

	var before dto.FeatureCheckResponse
	require.Equal(t, 200, s.do("GET", checkPath, rep, nil, &before))
	assert.False(t, before.Allowed)

	var granted dto.OverrideResponse
	require.Equal(t, 200, s.do("POST", overridesPath, root, dto.GrantOverrideRequest{FeatureKey: "video_email"}, &granted))
	assert.True(t, granted.Enabled)

	// The cached denial must not survive the grant.
	var after dto.FeatureCheckResponse
	require.Equal(t, 200, s.do("GET", checkPath, rep, nil, &after))
	assert.True(t, after.Allowed)
	assert.Equal(t, access.ReasonOverride, after.Reason)

	var listed []dto.OverrideResponse
	require.Equal(t, 200, s.do("GET", overridesPath, root, nil, &listed))
	assert.Len(t, listed, 1)

	var effective dto.EffectiveFeatureResponse
	require.Equal(t, 200, s.do("GET", overridesPath+"/effective/Video_Email", root, nil, &effective))
	assert.Equal(t, "video_email", effective.FeatureKey)
	assert.True(t, effective.Enabled)
	assert.Equal(t, access.SourceOverride, effective.Source)
	assert.Equal(t, 404, s.do("GET", "/api/admin/users/"+uuid.NewString()+"/features/effective/video_email", root, nil, nil))
	assert.Equal(t, 403, s.do("GET", overridesPath+"/effective/video_email", rep, nil, nil))

	require.Equal(t, 200, s.do("DELETE", overridesPath, root, dto.RevokeOverrideRequest{FeatureKey: "video_email"}, nil))
	require.Equal(t, 200, s.do("GET", checkPath, rep, nil, &after))
	assert.False(t, after.Allowed)
	require.Equal(t, 200, s.do("GET", overridesPath+"/effective/video_email", root, nil, &effective))
	assert.False(t, effective.Enabled)
	assert.Equal(t, access.SourceTier, effective.Source)

	assert.Equal(t, 404, s.do("DELETE", overridesPath, root, dto.RevokeOverrideRequest{FeatureKey: "video_email"}, nil))
	assert.Equal(t, 400, s.do("POST", overridesPath, root, dto.GrantOverrideRequest{}, nil))
	assert.Equal(t, 400, s.do("POST", "/api/admin/users/not-a-uuid/features", root, dto.GrantOverrideRequest{FeatureKey: "video_email"}, nil))
}

func TestAdminController_FeatureCatalog(t *testing.T) {
	s := newStack(t)
	root := s.token(s.profile("root@example.com", access.RoleSuperAdmin, nil))

	var created dto.FeatureResponse
	require.Equal(t, 201, s.do("POST", "/api/admin/features", root, dto.CreateFeatureRequest{Key: "Beta_Lab", Name: "Beta Lab"}, &created))
	assert.Equal(t, "beta_lab", created.Key)
	assert.True(t, created.IsEnabled)

	assert.Equal(t, 409, s.do("POST", "/api/admin/features", root, dto.CreateFeatureRequest{Key: "beta_lab", Name: "Again"}, nil))
	assert.Equal(t, 400, s.do("POST", "/api/admin/features", root, dto.CreateFeatureRequest{Key: "nameless"}, nil))

	var row dto.TierFeatureResponse
	require.Equal(t, 200, s.do("POST", "/api/admin/tier-features/smartcrm", root, dto.TierFeatureRequest{FeatureKey: "beta_lab"}, &row))
	assert.True(t, row.IncludedByDefault)
	assert.Equal(t, 400, s.do("POST", "/api/admin/tier-features/gold", root, dto.TierFeatureRequest{FeatureKey: "beta_lab"}, nil))

	var rows []dto.TierFeatureResponse
	require.Equal(t, 200, s.do("GET", "/api/admin/tier-features/smartcrm", root, nil, &rows))
	assert.Len(t, rows, 2)

	var drift dto.DriftResponse
	require.Equal(t, 200, s.do("GET", "/api/admin/drift", root, nil, &drift))
	assert.Equal(t, access.CatalogVersion, drift.CatalogVersion)
	assert.NotEmpty(t, drift.Drift)

	assert.Equal(t, 404, s.do("DELETE", "/api/admin/features/"+uuid.New().String(), root, nil, nil))
	require.Equal(t, 200, s.do("DELETE", "/api/admin/tier-features/smartcrm", root, dto.RemoveTierFeatureRequest{FeatureId: created.Id}, nil))
	require.Equal(t, 200, s.do("DELETE", "/api/admin/features/"+created.Id.String(), root, nil, nil))
	assert.Equal(t, 404, s.do("GET", "/api/admin/features/"+created.Id.String(), root, nil, nil))
}

func TestAdminController_UpdateAccess(t *testing.T) {
	s := newStack(t)
	root := s.token(s.profile("root@example.com", access.RoleSuperAdmin, nil))
	repProfile := s.profile("rep@example.com", access.RoleRegularUser, access.TierPtr(access.TierSmartCRM))
	rep := s.token(repProfile)
	path := "/api/admin/users/" + repProfile.Id.String() + "/access"

	upgrade := "ai_communication"
	var updated dto.ProfileResponse
	require.Equal(t, 200, s.do("PATCH", path, root, dto.UpdateAccessRequest{ProductTier: &upgrade}, &updated))

	var res dto.FeatureCheckResponse
	require.Equal(t, 200, s.do("GET", "/api/features/check?key=video_email", rep, nil, &res))
	assert.True(t, res.Allowed)

	badRole := "owner"
	assert.Equal(t, 400, s.do("PATCH", path, root, dto.UpdateAccessRequest{Role: &badRole}, nil))

	suspended := "suspended"
	require.Equal(t, 200, s.do("PATCH", path, root, dto.UpdateAccessRequest{Status: &suspended}, nil))
	assert.Equal(t, 401, s.do("GET", "/api/features/check?key=contacts", rep, nil, nil))

	var list dto.ProfileListResponse
	require.Equal(t, 200, s.do("GET", "/api/admin/users?role=super_admin", root, nil, &list))
	assert.Equal(t, int64(1), list.Total)
}

func TestFeatureController_EffectiveNeedsTier(t *testing.T) {
	s := newStack(t)
	rep := s.token(s.profile("rep@example.com", access.RoleRegularUser, access.TierPtr(access.TierSmartCRM)))
	free := s.token(s.profile("free@example.com", access.RoleRegularUser, nil))
	root := s.token(s.profile("root@example.com", access.RoleSuperAdmin, nil))

	var all []dto.EffectiveFeatureResponse
	require.Equal(t, 200, s.do("GET", "/api/features", rep, nil, &all))
	assert.Len(t, all, 2)

	var one dto.EffectiveFeatureResponse
	require.Equal(t, 200, s.do("GET", "/api/features/effective/contacts", rep, nil, &one))
	assert.True(t, one.Enabled)

	var denial serverutils.Denial
	assert.Equal(t, 402, s.do("GET", "/api/features", free, nil, &denial))
	assert.Equal(t, access.ReasonNoProductTier, denial.Reason)
	assert.Equal(t, 402, s.do("GET", "/api/features/effective/contacts", free, nil, nil))

	assert.Equal(t, 200, s.do("GET", "/api/features", root, nil, nil))
	assert.Equal(t, 401, s.do("GET", "/api/features", "", nil, nil))
}
