package service

import (
	"testing"
	"time"

	"crm-access-be/internal/cache"
	"crm-access-be/internal/dto"
	"crm-access-be/internal/entity"
	"crm-access-be/internal/pkg/logger"
	"crm-access-be/pkg/access"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessService_CheckFeatureComposition(t *testing.T) {
	f := newFixture(t)

	smart := f.profile("smart@example.com", access.RoleRegularUser, access.TierPtr(access.TierSmartCRM))
	smartGranted := f.profile("granted@example.com", access.RoleRegularUser, access.TierPtr(access.TierSmartCRM))
	smartExpired := f.profile("expired@example.com", access.RoleRegularUser, access.TierPtr(access.TierSmartCRM))
	comms := f.profile("comms@example.com", access.RoleRegularUser, access.TierPtr(access.TierAICommunication))
	commsRevoked := f.profile("revoked@example.com", access.RoleRegularUser, access.TierPtr(access.TierAICommunication))
	wl := f.profile("wl@example.com", access.RoleWLUser, access.TierPtr(access.TierWhitelabel))
	admin := f.profile("admin@example.com", access.RoleSuperAdmin, nil)
	noTier := f.profile("free@example.com", access.RoleRegularUser, nil)
	ops := f.profile("ops@example.com", access.RoleRegularUser, nil)

	f.override(smartGranted, "video_email", true, timePtr(fixedNow.Add(24*time.Hour)))
	f.override(smartExpired, "video_email", true, timePtr(fixedNow))
	f.override(commsRevoked, "video_email", false, nil)

	tests := []struct {
		name    string
		profile *entity.Profile
		key     access.ResourceKey
		allowed bool
		reason  access.Reason
	}{
		{"anonymous", nil, "video_email", false, access.ReasonAuthRequired},
		{"super_admin without tier", admin, "video_email", true, access.ReasonSuperAdmin},
		{"super_admin ignores disabled", admin, "ai_assistant", true, access.ReasonSuperAdmin},
		{"break glass", ops, "whitelabel", true, access.ReasonBreakGlass},
		{"no tier", noTier, "contacts", false, access.ReasonNoProductTier},
		{"tier lacks feature", smart, "video_email", false, access.ReasonFeatureDenied},
		{"tier includes feature", comms, "video_email", true, access.ReasonTierAllowed},
		{"override grants", smartGranted, "video_email", true, access.ReasonOverride},
		{"expired override is inert", smartExpired, "video_email", false, access.ReasonFeatureDenied},
		{"override revokes", commsRevoked, "video_email", false, access.ReasonOverride},
		{"disabled ancestor", wl, "ai_assistant", false, access.ReasonFeatureDisabled},
		{"catalog-only feature uses tier row", smart, "beta_lab", true, access.ReasonTierDefault},
		{"catalog-only feature excluded", comms, "beta_lab", false, access.ReasonTierDefault},
		{"role acl denies", smart, "admin_dashboard", false, access.ReasonRoleDenied},
		{"wl role and tier", wl, "wl_management", true, access.ReasonTierAllowed},
		{"unknown resource", smart, "teleport", false, access.ReasonUnknownResource},
		{"key is normalized", comms, " Video_Email ", true, access.ReasonTierAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p *access.Principal
			if tt.profile != nil {
				p = f.principal(tt.profile)
			}
			d, err := f.access.CheckFeature(f.ctx, p, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestAccessService_ResolvePrincipal(t *testing.T) {
	f := newFixture(t)

	active := f.profile("active@example.com", access.RoleWLUser, access.TierPtr(access.TierWhitelabel))
	suspended := f.profile("suspended@example.com", access.RoleRegularUser, access.TierPtr(access.TierSmartCRM))
	suspended.Status = access.StatusSuspended
	require.NoError(t, f.uow().ProfileRepository().Update(f.ctx, suspended))

	p, err := f.access.ResolvePrincipal(f.ctx, active.Id, active.Email)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, access.RoleWLUser, p.Role)
	assert.Equal(t, access.TierWhitelabel, p.Tier())

	p, err = f.access.ResolvePrincipal(f.ctx, suspended.Id, suspended.Email)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = f.access.ResolvePrincipal(f.ctx, newId(), "ghost@example.com")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestAccessService_DevAllAccessStrippedInProduction(t *testing.T) {
	f := newFixture(t)
	dev := f.profile("dev@example.com", access.RoleRegularUser, access.TierPtr(access.TierDevAllAccess))

	p := f.principal(dev)
	d, err := f.access.CheckFeature(f.ctx, p, "whitelabel")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	prod := NewAccessService(f.factory, f.engine, cache.NewDecisionCache(0), cache.NewEffectiveCache(0, nil), nil,
		logger.NewNopLogger(), nil, AccessServiceConfig{IsProduction: true, Now: func() time.Time { return fixedNow }})
	p, err = prod.ResolvePrincipal(f.ctx, dev.Id, dev.Email)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.False(t, p.HasTier())
}

func TestAccessService_InvalidateDropsCachedDecision(t *testing.T) {
	f := newFixture(t)
	smart := f.profile("smart@example.com", access.RoleRegularUser, access.TierPtr(access.TierSmartCRM))
	p := f.principal(smart)

	d, err := f.access.CheckFeature(f.ctx, p, "video_email")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	f.override(smart, "video_email", true, nil)

	d, err = f.access.CheckFeature(f.ctx, p, "video_email")
	require.NoError(t, err)
	assert.False(t, d.Allowed, "served from cache until invalidated")

	f.access.Invalidate(f.ctx, &smart.Id)
	d, err = f.access.CheckFeature(f.ctx, p, "video_email")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, access.ReasonOverride, d.Reason)
}

func TestAccessService_EffectiveFeatures(t *testing.T) {
	f := newFixture(t)
	smart := f.profile("smart@example.com", access.RoleRegularUser, access.TierPtr(access.TierSmartCRM))
	expires := fixedNow.Add(time.Hour)
	f.override(smart, "video_email", true, &expires)
	p := f.principal(smart)

	all, err := f.access.EffectiveFeatures(f.ctx, p)
	require.NoError(t, err)
	byKey := map[string]*dto.EffectiveFeatureResponse{}
	for _, ef := range all {
		byKey[ef.FeatureKey] = ef
	}
	require.Len(t, byKey, 6)

	assert.True(t, byKey["contacts"].Enabled)
	assert.Equal(t, access.SourceTier, byKey["contacts"].Source)
	assert.Equal(t, "contacts", byKey["contacts"].Name)

	assert.True(t, byKey["video_email"].Enabled)
	assert.Equal(t, access.SourceOverride, byKey["video_email"].Source)
	require.NotNil(t, byKey["video_email"].ExpiresAt)
	assert.True(t, expires.Equal(*byKey["video_email"].ExpiresAt))

	assert.False(t, byKey["ai_assistant"].Enabled)
	assert.Equal(t, access.ReasonFeatureDisabled, byKey["ai_assistant"].Reason)
	assert.False(t, byKey["communication"].Enabled)

	one, err := f.access.EffectiveFeature(f.ctx, p, "BETA_LAB")
	require.NoError(t, err)
	assert.True(t, one.Enabled)

	unknown, err := f.access.EffectiveFeature(f.ctx, p, "teleport")
	require.NoError(t, err)
	assert.False(t, unknown.Enabled)
	assert.Equal(t, access.ReasonUnknownResource, unknown.Reason)

	anon, err := f.access.EffectiveFeatures(f.ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, anon)
}

func TestAccessService_EvaluateGate(t *testing.T) {
	f := newFixture(t)
	p := f.principal(f.profile("smart@example.com", access.RoleRegularUser, access.TierPtr(access.TierSmartCRM)))

	tests := []struct {
		name     string
		query    dto.GateQuery
		render   access.Render
		required access.ProductTier
	}{
		{"no key", dto.GateQuery{}, access.RenderChildren, ""},
		{"allowed", dto.GateQuery{Key: "contacts"}, access.RenderChildren, ""},
		{"upgrade", dto.GateQuery{Key: "video_email"}, access.RenderUpgradePrompt, access.TierAICommunication},
		{"unknown mode upgrades", dto.GateQuery{Key: "video_email", Mode: "sparkle"}, access.RenderUpgradePrompt, access.TierAICommunication},
		{"hidden", dto.GateQuery{Key: "video_email", Mode: "hidden"}, access.RenderNothing, ""},
		{"custom with fallback", dto.GateQuery{Key: "video_email", Mode: "custom", Fallback: true}, access.RenderFallback, ""},
		{"custom without fallback", dto.GateQuery{Key: "video_email", Mode: "custom"}, access.RenderNothing, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.access.EvaluateGate(f.ctx, p, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.render, res.Render)
			assert.Equal(t, tt.required, res.RequiredTier)
		})
	}
}

func TestAccessService_EvaluateRoute(t *testing.T) {
	f := newFixture(t)
	smart := f.principal(f.profile("smart@example.com", access.RoleRegularUser, access.TierPtr(access.TierSmartCRM)))
	noTier := f.principal(f.profile("free@example.com", access.RoleRegularUser, nil))

	res, err := f.access.EvaluateRoute(f.ctx, nil, dto.GuardRequest{Path: "/deals", RequireProductTier: true})
	require.NoError(t, err)
	assert.Equal(t, access.StateRedirected, res.State)
	assert.Equal(t, "/signin", res.Redirect.To)
	assert.Equal(t, "/deals", res.Redirect.State.From)

	res, err = f.access.EvaluateRoute(f.ctx, noTier, dto.GuardRequest{Path: "/deals", RequireProductTier: true})
	require.NoError(t, err)
	assert.Equal(t, "/upgrade", res.Redirect.To)
	assert.Equal(t, access.ReasonNoProductTier, res.Redirect.State.Reason)

	res, err = f.access.EvaluateRoute(f.ctx, smart, dto.GuardRequest{Path: "/video", Resource: "video_email", RequireProductTier: true})
	require.NoError(t, err)
	require.NotNil(t, res.Redirect)
	assert.Equal(t, access.RedirectState{
		From:            "/video",
		RequiredFeature: "video_email",
		FeatureName:     "Video Email",
		Reason:          access.ReasonFeatureDenied,
	}, res.Redirect.State)

	res, err = f.access.EvaluateRoute(f.ctx, smart, dto.GuardRequest{Path: "/contacts", FeatureKey: "contacts"})
	require.NoError(t, err)
	assert.Equal(t, access.StateRendered, res.State)
	assert.Nil(t, res.Redirect)
}

func TestAccessService_Catalog(t *testing.T) {
	f := newFixture(t)
	p := f.principal(f.profile("comms@example.com", access.RoleRegularUser, access.TierPtr(access.TierAICommunication)))

	res := f.access.Catalog(p)
	assert.Equal(t, access.CatalogVersion, res.Version)

	byKey := map[string]dto.CatalogFeatureResponse{}
	for _, feat := range res.Features {
		byKey[feat.Key] = feat
	}
	assert.True(t, byKey["video_email"].IncludedHere)
	assert.False(t, byKey["whitelabel"].IncludedHere)
	assert.Equal(t, "whitelabel", byKey["whitelabel"].MinimumTier)
	assert.Equal(t, []string{"ai_communication", "whitelabel"}, byKey["video_email"].Tiers)

	anon := f.access.Catalog(nil)
	for _, feat := range anon.Features {
		assert.False(t, feat.IncludedHere, feat.Key)
	}
}

func TestAccessService_ExpiredOverrideDropsOutOfCaches(t *testing.T) {
	f := newFixture(t)
	now := fixedNow
	svc := NewAccessService(
		f.factory,
		f.engine,
		cache.NewDecisionCache(5*time.Minute),
		cache.NewEffectiveCache(5*time.Minute, nil),
		f.metrics,
		logger.NewNopLogger(),
		nil,
		AccessServiceConfig{Now: func() time.Time { return now }},
	)

	smart := f.profile("smart@example.com", access.RoleRegularUser, access.TierPtr(access.TierSmartCRM))
	f.override(smart, "video_email", true, timePtr(fixedNow.Add(time.Second)))
	p := f.principal(smart)

	ef, err := svc.EffectiveFeature(f.ctx, p, "video_email")
	require.NoError(t, err)
	assert.True(t, ef.Enabled)
	assert.Equal(t, access.SourceOverride, ef.Source)

	d, err := svc.CheckFeature(f.ctx, p, "video_email")
	require.NoError(t, err)
	assert.Equal(t, access.Decision{Allowed: true, Reason: access.ReasonOverride}, d)

	now = fixedNow.Add(10 * time.Second)

	ef, err = svc.EffectiveFeature(f.ctx, p, "video_email")
	require.NoError(t, err)
	assert.False(t, ef.Enabled)
	assert.Equal(t, access.SourceTier, ef.Source)
	assert.Nil(t, ef.ExpiresAt)

	d, err = svc.CheckFeature(f.ctx, p, "video_email")
	require.NoError(t, err)
	assert.Equal(t, access.Decision{Allowed: false, Reason: access.ReasonFeatureDenied}, d)
}

func TestAccessService_StoredTierRowsDecide(t *testing.T) {
	f := newFixture(t)
	smart := f.profile("smart@example.com", access.RoleRegularUser, access.TierPtr(access.TierSmartCRM))
	p := f.principal(smart)

	check := func(key access.ResourceKey) access.Decision {
		d, err := f.access.CheckFeature(f.ctx, p, key)
		require.NoError(t, err)
		return d
	}
	effective := func(key access.ResourceKey) bool {
		ef, err := f.access.EffectiveFeature(f.ctx, p, key)
		require.NoError(t, err)
		return ef.Enabled
	}

	assert.Equal(t, access.Decision{Allowed: true, Reason: access.ReasonTierAllowed}, check("contacts"))
	assert.Equal(t, access.Decision{Allowed: false, Reason: access.ReasonFeatureDenied}, check("video_email"))

	require.NoError(t, f.uow().TierFeatureRepository().Delete(f.ctx, access.TierSmartCRM, f.features["contacts"].Id))
	f.tierRow(access.TierSmartCRM, "video_email", true)
	f.access.Invalidate(f.ctx, nil)

	assert.Equal(t, access.Decision{Allowed: false, Reason: access.ReasonFeatureDenied}, check("contacts"))
	assert.False(t, effective("contacts"))
	assert.Equal(t, access.Decision{Allowed: true, Reason: access.ReasonTierAllowed}, check("video_email"))
	assert.True(t, effective("video_email"))

	// keys without a feature row still follow the static table
	wl := f.principal(f.profile("wl@example.com", access.RoleWLUser, access.TierPtr(access.TierWhitelabel)))
	d, err := f.access.CheckFeature(f.ctx, wl, "wl_management")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestAccessService_EffectiveFeatureOf(t *testing.T) {
	f := newFixture(t)
	smart := f.profile("smart@example.com", access.RoleRegularUser, access.TierPtr(access.TierSmartCRM))
	f.override(smart, "video_email", true, nil)

	ef, err := f.access.EffectiveFeatureOf(f.ctx, smart.Id, "Video_Email")
	require.NoError(t, err)
	require.NotNil(t, ef)
	assert.True(t, ef.Enabled)
	assert.Equal(t, access.SourceOverride, ef.Source)

	ef, err = f.access.EffectiveFeatureOf(f.ctx, newId(), "video_email")
	require.NoError(t, err)
	assert.Nil(t, ef)
}
