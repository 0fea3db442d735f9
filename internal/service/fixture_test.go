package service

import (
	"context"
	"testing"
	"time"

	"crm-access-be/internal/cache"
	"crm-access-be/internal/entity"
	"crm-access-be/internal/metrics"
	"crm-access-be/internal/pkg/logger"
	"crm-access-be/internal/repository/unitofwork"
	"crm-access-be/internal/testutil"
	"crm-access-be/pkg/access"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	t        *testing.T
	ctx      context.Context
	factory  unitofwork.RepositoryFactory
	engine   *access.Engine
	access   IAccessService
	metrics  *metrics.AccessMetrics
	features map[string]*entity.Feature
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		factory:  unitofwork.NewRepositoryFactory(db),
		engine:   access.NewEngine(access.Config{BreakGlassEmails: []string{"OPS@example.com"}}),
		metrics:  metrics.NewAccessMetrics(prometheus.NewRegistry(), metrics.Config{}),
		features: map[string]*entity.Feature{},
	}
	f.access = NewAccessService(
		f.factory,
		f.engine,
		cache.NewDecisionCache(time.Minute),
		cache.NewEffectiveCache(time.Minute, nil),
		f.metrics,
		logger.NewNopLogger(),
		logger.NewNopLogger(),
		AccessServiceConfig{Now: func() time.Time { return fixedNow }},
	)

	f.feature("communication", nil, true)
	f.feature("video_email", f.features["communication"], true)
	f.feature("contacts", nil, true)
	f.feature("ai_tools", nil, false)
	f.feature("ai_assistant", f.features["ai_tools"], true)
	f.feature("beta_lab", nil, true)

	f.tierRow(access.TierSmartCRM, "contacts", true)
	f.tierRow(access.TierSmartCRM, "beta_lab", true)
	f.tierRow(access.TierAICommunication, "video_email", true)
	f.tierRow(access.TierAICommunication, "beta_lab", false)
	return f
}

func (f *fixture) uow() unitofwork.UnitOfWork {
	return f.factory.NewUnitOfWork(f.ctx)
}

func (f *fixture) feature(key string, parent *entity.Feature, enabled bool) *entity.Feature {
	feat := &entity.Feature{Key: key, Name: key, IsEnabled: enabled}
	if parent != nil {
		feat.ParentId = &parent.Id
	}
	require.NoError(f.t, f.uow().FeatureRepository().Create(f.ctx, feat))
	f.features[key] = feat
	return feat
}

func (f *fixture) tierRow(tier access.ProductTier, key string, included bool) {
	require.NoError(f.t, f.uow().TierFeatureRepository().Upsert(f.ctx, &entity.TierFeature{
		ProductTier:       tier,
		FeatureId:         f.features[key].Id,
		IncludedByDefault: included,
	}))
}

func (f *fixture) profile(email string, role access.Role, tier *access.ProductTier) *entity.Profile {
	p := &entity.Profile{Email: email, Role: role, ProductTier: tier, Status: access.StatusActive}
	require.NoError(f.t, f.uow().ProfileRepository().Create(f.ctx, p))
	return p
}

func (f *fixture) override(p *entity.Profile, key string, enabled bool, expiresAt *time.Time) {
	require.NoError(f.t, f.uow().OverrideRepository().Upsert(f.ctx, &entity.UserFeatureOverride{
		ProfileId: p.Id,
		FeatureId: f.features[key].Id,
		Enabled:   enabled,
		ExpiresAt: expiresAt,
		GrantedAt: fixedNow.Add(-time.Hour),
	}))
}

func (f *fixture) principal(p *entity.Profile) *access.Principal {
	principal, err := f.access.ResolvePrincipal(f.ctx, p.Id, p.Email)
	require.NoError(f.t, err)
	require.NotNil(f.t, principal)
	return principal
}

func timePtr(t time.Time) *time.Time { return &t }

func newId() uuid.UUID { return uuid.New() }
