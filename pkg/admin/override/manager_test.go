package override_test

import (
	"context"
	"testing"
	"time"

	"crm-access-be/internal/dto"
	"crm-access-be/internal/entity"
	"crm-access-be/internal/repository/unitofwork"
	"crm-access-be/internal/testutil"
	"crm-access-be/pkg/access"
	"crm-access-be/pkg/admin"
	"crm-access-be/pkg/admin/override"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (context.Context, unitofwork.UnitOfWork, *entity.Profile) {
	t.Helper()
	ctx := context.Background()
	uow := unitofwork.NewUnitOfWork(testutil.NewDB(t))
	require.NoError(t, uow.FeatureRepository().Create(ctx, &entity.Feature{Key: "video_email", Name: "Video Email", IsEnabled: true}))
	p := &entity.Profile{Email: "rep@example.com", Role: access.RoleRegularUser, ProductTier: access.TierPtr(access.TierSmartCRM), Status: access.StatusActive}
	require.NoError(t, uow.ProfileRepository().Create(ctx, p))
	return ctx, uow, p
}

func TestManager_Grant(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx, uow, p := setup(t)
	m := override.NewManager(func() time.Time { return now })
	admin1 := uuid.New()

	past := now.Add(-time.Minute)
	exact := now
	future := now.Add(72 * time.Hour)

	tests := []struct {
		name    string
		profile uuid.UUID
		req     dto.GrantOverrideRequest
		wantErr error
	}{
		{"expiry in the past", p.Id, dto.GrantOverrideRequest{FeatureKey: "video_email", ExpiresAt: &past}, admin.ErrInvalidExpiry},
		{"expiry exactly now", p.Id, dto.GrantOverrideRequest{FeatureKey: "video_email", ExpiresAt: &exact}, admin.ErrInvalidExpiry},
		{"unknown feature", p.Id, dto.GrantOverrideRequest{FeatureKey: "teleport"}, admin.ErrFeatureNotFound},
		{"unknown profile", uuid.New(), dto.GrantOverrideRequest{FeatureKey: "video_email"}, admin.ErrProfileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Grant(ctx, uow, tt.profile, &admin1, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	o, err := m.Grant(ctx, uow, p.Id, &admin1, dto.GrantOverrideRequest{FeatureKey: "Video_Email", ExpiresAt: &future})
	require.NoError(t, err)
	assert.True(t, o.Enabled)
	assert.True(t, o.Active(now))
	require.NotNil(t, o.Feature)
	assert.Equal(t, "video_email", o.Feature.Key)

	disabled := false
	o2, err := m.Grant(ctx, uow, p.Id, &admin1, dto.GrantOverrideRequest{FeatureKey: "video_email", Enabled: &disabled})
	require.NoError(t, err)
	assert.Equal(t, o.Id, o2.Id)

	list, err := m.List(ctx, uow, p.Id)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Enabled)
	assert.Nil(t, list[0].ExpiresAt)
}

func TestManager_Revoke(t *testing.T) {
	ctx, uow, p := setup(t)
	m := override.NewManager(nil)

	_, err := m.Revoke(ctx, uow, p.Id, "video_email")
	assert.ErrorIs(t, err, admin.ErrOverrideNotFound)

	_, err = m.Grant(ctx, uow, p.Id, nil, dto.GrantOverrideRequest{FeatureKey: "video_email"})
	require.NoError(t, err)

	revoked, err := m.Revoke(ctx, uow, p.Id, "video_email")
	require.NoError(t, err)
	assert.True(t, revoked.Enabled)

	list, err := m.List(ctx, uow, p.Id)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = m.Revoke(ctx, uow, p.Id, "missing")
	assert.ErrorIs(t, err, admin.ErrFeatureNotFound)
}
