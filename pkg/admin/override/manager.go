package override

import (
	"context"
	"time"

	"crm-access-be/internal/dto"
	"crm-access-be/internal/entity"
	"crm-access-be/internal/repository/specification"
	"crm-access-be/internal/repository/unitofwork"
	"crm-access-be/pkg/access"
	"crm-access-be/pkg/admin"

	"github.com/google/uuid"
)

// Manager grants and revokes per-profile feature overrides.
type Manager struct {
	now func() time.Time
}

func NewManager(now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{now: now}
}

// List returns every override of a profile, expired ones included.
func (m *Manager) List(ctx context.Context, uow unitofwork.UnitOfWork, profileId uuid.UUID) ([]*entity.UserFeatureOverride, error) {
	if _, err := m.profile(ctx, uow, profileId); err != nil {
		return nil, err
	}
	return uow.OverrideRepository().FindAll(ctx, specification.ByProfileID{ProfileID: profileId})
}

// Grant upserts the override for (profile, feature).
func (m *Manager) Grant(ctx context.Context, uow unitofwork.UnitOfWork, profileId uuid.UUID, grantedBy *uuid.UUID, req dto.GrantOverrideRequest) (*entity.UserFeatureOverride, error) {
	now := m.now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, admin.ErrInvalidExpiry
	}
	if _, err := m.profile(ctx, uow, profileId); err != nil {
		return nil, err
	}

	feature, err := uow.FeatureRepository().FindByKey(ctx, access.NormalizeKey(req.FeatureKey).String())
	if err != nil {
		return nil, err
	}
	if feature == nil {
		return nil, admin.ErrFeatureNotFound
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		t := req.ExpiresAt.UTC()
		expiresAt = &t
	}

	o := &entity.UserFeatureOverride{
		ProfileId: profileId,
		FeatureId: feature.Id,
		Enabled:   enabled,
		ExpiresAt: expiresAt,
		GrantedBy: grantedBy,
		GrantedAt: now.UTC(),
	}
	if err := uow.OverrideRepository().Upsert(ctx, o); err != nil {
		return nil, err
	}
	if o.Feature == nil {
		o.Feature = feature
	}
	return o, nil
}

func (m *Manager) Revoke(ctx context.Context, uow unitofwork.UnitOfWork, profileId uuid.UUID, featureKey string) (*entity.UserFeatureOverride, error) {
	feature, err := uow.FeatureRepository().FindByKey(ctx, access.NormalizeKey(featureKey).String())
	if err != nil {
		return nil, err
	}
	if feature == nil {
		return nil, admin.ErrFeatureNotFound
	}

	existing, err := uow.OverrideRepository().FindOne(ctx,
		specification.ByProfileID{ProfileID: profileId},
		specification.ByFeatureID{FeatureID: feature.Id},
	)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, admin.ErrOverrideNotFound
	}
	if err := uow.OverrideRepository().Delete(ctx, profileId, feature.Id); err != nil {
		return nil, err
	}
	return existing, nil
}

func (m *Manager) profile(ctx context.Context, uow unitofwork.UnitOfWork, id uuid.UUID) (*entity.Profile, error) {
	p, err := uow.ProfileRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, admin.ErrProfileNotFound
	}
	return p, nil
}
