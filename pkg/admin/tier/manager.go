package tier

import (
	"context"

	"crm-access-be/internal/dto"
	"crm-access-be/internal/entity"
	"crm-access-be/internal/repository/specification"
	"crm-access-be/internal/repository/unitofwork"
	"crm-access-be/pkg/access"
	"crm-access-be/pkg/admin"

	"github.com/google/uuid"
)

// Manager maintains the authoritative tier -> feature catalog.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// ParseTier accepts any ranked tier plus dev_all_access.
func ParseTier(raw string) (access.ProductTier, error) {
	tier, err := access.ParseTier(raw)
	if err != nil || tier == nil {
		return "", admin.ErrInvalidTier
	}
	return *tier, nil
}

func (m *Manager) ListFeatures(ctx context.Context, uow unitofwork.UnitOfWork, tier access.ProductTier) ([]*entity.TierFeature, error) {
	return uow.TierFeatureRepository().FindAll(ctx, specification.ByTier{Tier: string(tier)})
}

// AllRows returns every tier row with its feature, for catalog rebuilds.
func (m *Manager) AllRows(ctx context.Context, uow unitofwork.UnitOfWork) ([]*entity.TierFeature, error) {
	return uow.TierFeatureRepository().FindAll(ctx)
}

func (m *Manager) AddFeature(ctx context.Context, uow unitofwork.UnitOfWork, tier access.ProductTier, req dto.TierFeatureRequest) (*entity.TierFeature, error) {
	var (
		feature *entity.Feature
		err     error
	)
	switch {
	case req.FeatureId != nil:
		feature, err = uow.FeatureRepository().FindOne(ctx, specification.ByID{ID: *req.FeatureId})
	case req.FeatureKey != "":
		feature, err = uow.FeatureRepository().FindByKey(ctx, access.NormalizeKey(req.FeatureKey).String())
	}
	if err != nil {
		return nil, err
	}
	if feature == nil {
		return nil, admin.ErrFeatureNotFound
	}

	included := true
	if req.IncludedByDefault != nil {
		included = *req.IncludedByDefault
	}

	row := &entity.TierFeature{
		ProductTier:       tier,
		FeatureId:         feature.Id,
		IncludedByDefault: included,
	}
	if err := uow.TierFeatureRepository().Upsert(ctx, row); err != nil {
		return nil, err
	}
	row.Feature = feature
	return row, nil
}

func (m *Manager) RemoveFeature(ctx context.Context, uow unitofwork.UnitOfWork, tier access.ProductTier, featureId uuid.UUID) (*entity.TierFeature, error) {
	row, err := uow.TierFeatureRepository().FindOne(ctx, tier, featureId)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, admin.ErrFeatureNotFound
	}
	if err := uow.TierFeatureRepository().Delete(ctx, tier, featureId); err != nil {
		return nil, err
	}
	return row, nil
}
