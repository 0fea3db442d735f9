package contract

import (
	"context"

	"crm-access-be/internal/entity"
	"crm-access-be/internal/repository/specification"
	"crm-access-be/pkg/access"

	"github.com/google/uuid"
)

type TierFeatureRepository interface {
	// Upsert inserts or replaces the (tier, feature) row.
	Upsert(ctx context.Context, row *entity.TierFeature) error
	Delete(ctx context.Context, tier access.ProductTier, featureId uuid.UUID) error
	DeleteByFeature(ctx context.Context, featureId uuid.UUID) error
	FindOne(ctx context.Context, tier access.ProductTier, featureId uuid.UUID) (*entity.TierFeature, error)
	// FindAll preloads Feature on every row.
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TierFeature, error)
}
