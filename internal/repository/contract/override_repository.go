package contract

import (
	"context"

	"crm-access-be/internal/entity"
	"crm-access-be/internal/repository/specification"

	"github.com/google/uuid"
)

type OverrideRepository interface {
	// Upsert keeps at most one row per (profile, feature); a second grant
	// replaces the first.
	Upsert(ctx context.Context, override *entity.UserFeatureOverride) error
	Delete(ctx context.Context, profileId, featureId uuid.UUID) error
	DeleteByFeature(ctx context.Context, featureId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserFeatureOverride, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.UserFeatureOverride, error)
}
