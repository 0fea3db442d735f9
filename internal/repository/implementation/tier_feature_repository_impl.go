package implementation

import (
	"context"
	"errors"

	"crm-access-be/internal/entity"
	"crm-access-be/internal/mapper"
	"crm-access-be/internal/model"
	"crm-access-be/internal/repository/contract"
	"crm-access-be/internal/repository/specification"
	"crm-access-be/pkg/access"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TierFeatureRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.TierFeatureMapper
}

func NewTierFeatureRepository(db *gorm.DB) contract.TierFeatureRepository {
	return &TierFeatureRepositoryImpl{
		db:     db,
		mapper: mapper.NewTierFeatureMapper(),
	}
}

func (r *TierFeatureRepositoryImpl) Upsert(ctx context.Context, row *entity.TierFeature) error {
	m := r.mapper.ToModel(row)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_tier"}, {Name: "feature_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"included_by_default"}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	row.CreatedAt = m.CreatedAt
	return nil
}

func (r *TierFeatureRepositoryImpl) Delete(ctx context.Context, tier access.ProductTier, featureId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("product_tier = ? AND feature_id = ?", string(tier), featureId).
		Delete(&model.TierFeature{}).Error
}

func (r *TierFeatureRepositoryImpl) DeleteByFeature(ctx context.Context, featureId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("feature_id = ?", featureId).Delete(&model.TierFeature{}).Error
}

func (r *TierFeatureRepositoryImpl) FindOne(ctx context.Context, tier access.ProductTier, featureId uuid.UUID) (*entity.TierFeature, error) {
	var m model.TierFeature
	err := r.db.WithContext(ctx).Preload("Feature").
		Where("product_tier = ? AND feature_id = ?", string(tier), featureId).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *TierFeatureRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TierFeature, error) {
	var models []*model.TierFeature
	query := applySpecifications(r.db.WithContext(ctx).Preload("Feature"), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
