package implementation

import (
	"context"
	"errors"

	"crm-access-be/internal/entity"
	"crm-access-be/internal/mapper"
	"crm-access-be/internal/model"
	"crm-access-be/internal/repository/contract"
	"crm-access-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OverrideRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.OverrideMapper
}

func NewOverrideRepository(db *gorm.DB) contract.OverrideRepository {
	return &OverrideRepositoryImpl{
		db:     db,
		mapper: mapper.NewOverrideMapper(),
	}
}

func (r *OverrideRepositoryImpl) Upsert(ctx context.Context, override *entity.UserFeatureOverride) error {
	m := r.mapper.ToModel(override)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "profile_id"}, {Name: "feature_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "expires_at", "granted_by", "granted_at", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return err
	}

	// On conflict the surviving row keeps its original id.
	stored, err := r.FindOne(ctx, specification.ByProfileID{ProfileID: override.ProfileId}, specification.ByFeatureID{FeatureID: override.FeatureId})
	if err != nil {
		return err
	}
	if stored != nil {
		*override = *stored
	}
	return nil
}

func (r *OverrideRepositoryImpl) Delete(ctx context.Context, profileId, featureId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("profile_id = ? AND feature_id = ?", profileId, featureId).
		Delete(&model.UserFeatureOverride{}).Error
}

func (r *OverrideRepositoryImpl) DeleteByFeature(ctx context.Context, featureId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("feature_id = ?", featureId).Delete(&model.UserFeatureOverride{}).Error
}

func (r *OverrideRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserFeatureOverride, error) {
	var m model.UserFeatureOverride
	query := applySpecifications(r.db.WithContext(ctx).Preload("Feature"), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *OverrideRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.UserFeatureOverride, error) {
	var models []*model.UserFeatureOverride
	query := applySpecifications(r.db.WithContext(ctx).Preload("Feature").Order("granted_at DESC"), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
