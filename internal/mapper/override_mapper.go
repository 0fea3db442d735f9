package mapper

import (
	"crm-access-be/internal/entity"
	"crm-access-be/internal/model"
)

type OverrideMapper struct {
	features *FeatureMapper
}

func NewOverrideMapper() *OverrideMapper {
	return &OverrideMapper{features: NewFeatureMapper()}
}

func (m *OverrideMapper) ToEntity(mdl *model.UserFeatureOverride) *entity.UserFeatureOverride {
	if mdl == nil {
		return nil
	}
	return &entity.UserFeatureOverride{
		Id:        mdl.Id,
		ProfileId: mdl.ProfileId,
		FeatureId: mdl.FeatureId,
		Enabled:   mdl.Enabled,
		ExpiresAt: mdl.ExpiresAt,
		GrantedBy: mdl.GrantedBy,
		GrantedAt: mdl.GrantedAt,
		Feature:   m.features.ToEntity(mdl.Feature),
		UpdatedAt: mdl.UpdatedAt,
	}
}

func (m *OverrideMapper) ToModel(e *entity.UserFeatureOverride) *model.UserFeatureOverride {
	if e == nil {
		return nil
	}
	return &model.UserFeatureOverride{
		Id:        e.Id,
		ProfileId: e.ProfileId,
		FeatureId: e.FeatureId,
		Enabled:   e.Enabled,
		ExpiresAt: e.ExpiresAt,
		GrantedBy: e.GrantedBy,
		GrantedAt: e.GrantedAt,
	}
}

func (m *OverrideMapper) ToEntities(models []*model.UserFeatureOverride) []*entity.UserFeatureOverride {
	entities := make([]*entity.UserFeatureOverride, 0, len(models))
	for _, mdl := range models {
		entities = append(entities, m.ToEntity(mdl))
	}
	return entities
}
