// FILE: internal/mapper/feature_mapper.go
package mapper

import (
	"crm-access-be/internal/entity"
	"crm-access-be/internal/model"
)

type FeatureMapper struct{}

func NewFeatureMapper() *FeatureMapper {
	return &FeatureMapper{}
}

func (m *FeatureMapper) ToEntity(mdl *model.Feature) *entity.Feature {
	if mdl == nil {
		return nil
	}
	return &entity.Feature{
		Id:          mdl.Id,
		Key:         mdl.Key,
		Name:        mdl.Name,
		Description: mdl.Description,
		Category:    mdl.Category,
		ParentId:    mdl.ParentId,
		IsEnabled:   mdl.IsEnabled,
		SortOrder:   mdl.SortOrder,
		CreatedAt:   mdl.CreatedAt,
		UpdatedAt:   mdl.UpdatedAt,
	}
}

func (m *FeatureMapper) ToModel(e *entity.Feature) *model.Feature {
	if e == nil {
		return nil
	}
	return &model.Feature{
		Id:          e.Id,
		Key:         e.Key,
		Name:        e.Name,
		Description: e.Description,
		Category:    e.Category,
		ParentId:    e.ParentId,
		IsEnabled:   e.IsEnabled,
		SortOrder:   e.SortOrder,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (m *FeatureMapper) ToEntities(models []*model.Feature) []*entity.Feature {
	entities := make([]*entity.Feature, 0, len(models))
	for _, mdl := range models {
		entities = append(entities, m.ToEntity(mdl))
	}
	return entities
}
