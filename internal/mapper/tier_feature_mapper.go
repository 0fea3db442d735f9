package mapper

import (
	"crm-access-be/internal/entity"
	"crm-access-be/internal/model"
	"crm-access-be/pkg/access"
)

type TierFeatureMapper struct {
	features *FeatureMapper
}

func NewTierFeatureMapper() *TierFeatureMapper {
	return &TierFeatureMapper{features: NewFeatureMapper()}
}

func (m *TierFeatureMapper) ToEntity(mdl *model.TierFeature) *entity.TierFeature {
	if mdl == nil {
		return nil
	}
	return &entity.TierFeature{
		ProductTier:       access.ProductTier(mdl.ProductTier),
		FeatureId:         mdl.FeatureId,
		IncludedByDefault: mdl.IncludedByDefault,
		Feature:           m.features.ToEntity(mdl.Feature),
		CreatedAt:         mdl.CreatedAt,
	}
}

func (m *TierFeatureMapper) ToModel(e *entity.TierFeature) *model.TierFeature {
	if e == nil {
		return nil
	}
	return &model.TierFeature{
		ProductTier:       string(e.ProductTier),
		FeatureId:         e.FeatureId,
		IncludedByDefault: e.IncludedByDefault,
		CreatedAt:         e.CreatedAt,
	}
}

func (m *TierFeatureMapper) ToEntities(models []*model.TierFeature) []*entity.TierFeature {
	entities := make([]*entity.TierFeature, 0, len(models))
	for _, mdl := range models {
		entities = append(entities, m.ToEntity(mdl))
	}
	return entities
}

// ToCatalogRows flattens rows for drift comparison. Rows without a loaded
// feature are skipped.
func (m *TierFeatureMapper) ToCatalogRows(rows []*entity.TierFeature) []access.CatalogRow {
	out := make([]access.CatalogRow, 0, len(rows))
	for _, r := range rows {
		if r.Feature == nil {
			continue
		}
		out = append(out, access.CatalogRow{
			Tier:              r.ProductTier,
			FeatureKey:        access.ResourceKey(r.Feature.Key),
			IncludedByDefault: r.IncludedByDefault,
		})
	}
	return out
}
