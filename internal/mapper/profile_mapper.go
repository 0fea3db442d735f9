package mapper

import (
	"crm-access-be/internal/entity"
	"crm-access-be/internal/model"
	"crm-access-be/pkg/access"
)

type ProfileMapper struct{}

func NewProfileMapper() *ProfileMapper {
	return &ProfileMapper{}
}

func (m *ProfileMapper) ToEntity(mdl *model.Profile) *entity.Profile {
	if mdl == nil {
		return nil
	}
	var tier *access.ProductTier
	if mdl.ProductTier != nil && *mdl.ProductTier != "" {
		tier = access.TierPtr(access.ProductTier(*mdl.ProductTier))
	}
	return &entity.Profile{
		Id:          mdl.Id,
		Email:       mdl.Email,
		FullName:    mdl.FullName,
		Role:        access.Role(mdl.Role),
		ProductTier: tier,
		Permissions: append([]string(nil), mdl.Permissions...),
		Status:      access.Status(mdl.Status),
		CreatedAt:   mdl.CreatedAt,
		UpdatedAt:   mdl.UpdatedAt,
	}
}

func (m *ProfileMapper) ToModel(e *entity.Profile) *model.Profile {
	if e == nil {
		return nil
	}
	var tier *string
	if e.ProductTier != nil {
		s := string(*e.ProductTier)
		tier = &s
	}
	return &model.Profile{
		Id:          e.Id,
		Email:       e.Email,
		FullName:    e.FullName,
		Role:        string(e.Role),
		ProductTier: tier,
		Permissions: append([]string(nil), e.Permissions...),
		Status:      string(e.Status),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (m *ProfileMapper) ToEntities(models []*model.Profile) []*entity.Profile {
	entities := make([]*entity.Profile, 0, len(models))
	for _, mdl := range models {
		entities = append(entities, m.ToEntity(mdl))
	}
	return entities
}

// ToPrincipal is the view the decision engine works on.
func (m *ProfileMapper) ToPrincipal(e *entity.Profile) *access.Principal {
	if e == nil {
		return nil
	}
	return &access.Principal{
		Id:          e.Id,
		Email:       e.Email,
		Role:        e.Role,
		ProductTier: e.ProductTier,
		Permissions: append([]string(nil), e.Permissions...),
		Status:      e.Status,
	}
}
