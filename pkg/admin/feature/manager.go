package feature

import (
	"context"
	"fmt"

	"crm-access-be/internal/dto"
	"crm-access-be/internal/entity"
	"crm-access-be/internal/repository/specification"
	"crm-access-be/internal/repository/unitofwork"
	"crm-access-be/pkg/access"
	"crm-access-be/pkg/admin"
	"crm-access-be/pkg/database"

	"github.com/google/uuid"
)

// Manager handles feature catalog operations
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) GetAll(ctx context.Context, uow unitofwork.UnitOfWork) ([]*entity.Feature, error) {
	return uow.FeatureRepository().FindAll(ctx)
}

func (m *Manager) Get(ctx context.Context, uow unitofwork.UnitOfWork, id uuid.UUID) (*entity.Feature, error) {
	feature, err := uow.FeatureRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if feature == nil {
		return nil, admin.ErrFeatureNotFound
	}
	return feature, nil
}

// Tree indexes every feature for availability and cycle checks.
func (m *Manager) Tree(ctx context.Context, uow unitofwork.UnitOfWork) (*access.FeatureTree, []*entity.Feature, error) {
	features, err := m.GetAll(ctx, uow)
	if err != nil {
		return nil, nil, err
	}
	return BuildTree(features), features, nil
}

func BuildTree(features []*entity.Feature) *access.FeatureTree {
	nodes := make([]access.TreeNode, 0, len(features))
	for _, f := range features {
		nodes = append(nodes, access.TreeNode{
			Id:        f.Id,
			Key:       access.NormalizeKey(f.Key),
			ParentId:  f.ParentId,
			IsEnabled: f.IsEnabled,
			SortOrder: f.SortOrder,
		})
	}
	return access.NewFeatureTree(nodes)
}

func (m *Manager) Create(ctx context.Context, uow unitofwork.UnitOfWork, req dto.CreateFeatureRequest) (*entity.Feature, error) {
	key := access.NormalizeKey(req.Key)
	if key == "" {
		return nil, fmt.Errorf("feature key is required")
	}

	existing, err := uow.FeatureRepository().FindByKey(ctx, key.String())
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", admin.ErrDuplicateKey, key)
	}

	if req.ParentId != nil {
		parent, err := uow.FeatureRepository().FindOne(ctx, specification.ByID{ID: *req.ParentId})
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, admin.ErrParentNotFound
		}
	}

	enabled := true
	if req.IsEnabled != nil {
		enabled = *req.IsEnabled
	}

	feature := &entity.Feature{
		Key:         key.String(),
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		ParentId:    req.ParentId,
		IsEnabled:   enabled,
		SortOrder:   req.SortOrder,
	}
	if err := uow.FeatureRepository().Create(ctx, feature); err != nil {
		// Lost a race with a concurrent create of the same key.
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", admin.ErrDuplicateKey, key)
		}
		return nil, err
	}
	return feature, nil
}

func (m *Manager) Update(ctx context.Context, uow unitofwork.UnitOfWork, id uuid.UUID, req dto.UpdateFeatureRequest) (*entity.Feature, error) {
	feature, err := m.Get(ctx, uow, id)
	if err != nil {
		return nil, err
	}

	if req.ClearParent {
		feature.ParentId = nil
	} else if req.ParentId != nil {
		tree, _, err := m.Tree(ctx, uow)
		if err != nil {
			return nil, err
		}
		if _, ok := tree.Node(*req.ParentId); !ok {
			return nil, admin.ErrParentNotFound
		}
		if tree.WouldCycle(id, *req.ParentId) {
			return nil, admin.ErrFeatureCycle
		}
		parentId := *req.ParentId
		feature.ParentId = &parentId
	}

	if req.Name != nil {
		feature.Name = *req.Name
	}
	if req.Description != nil {
		feature.Description = *req.Description
	}
	if req.Category != nil {
		feature.Category = *req.Category
	}
	if req.IsEnabled != nil {
		feature.IsEnabled = *req.IsEnabled
	}
	if req.SortOrder != nil {
		feature.SortOrder = *req.SortOrder
	}

	if err := uow.FeatureRepository().Update(ctx, feature); err != nil {
		return nil, err
	}
	return feature, nil
}

// Delete removes a leaf feature together with its tier rows and overrides.
// Run it inside a transaction.
func (m *Manager) Delete(ctx context.Context, uow unitofwork.UnitOfWork, id uuid.UUID) (*entity.Feature, error) {
	feature, err := m.Get(ctx, uow, id)
	if err != nil {
		return nil, err
	}

	children, err := uow.FeatureRepository().Count(ctx, specification.ByParent{ParentId: &id})
	if err != nil {
		return nil, err
	}
	if children > 0 {
		return nil, admin.ErrFeatureHasChildren
	}

	if err := uow.TierFeatureRepository().DeleteByFeature(ctx, id); err != nil {
		return nil, err
	}
	if err := uow.OverrideRepository().DeleteByFeature(ctx, id); err != nil {
		return nil, err
	}
	if err := uow.FeatureRepository().Delete(ctx, id); err != nil {
		return nil, err
	}
	return feature, nil
}
