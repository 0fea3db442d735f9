package principal

import (
	"context"
	"strings"

	"crm-access-be/internal/dto"
	"crm-access-be/internal/entity"
	"crm-access-be/internal/pkg/logger"
	"crm-access-be/internal/repository/specification"
	"crm-access-be/internal/repository/unitofwork"
	"crm-access-be/pkg/access"
	"crm-access-be/pkg/admin"

	"github.com/google/uuid"
)

// Manager handles role, tier and status changes of principals.
type Manager struct {
	logger logger.ILogger
}

func NewManager(logger logger.ILogger) *Manager {
	return &Manager{logger: logger}
}

// AccessChange describes what UpdateAccess did.
type AccessChange struct {
	Before  entity.Profile
	After   *entity.Profile
	Changed bool
}

func (m *Manager) Get(ctx context.Context, uow unitofwork.UnitOfWork, id uuid.UUID) (*entity.Profile, error) {
	p, err := uow.ProfileRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, admin.ErrProfileNotFound
	}
	return p, nil
}

func (m *Manager) List(ctx context.Context, uow unitofwork.UnitOfWork, q dto.ProfileListQuery) ([]*entity.Profile, int64, error) {
	var specs []specification.Specification
	if q.Role != "" {
		specs = append(specs, specification.ByRole{Role: q.Role})
	}
	if q.Status != "" {
		specs = append(specs, specification.ByStatus{Status: q.Status})
	}
	if q.ProductTier != "" {
		tier := q.ProductTier
		if tier == "none" {
			tier = ""
		}
		specs = append(specs, specification.ByProductTier{Tier: tier})
	}

	total, err := uow.ProfileRepository().Count(ctx, specs...)
	if err != nil {
		return nil, 0, err
	}

	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	specs = append(specs, specification.Pagination{Limit: limit, Offset: (page - 1) * limit})

	profiles, err := uow.ProfileRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

// UpdateAccess applies a role/tier/status patch. Profiles are never deleted;
// deactivation goes through Status.
func (m *Manager) UpdateAccess(ctx context.Context, uow unitofwork.UnitOfWork, id uuid.UUID, req dto.UpdateAccessRequest) (*AccessChange, error) {
	p, err := m.Get(ctx, uow, id)
	if err != nil {
		return nil, err
	}
	change := &AccessChange{Before: *p}

	if req.Role != nil {
		role := access.Role(strings.TrimSpace(*req.Role))
		if !role.Valid() {
			return nil, admin.ErrInvalidRole
		}
		p.Role = role
	}
	if req.ProductTier != nil {
		tier, err := access.ParseTier(*req.ProductTier)
		if err != nil {
			return nil, admin.ErrInvalidTier
		}
		p.ProductTier = tier
	}
	if req.Status != nil {
		status := access.Status(strings.TrimSpace(*req.Status))
		if !status.Valid() {
			return nil, admin.ErrInvalidStatus
		}
		p.Status = status
	}

	change.After = p
	change.Changed = !sameAccess(&change.Before, p)
	if !change.Changed {
		return change, nil
	}

	if err := uow.ProfileRepository().Update(ctx, p); err != nil {
		return nil, err
	}
	m.logger.Info("ADMIN", "Principal access updated", map[string]interface{}{
		"profile_id":  id.String(),
		"role_before": string(change.Before.Role),
		"role_after":  string(p.Role),
		"tier_before": tierString(change.Before.ProductTier),
		"tier_after":  tierString(p.ProductTier),
		"status":      string(p.Status),
	})
	return change, nil
}

func sameAccess(a, b *entity.Profile) bool {
	return a.Role == b.Role && a.Status == b.Status && tierString(a.ProductTier) == tierString(b.ProductTier)
}

func tierString(t *access.ProductTier) string {
	if t == nil {
		return ""
	}
	return string(*t)
}
