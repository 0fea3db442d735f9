package mapper

import (
	"sort"
	"time"

	"crm-access-be/internal/dto"
	"crm-access-be/internal/entity"
	"crm-access-be/pkg/access"

	"github.com/google/uuid"
)

func FeatureToResponse(f *entity.Feature) *dto.FeatureResponse {
	if f == nil {
		return nil
	}
	return &dto.FeatureResponse{
		Id:          f.Id,
		Key:         f.Key,
		Name:        f.Name,
		Description: f.Description,
		Category:    f.Category,
		ParentId:    f.ParentId,
		IsEnabled:   f.IsEnabled,
		SortOrder:   f.SortOrder,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

func FeaturesToResponse(features []*entity.Feature) []*dto.FeatureResponse {
	res := make([]*dto.FeatureResponse, 0, len(features))
	for _, f := range features {
		res = append(res, FeatureToResponse(f))
	}
	return res
}

// FeaturesToTree nests features under their parents. Roots and siblings are
// ordered by sort_order then key; orphans whose parent is missing become roots.
func FeaturesToTree(features []*entity.Feature, tree *access.FeatureTree) []*dto.FeatureNode {
	nodes := make(map[uuid.UUID]*dto.FeatureNode, len(features))
	for _, f := range features {
		nodes[f.Id] = &dto.FeatureNode{
			FeatureResponse: *FeatureToResponse(f),
			Available:       tree.Available(access.NormalizeKey(f.Key)),
			Children:        []*dto.FeatureNode{},
		}
	}

	var roots []*dto.FeatureNode
	for _, f := range features {
		node := nodes[f.Id]
		if f.ParentId != nil {
			if parent, ok := nodes[*f.ParentId]; ok && *f.ParentId != f.Id {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sortNodes(roots)
	for _, n := range nodes {
		sortNodes(n.Children)
	}
	if roots == nil {
		roots = []*dto.FeatureNode{}
	}
	return roots
}

func sortNodes(nodes []*dto.FeatureNode) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].SortOrder != nodes[j].SortOrder {
			return nodes[i].SortOrder < nodes[j].SortOrder
		}
		return nodes[i].Key < nodes[j].Key
	})
}

func TierFeatureToResponse(row *entity.TierFeature) *dto.TierFeatureResponse {
	if row == nil {
		return nil
	}
	return &dto.TierFeatureResponse{
		ProductTier:       string(row.ProductTier),
		FeatureId:         row.FeatureId,
		IncludedByDefault: row.IncludedByDefault,
		Feature:           FeatureToResponse(row.Feature),
	}
}

func TierFeaturesToResponse(rows []*entity.TierFeature) []*dto.TierFeatureResponse {
	res := make([]*dto.TierFeatureResponse, 0, len(rows))
	for _, row := range rows {
		res = append(res, TierFeatureToResponse(row))
	}
	return res
}

func ProfileToResponse(p *entity.Profile) *dto.ProfileResponse {
	if p == nil {
		return nil
	}
	var tier *string
	if p.ProductTier != nil {
		t := string(*p.ProductTier)
		tier = &t
	}
	permissions := p.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	return &dto.ProfileResponse{
		Id:          p.Id,
		Email:       p.Email,
		FullName:    p.FullName,
		Role:        string(p.Role),
		ProductTier: tier,
		Permissions: permissions,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func ProfilesToResponse(profiles []*entity.Profile) []*dto.ProfileResponse {
	res := make([]*dto.ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		res = append(res, ProfileToResponse(p))
	}
	return res
}

func OverrideToResponse(o *entity.UserFeatureOverride, now time.Time) *dto.OverrideResponse {
	if o == nil {
		return nil
	}
	res := &dto.OverrideResponse{
		Id:        o.Id,
		ProfileId: o.ProfileId,
		FeatureId: o.FeatureId,
		Enabled:   o.Enabled,
		ExpiresAt: o.ExpiresAt,
		GrantedBy: o.GrantedBy,
		GrantedAt: o.GrantedAt,
		Active:    o.Active(now),
	}
	if o.Feature != nil {
		res.FeatureKey = o.Feature.Key
	}
	return res
}

func OverridesToResponse(overrides []*entity.UserFeatureOverride, now time.Time) []*dto.OverrideResponse {
	res := make([]*dto.OverrideResponse, 0, len(overrides))
	for _, o := range overrides {
		res = append(res, OverrideToResponse(o, now))
	}
	return res
}

func DriftToResponse(version string, drift []access.Drift) *dto.DriftResponse {
	entries := make([]dto.DriftEntry, 0, len(drift))
	for _, d := range drift {
		entries = append(entries, dto.DriftEntry{
			FeatureKey: string(d.FeatureKey),
			Tier:       string(d.Tier),
			Kind:       string(d.Kind),
		})
	}
	return &dto.DriftResponse{CatalogVersion: version, Drift: entries}
}
