package access

import "strings"

// Config wires the tables an Engine decides against. Nil fields fall back to
// the defaults; pass an empty non-nil table to get an empty one.
type Config struct {
	Catalog *Catalog
	RoleACL RoleACL
	TierACL TierACL

	// BreakGlassEmails are accounts treated like super_admin.
	BreakGlassEmails []string
}

// Engine combines role, tier and the ACL tables into one decision. It is
// built once per process and injected; it holds no mutable state.
type Engine struct {
	catalog    *Catalog
	roles      map[ResourceKey]map[Role]struct{}
	tiers      map[ResourceKey]map[ProductTier]struct{}
	breakGlass map[string]struct{}
}

func NewEngine(cfg Config) *Engine {
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	roleACL := cfg.RoleACL
	if roleACL == nil {
		roleACL = DefaultRoleACL()
	}
	tierACL := cfg.TierACL
	if tierACL == nil {
		tierACL = DefaultTierACL(catalog)
	}

	e := &Engine{
		catalog:    catalog,
		roles:      make(map[ResourceKey]map[Role]struct{}, len(roleACL)),
		tiers:      make(map[ResourceKey]map[ProductTier]struct{}, len(tierACL)),
		breakGlass: make(map[string]struct{}, len(cfg.BreakGlassEmails)),
	}
	for key, roles := range roleACL {
		set := make(map[Role]struct{}, len(roles))
		for _, r := range roles {
			set[r] = struct{}{}
		}
		e.roles[key] = set
	}
	for key, tiers := range tierACL {
		set := make(map[ProductTier]struct{}, len(tiers))
		for _, t := range tiers {
			set[t] = struct{}{}
		}
		e.tiers[key] = set
	}
	for _, email := range cfg.BreakGlassEmails {
		email = normalizeEmail(email)
		if email != "" {
			e.breakGlass[email] = struct{}{}
		}
	}
	return e
}

// CanAccess decides whether p may reach key. Rules are evaluated in order and
// the first match wins:
//
//  1. no principal: deny
//  2. super_admin or break-glass account: allow (the only path without a tier)
//  3. no product tier: deny, whatever the role ACL says
//  4. role ACL lists the resource and not the role: deny
//  5. tier ACL lists the resource: allow iff the tier is listed (terminal)
//  6. role ACL allowed the role: allow
//  7. resource unknown to both tables: deny
func (e *Engine) CanAccess(p *Principal, key ResourceKey) Decision {
	if p == nil {
		return deny(ReasonAuthRequired)
	}
	if p.Role == RoleSuperAdmin {
		return allow(ReasonSuperAdmin)
	}
	if e.IsBreakGlass(p.Email) {
		return allow(ReasonBreakGlass)
	}
	if !p.HasTier() {
		return deny(ReasonNoProductTier)
	}
	if e == nil {
		return deny(ReasonUnknownResource)
	}

	roles, inRoleACL := e.roles[key]
	if inRoleACL {
		if _, ok := roles[p.Role]; !ok {
			return deny(ReasonRoleDenied)
		}
	}

	if tiers, ok := e.tiers[key]; ok {
		tier := p.Tier()
		if _, listed := tiers[tier]; listed || tier == TierDevAllAccess {
			return allow(ReasonTierAllowed)
		}
		return deny(ReasonFeatureDenied)
	}

	if inRoleACL {
		return allow(ReasonRoleAllowed)
	}
	return deny(ReasonUnknownResource)
}

// Allowed is CanAccess without the reason.
func (e *Engine) Allowed(p *Principal, key ResourceKey) bool {
	return e.CanAccess(p, key).Allowed
}

// HasFeatureAccess delegates to the catalog mirror.
func (e *Engine) HasFeatureAccess(tier *ProductTier, key ResourceKey) bool {
	if e == nil {
		return false
	}
	return e.catalog.HasFeatureAccess(tier, key)
}

func (e *Engine) Catalog() *Catalog {
	if e == nil {
		return nil
	}
	return e.catalog
}

func (e *Engine) IsBreakGlass(email string) bool {
	if e == nil {
		return false
	}
	_, ok := e.breakGlass[normalizeEmail(email)]
	return ok
}

// Unrestricted reports whether p skips every tier check: super_admin and
// break-glass accounts.
func (e *Engine) Unrestricted(p *Principal) bool {
	if p == nil {
		return false
	}
	return p.Role == RoleSuperAdmin || e.IsBreakGlass(p.Email)
}

// HasTierEntry reports whether key is decided by the tier ACL.
func (e *Engine) HasTierEntry(key ResourceKey) bool {
	if e == nil {
		return false
	}
	_, ok := e.tiers[key]
	return ok
}

// Known reports whether either ACL table mentions key.
func (e *Engine) Known(key ResourceKey) bool {
	if e == nil {
		return false
	}
	_, inRoles := e.roles[key]
	return inRoles || e.HasTierEntry(key)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
