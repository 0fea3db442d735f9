// Package access holds the role / product-tier / feature decision logic.
//
// Everything in this package is pure: callers fetch the principal and the
// catalog data first, then ask the Engine for a decision. Nothing here talks
// to the database or the network.
package access

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleWLUser      Role = "wl_user"
	RoleRegularUser Role = "regular_user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleWLUser, RoleRegularUser:
		return true
	}
	return false
}

// ProductTier is a purchased plan.
type ProductTier string

const (
	TierSmartCRM         ProductTier = "smartcrm"
	TierSalesMaximizer   ProductTier = "sales_maximizer"
	TierAIBoostUnlimited ProductTier = "ai_boost_unlimited"
	TierAICommunication  ProductTier = "ai_communication"
	TierWhitelabel       ProductTier = "whitelabel"

	// TierDevAllAccess is the internal tooling escape hatch. It passes every
	// catalog lookup and must never reach a production principal.
	TierDevAllAccess ProductTier = "dev_all_access"
)

// TierOrder is the declared precedence order, lowest paid tier first.
var TierOrder = []ProductTier{
	TierSmartCRM,
	TierSalesMaximizer,
	TierAIBoostUnlimited,
	TierAICommunication,
	TierWhitelabel,
}

// LowestPaidTier is used for upgrade prompts when no tier covers a feature.
const LowestPaidTier = TierSmartCRM

// Rank returns the position of t in TierOrder, or -1.
func (t ProductTier) Rank() int {
	for i, candidate := range TierOrder {
		if candidate == t {
			return i
		}
	}
	return -1
}

func (t ProductTier) Valid() bool {
	return t == TierDevAllAccess || t.Rank() >= 0
}

// ParseTier parses a tier name. An empty string means "no tier" and returns nil.
func ParseTier(s string) (*ProductTier, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return nil, nil
	}
	tier := ProductTier(s)
	if !tier.Valid() {
		return nil, fmt.Errorf("unknown product tier %q", s)
	}
	return &tier, nil
}

// TierPtr is a small helper for literals in tests and seeders.
func TierPtr(t ProductTier) *ProductTier {
	return &t
}

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// Principal is the authenticated caller as supplied by the identity provider.
type Principal struct {
	Id          uuid.UUID
	Email       string
	Role        Role
	ProductTier *ProductTier
	Permissions []string
	Status      Status
}

func (p *Principal) IsSuperAdmin() bool {
	return p != nil && p.Role == RoleSuperAdmin
}

// HasTier reports whether the principal has purchased any plan.
func (p *Principal) HasTier() bool {
	return p != nil && p.ProductTier != nil && *p.ProductTier != ""
}

// Tier returns the tier value or "" when there is none.
func (p *Principal) Tier() ProductTier {
	if !p.HasTier() {
		return ""
	}
	return *p.ProductTier
}

func (p *Principal) HasPermission(permission string) bool {
	if p == nil {
		return false
	}
	for _, granted := range p.Permissions {
		if granted == permission {
			return true
		}
	}
	return false
}

// ResourceKey is the single canonical identifier for anything access can be
// checked against: catalog feature keys and page-level resources alike.
type ResourceKey string

// NormalizeKey trims and lower-cases a raw key from a request or route.
func NormalizeKey(raw string) ResourceKey {
	return ResourceKey(strings.ToLower(strings.TrimSpace(raw)))
}

func (k ResourceKey) String() string {
	return string(k)
}
