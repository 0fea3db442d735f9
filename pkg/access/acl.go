package access

// Resources that exist only in the role ACL.
const (
	ResourceAdminDashboard ResourceKey = "admin_dashboard"
	ResourceAdminFeatures  ResourceKey = "admin_features"
	ResourceUserManagement ResourceKey = "user_management"
	ResourceWLManagement   ResourceKey = "wl_management"
)

// RoleACL maps a resource to the roles allowed to reach it. A resource listed
// here denies every other role, regardless of tier.
type RoleACL map[ResourceKey][]Role

// TierACL maps a resource to the product tiers that unlock it.
type TierACL map[ResourceKey][]ProductTier

func DefaultRoleACL() RoleACL {
	return RoleACL{
		ResourceAdminDashboard: {RoleSuperAdmin},
		ResourceAdminFeatures:  {RoleSuperAdmin},
		ResourceUserManagement: {RoleSuperAdmin},
		ResourceWLManagement:   {RoleSuperAdmin, RoleWLUser},
	}
}

// DefaultTierACL derives the tier table from the catalog and adds the
// page-level resources that are not catalog features.
func DefaultTierACL(c *Catalog) TierACL {
	acl := TierACL{
		ResourceWLManagement: {TierWhitelabel},
	}
	for _, key := range c.Keys() {
		acl[key] = c.AllowedTiers(key)
	}
	return acl
}
