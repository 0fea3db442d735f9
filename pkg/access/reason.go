package access

import "net/http"

// Reason explains a decision. Reasons double as the error taxonomy surfaced to
// clients (redirect reason codes, JSON error codes).
type Reason string

const (
	ReasonAuthRequired    Reason = "auth_required"
	ReasonSuperAdmin      Reason = "super_admin"
	ReasonBreakGlass      Reason = "break_glass"
	ReasonNoProductTier   Reason = "no_product_tier"
	ReasonRoleDenied      Reason = "role_denied"
	ReasonRoleAllowed     Reason = "role_allowed"
	ReasonTierAllowed     Reason = "tier_allowed"
	ReasonFeatureDenied   Reason = "feature_denied"
	ReasonUnknownResource Reason = "unknown_resource"
	ReasonFeatureDisabled Reason = "feature_disabled"
	ReasonOverride        Reason = "override"
	ReasonTierDefault     Reason = "tier_default"
)

// Terminal reports whether no later layer (overrides, catalog rows) may change
// a decision carrying this reason.
func (r Reason) Terminal() bool {
	switch r {
	case ReasonAuthRequired, ReasonSuperAdmin, ReasonBreakGlass, ReasonNoProductTier, ReasonRoleDenied:
		return true
	}
	return false
}

var reasonStatus = map[Reason]int{
	ReasonAuthRequired:    http.StatusUnauthorized,
	ReasonNoProductTier:   http.StatusPaymentRequired,
	ReasonRoleDenied:      http.StatusForbidden,
	ReasonFeatureDenied:   http.StatusForbidden,
	ReasonUnknownResource: http.StatusForbidden,
	ReasonFeatureDisabled: http.StatusForbidden,
}

// HTTPStatus maps a denial reason to a response status. Allow reasons map to 200.
func (r Reason) HTTPStatus() int {
	if status, ok := reasonStatus[r]; ok {
		return status
	}
	return http.StatusOK
}

// Decision is the result of a single access check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason"`
}

func allow(reason Reason) Decision {
	return Decision{Allowed: true, Reason: reason}
}

func deny(reason Reason) Decision {
	return Decision{Allowed: false, Reason: reason}
}
