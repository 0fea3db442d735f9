package access

import "time"

// Source says which layer produced an effective feature state.
type Source string

const (
	SourceTier     Source = "tier"
	SourceOverride Source = "override"
)

// Override is the part of a per-user override the resolver needs.
type Override struct {
	Enabled   bool
	ExpiresAt *time.Time
}

// Active reports whether the override still applies at now. An override whose
// expiry is not strictly after now is inert.
func (o *Override) Active(now time.Time) bool {
	if o == nil {
		return false
	}
	return o.ExpiresAt == nil || o.ExpiresAt.After(now)
}

// EffectiveFeature is the resolved state of one feature for one principal.
// It is computed on read and never stored.
type EffectiveFeature struct {
	FeatureKey ResourceKey `json:"feature_key"`
	Enabled    bool        `json:"enabled"`
	Source     Source      `json:"source"`
	Reason     Reason      `json:"reason"`
	ExpiresAt  *time.Time  `json:"expires_at,omitempty"`
}

// EffectiveInput carries the already-fetched data for one resolution.
type EffectiveInput struct {
	FeatureKey ResourceKey

	// Known is false when the feature is not in the catalog at all.
	Known bool
	// Available is false when the feature or one of its ancestors is disabled.
	Available bool
	// TierDefault is includedByDefault for the principal's tier (false without a tier or row).
	TierDefault bool

	Override *Override
	Now      time.Time
}

// ResolveEffective layers an override on top of the tier default.
func ResolveEffective(in EffectiveInput) EffectiveFeature {
	out := EffectiveFeature{FeatureKey: in.FeatureKey, Source: SourceTier}

	switch {
	case !in.Known:
		out.Reason = ReasonUnknownResource
	case !in.Available:
		out.Reason = ReasonFeatureDisabled
	case in.Override.Active(in.Now):
		out.Enabled = in.Override.Enabled
		out.Source = SourceOverride
		out.Reason = ReasonOverride
		out.ExpiresAt = in.Override.ExpiresAt
	default:
		out.Enabled = in.TierDefault
		out.Reason = ReasonTierDefault
	}
	return out
}
