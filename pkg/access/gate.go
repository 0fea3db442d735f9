package access

// GateMode selects what a gate shows when access is denied.
type GateMode string

const (
	GateModeUpgrade GateMode = "upgrade"
	GateModeHidden  GateMode = "hidden"
	GateModeCustom  GateMode = "custom"
)

// ParseGateMode falls back to upgrade for empty or unrecognized values.
func ParseGateMode(s string) GateMode {
	switch GateMode(s) {
	case GateModeHidden, GateModeCustom:
		return GateMode(s)
	}
	return GateModeUpgrade
}

type Render string

const (
	RenderChildren      Render = "render_children"
	RenderNothing       Render = "render_nothing"
	RenderFallback      Render = "render_fallback"
	RenderUpgradePrompt Render = "render_upgrade_prompt"
)

// GateInput is everything a gate needs. Check is the caller's access check;
// the gate never decides access on its own.
type GateInput struct {
	FeatureKey  ResourceKey
	Mode        GateMode
	HasFallback bool
	Check       func(ResourceKey) bool
	Catalog     *Catalog
}

// GateResult tells the UI what to render. RequiredTier and FeatureName are
// only set for upgrade prompts.
type GateResult struct {
	Render       Render      `json:"render"`
	FeatureKey   ResourceKey `json:"feature_key,omitempty"`
	RequiredTier ProductTier `json:"required_tier,omitempty"`
	FeatureName  string      `json:"feature_name,omitempty"`
}

// EvaluateGate is advisory only; the server re-validates on every request.
func EvaluateGate(in GateInput) GateResult {
	if in.FeatureKey == "" {
		return GateResult{Render: RenderChildren}
	}
	if in.Check != nil && in.Check(in.FeatureKey) {
		return GateResult{Render: RenderChildren, FeatureKey: in.FeatureKey}
	}

	switch in.Mode {
	case GateModeHidden:
		return GateResult{Render: RenderNothing, FeatureKey: in.FeatureKey}
	case GateModeCustom:
		if in.HasFallback {
			return GateResult{Render: RenderFallback, FeatureKey: in.FeatureKey}
		}
		return GateResult{Render: RenderNothing, FeatureKey: in.FeatureKey}
	default:
		return GateResult{
			Render:       RenderUpgradePrompt,
			FeatureKey:   in.FeatureKey,
			RequiredTier: in.Catalog.MinimumTier(in.FeatureKey),
			FeatureName:  in.Catalog.DisplayName(in.FeatureKey),
		}
	}
}
