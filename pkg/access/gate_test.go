package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateGate(t *testing.T) {
	catalog := DefaultCatalog()
	deny := func(ResourceKey) bool { return false }
	allow := func(ResourceKey) bool { return true }

	tests := []struct {
		name string
		in   GateInput
		want GateResult
	}{
		{
			name: "no key renders children",
			in:   GateInput{Check: deny},
			want: GateResult{Render: RenderChildren},
		},
		{
			name: "allowed renders children",
			in:   GateInput{FeatureKey: "contacts", Check: allow, Mode: GateModeHidden},
			want: GateResult{Render: RenderChildren, FeatureKey: "contacts"},
		},
		{
			name: "hidden renders nothing",
			in:   GateInput{FeatureKey: "video_email", Check: deny, Mode: GateModeHidden},
			want: GateResult{Render: RenderNothing, FeatureKey: "video_email"},
		},
		{
			name: "custom with fallback",
			in:   GateInput{FeatureKey: "video_email", Check: deny, Mode: GateModeCustom, HasFallback: true},
			want: GateResult{Render: RenderFallback, FeatureKey: "video_email"},
		},
		{
			name: "custom without fallback",
			in:   GateInput{FeatureKey: "video_email", Check: deny, Mode: GateModeCustom},
			want: GateResult{Render: RenderNothing, FeatureKey: "video_email"},
		},
		{
			name: "upgrade prompt names the minimum tier",
			in:   GateInput{FeatureKey: "video_email", Check: deny, Mode: GateModeUpgrade, Catalog: catalog},
			want: GateResult{Render: RenderUpgradePrompt, FeatureKey: "video_email", RequiredTier: TierAICommunication, FeatureName: "Video Email"},
		},
		{
			name: "nil check denies",
			in:   GateInput{FeatureKey: "contacts", Catalog: catalog},
			want: GateResult{Render: RenderUpgradePrompt, FeatureKey: "contacts", RequiredTier: TierSmartCRM, FeatureName: "Contacts"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateGate(tt.in))
		})
	}
}

func TestParseGateMode(t *testing.T) {
	assert.Equal(t, GateModeHidden, ParseGateMode("hidden"))
	assert.Equal(t, GateModeCustom, ParseGateMode("custom"))
	assert.Equal(t, GateModeUpgrade, ParseGateMode(""))
	assert.Equal(t, GateModeUpgrade, ParseGateMode("bogus"))
}
