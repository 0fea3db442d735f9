package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasFeatureAccess(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		name string
		tier *ProductTier
		key  ResourceKey
		want bool
	}{
		{"nil tier", nil, "contacts", false},
		{"empty tier", TierPtr(""), "contacts", false},
		{"dev_all_access", TierPtr(TierDevAllAccess), "custom_branding", true},
		{"dev_all_access unknown key", TierPtr(TierDevAllAccess), "anything_at_all", true},
		{"included", TierPtr(TierAICommunication), "video_email", true},
		{"not included", TierPtr(TierSmartCRM), "video_email", false},
		{"whitelabel only", TierPtr(TierWhitelabel), "custom_branding", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.HasFeatureAccess(tt.tier, tt.key))
		})
	}
}

func TestHasFeatureAccess_UnknownKeyDeniedForEveryTier(t *testing.T) {
	c := DefaultCatalog()
	for _, tier := range TierOrder {
		assert.False(t, c.HasFeatureAccess(TierPtr(tier), "not_a_feature"), "tier %s", tier)
	}
}

func TestMinimumTier(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, TierSmartCRM, c.MinimumTier("contacts"))
	assert.Equal(t, TierSalesMaximizer, c.MinimumTier("analytics"))
	assert.Equal(t, TierAICommunication, c.MinimumTier("video_email"))
	assert.Equal(t, TierWhitelabel, c.MinimumTier("custom_branding"))
	assert.Equal(t, LowestPaidTier, c.MinimumTier("unknown_feature"))

	var nilCatalog *Catalog
	assert.Equal(t, LowestPaidTier, nilCatalog.MinimumTier("contacts"))
}

func TestAllowedTiers_PrecedenceOrder(t *testing.T) {
	c := NewCatalog([]CatalogEntry{{Key: "x", Tiers: []ProductTier{TierWhitelabel, TierSmartCRM, TierAIBoostUnlimited}}})
	assert.Equal(t, []ProductTier{TierSmartCRM, TierAIBoostUnlimited, TierWhitelabel}, c.AllowedTiers("x"))
	assert.Empty(t, c.AllowedTiers("y"))
}

func TestDisplayName(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, "Video Email", c.DisplayName("video_email"))
	assert.Equal(t, "Bulk Export Tools", c.DisplayName("bulk_export_tools"))
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier(" SmartCRM ")
	require.NoError(t, err)
	require.NotNil(t, tier)
	assert.Equal(t, TierSmartCRM, *tier)

	tier, err = ParseTier("")
	require.NoError(t, err)
	assert.Nil(t, tier)

	_, err = ParseTier("platinum")
	assert.Error(t, err)
}

func TestCatalogDiff(t *testing.T) {
	c := NewCatalog([]CatalogEntry{
		{Key: "video_email", Tiers: []ProductTier{TierAICommunication, TierWhitelabel}},
		{Key: "contacts", Tiers: []ProductTier{TierSmartCRM}},
	})

	rows := []CatalogRow{
		{Tier: TierAICommunication, FeatureKey: "video_email", IncludedByDefault: true},
		{Tier: TierWhitelabel, FeatureKey: "video_email", IncludedByDefault: false},
		{Tier: TierSmartCRM, FeatureKey: "contacts", IncludedByDefault: true},
		{Tier: TierSmartCRM, FeatureKey: "video_email", IncludedByDefault: true},
		{Tier: TierDevAllAccess, FeatureKey: "contacts", IncludedByDefault: true},
	}

	drift := c.Diff(rows)
	assert.Equal(t, []Drift{
		{FeatureKey: "video_email", Tier: TierSmartCRM, Kind: DriftMissingInMirror},
		{FeatureKey: "video_email", Tier: TierWhitelabel, Kind: DriftMissingInStore},
	}, drift)
}

func TestDefaultTierACL_CoversCatalog(t *testing.T) {
	c := DefaultCatalog()
	acl := DefaultTierACL(c)
	for _, key := range c.Keys() {
		assert.Equal(t, c.AllowedTiers(key), acl[key], "key %s", key)
	}
	assert.Contains(t, acl, ResourceWLManagement)
}
