package access

import (
	"sort"
	"strings"
)

// CatalogVersion identifies the static mirror below. Bump it whenever an
// entry changes so clients holding an older copy can be told to refresh.
const CatalogVersion = "2024.11.3"

var (
	allPaidTiers   = []ProductTier{TierSmartCRM, TierSalesMaximizer, TierAIBoostUnlimited, TierAICommunication, TierWhitelabel}
	salesTiers     = []ProductTier{TierSalesMaximizer, TierAIBoostUnlimited, TierWhitelabel}
	aiTiers        = []ProductTier{TierAIBoostUnlimited, TierAICommunication, TierWhitelabel}
	commsTiers     = []ProductTier{TierAICommunication, TierWhitelabel}
	whitelabelOnly = []ProductTier{TierWhitelabel}
)

// CatalogEntry is one feature of the static mirror.
type CatalogEntry struct {
	Key      ResourceKey
	Name     string
	Category string
	Tiers    []ProductTier
}

var defaultEntries = []CatalogEntry{
	{Key: "contacts", Name: "Contacts", Category: "core", Tiers: allPaidTiers},
	{Key: "deals", Name: "Deals & Pipeline", Category: "core", Tiers: allPaidTiers},
	{Key: "tasks", Name: "Tasks", Category: "core", Tiers: allPaidTiers},
	{Key: "calendar", Name: "Calendar", Category: "core", Tiers: allPaidTiers},
	{Key: "crm_dashboard", Name: "CRM Dashboard", Category: "core", Tiers: allPaidTiers},
	{Key: "analytics", Name: "Analytics", Category: "sales", Tiers: []ProductTier{TierSalesMaximizer, TierAIBoostUnlimited, TierAICommunication, TierWhitelabel}},
	{Key: "sales_tools", Name: "Sales Tools", Category: "sales", Tiers: salesTiers},
	{Key: "lead_automation", Name: "Lead Automation", Category: "sales", Tiers: salesTiers},
	{Key: "ai_tools", Name: "AI Tools", Category: "ai", Tiers: aiTiers},
	{Key: "ai_assistant", Name: "AI Assistant", Category: "ai", Tiers: []ProductTier{TierAIBoostUnlimited, TierWhitelabel}},
	{Key: "content_library", Name: "Content Library", Category: "ai", Tiers: []ProductTier{TierAIBoostUnlimited, TierWhitelabel}},
	{Key: "video_email", Name: "Video Email", Category: "communication", Tiers: commsTiers},
	{Key: "phone_system", Name: "Phone System", Category: "communication", Tiers: commsTiers},
	{Key: "sms_messaging", Name: "SMS Messaging", Category: "communication", Tiers: commsTiers},
	{Key: "communication_dashboard", Name: "Communication Dashboard", Category: "communication", Tiers: commsTiers},
	{Key: "whitelabel", Name: "White Label", Category: "whitelabel", Tiers: whitelabelOnly},
	{Key: "custom_branding", Name: "Custom Branding", Category: "whitelabel", Tiers: whitelabelOnly},
}

// DefaultEntries returns a copy of the static mirror, e.g. for seeding.
func DefaultEntries() []CatalogEntry {
	out := make([]CatalogEntry, len(defaultEntries))
	for i, e := range defaultEntries {
		e.Tiers = append([]ProductTier(nil), e.Tiers...)
		out[i] = e
	}
	return out
}

// Catalog maps feature keys to the tiers that include them. It is read-only
// after construction and safe for concurrent use.
type Catalog struct {
	tiers map[ResourceKey]map[ProductTier]struct{}
	names map[ResourceKey]string
}

func NewCatalog(entries []CatalogEntry) *Catalog {
	c := &Catalog{
		tiers: make(map[ResourceKey]map[ProductTier]struct{}, len(entries)),
		names: make(map[ResourceKey]string, len(entries)),
	}
	for _, e := range entries {
		set := make(map[ProductTier]struct{}, len(e.Tiers))
		for _, t := range e.Tiers {
			set[t] = struct{}{}
		}
		c.tiers[e.Key] = set
		if e.Name != "" {
			c.names[e.Key] = e.Name
		}
	}
	return c
}

func DefaultCatalog() *Catalog {
	return NewCatalog(defaultEntries)
}

func (c *Catalog) Contains(key ResourceKey) bool {
	if c == nil {
		return false
	}
	_, ok := c.tiers[key]
	return ok
}

// AllowedTiers returns the tiers including key, in precedence order.
func (c *Catalog) AllowedTiers(key ResourceKey) []ProductTier {
	if c == nil {
		return nil
	}
	set := c.tiers[key]
	out := make([]ProductTier, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sortTiers(out)
	return out
}

// HasFeatureAccess is the client-mirror entitlement lookup. A nil tier never
// has access, dev_all_access always does, unknown keys never do.
func (c *Catalog) HasFeatureAccess(tier *ProductTier, key ResourceKey) bool {
	if tier == nil || *tier == "" {
		return false
	}
	if *tier == TierDevAllAccess {
		return true
	}
	if c == nil {
		return false
	}
	_, ok := c.tiers[key][*tier]
	return ok
}

// MinimumTier is the lowest tier, by precedence, whose set includes key.
func (c *Catalog) MinimumTier(key ResourceKey) ProductTier {
	if c != nil {
		set := c.tiers[key]
		for _, t := range TierOrder {
			if _, ok := set[t]; ok {
				return t
			}
		}
	}
	return LowestPaidTier
}

// DisplayName returns the human readable feature name used in upgrade messaging.
func (c *Catalog) DisplayName(key ResourceKey) string {
	if c != nil {
		if name, ok := c.names[key]; ok {
			return name
		}
	}
	return humanize(key)
}

// Keys returns every feature key, sorted.
func (c *Catalog) Keys() []ResourceKey {
	if c == nil {
		return nil
	}
	keys := make([]ResourceKey, 0, len(c.tiers))
	for k := range c.tiers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// CatalogRow is an authoritative tier_features row flattened to its key.
type CatalogRow struct {
	Tier              ProductTier
	FeatureKey        ResourceKey
	IncludedByDefault bool
}

type DriftKind string

const (
	DriftMissingInStore  DriftKind = "missing_in_store"
	DriftMissingInMirror DriftKind = "missing_in_mirror"
)

// Drift is one disagreement between the static mirror and the store.
type Drift struct {
	FeatureKey ResourceKey `json:"feature_key"`
	Tier       ProductTier `json:"tier"`
	Kind       DriftKind   `json:"kind"`
}

// Diff compares the mirror with authoritative rows. Only rows included by
// default count as a grant; dev_all_access rows are ignored.
func (c *Catalog) Diff(rows []CatalogRow) []Drift {
	stored := make(map[ResourceKey]map[ProductTier]struct{})
	for _, r := range rows {
		if !r.IncludedByDefault || r.Tier == TierDevAllAccess {
			continue
		}
		if stored[r.FeatureKey] == nil {
			stored[r.FeatureKey] = make(map[ProductTier]struct{})
		}
		stored[r.FeatureKey][r.Tier] = struct{}{}
	}

	var drift []Drift
	for _, key := range c.Keys() {
		for _, t := range c.AllowedTiers(key) {
			if _, ok := stored[key][t]; !ok {
				drift = append(drift, Drift{FeatureKey: key, Tier: t, Kind: DriftMissingInStore})
			}
		}
	}
	for key, set := range stored {
		for t := range set {
			if !c.HasFeatureAccess(&t, key) {
				drift = append(drift, Drift{FeatureKey: key, Tier: t, Kind: DriftMissingInMirror})
			}
		}
	}

	sort.Slice(drift, func(i, j int) bool {
		if drift[i].FeatureKey != drift[j].FeatureKey {
			return drift[i].FeatureKey < drift[j].FeatureKey
		}
		if drift[i].Tier != drift[j].Tier {
			return drift[i].Tier.Rank() < drift[j].Tier.Rank()
		}
		return drift[i].Kind < drift[j].Kind
	})
	return drift
}

func sortTiers(tiers []ProductTier) {
	sort.Slice(tiers, func(i, j int) bool {
		ri, rj := tiers[i].Rank(), tiers[j].Rank()
		if ri != rj {
			// unranked tiers sort last
			if ri < 0 {
				return false
			}
			if rj < 0 {
				return true
			}
			return ri < rj
		}
		return tiers[i] < tiers[j]
	})
}

func humanize(key ResourceKey) string {
	parts := strings.Split(string(key), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
