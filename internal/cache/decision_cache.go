package cache

import (
	"strings"
	"time"

	"crm-access-be/pkg/access"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// DecisionCache memoizes authoritative feature decisions for a short TTL.
// A zero TTL disables caching.
type DecisionCache struct {
	cache *gocache.Cache
	ttl   time.Duration
}

func NewDecisionCache(ttl time.Duration) *DecisionCache {
	cleanup := 2 * ttl
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &DecisionCache{
		cache: gocache.New(ttl, cleanup),
		ttl:   ttl,
	}
}

type decisionEntry struct {
	decision access.Decision
	until    *time.Time
}

func decisionKey(profileId uuid.UUID, key access.ResourceKey) string {
	return profileId.String() + "|" + key.String()
}

// Get returns the cached decision unless its deadline is not after now.
func (d *DecisionCache) Get(profileId uuid.UUID, key access.ResourceKey, now time.Time) (access.Decision, bool) {
	if d == nil || d.ttl <= 0 {
		return access.Decision{}, false
	}
	k := decisionKey(profileId, key)
	x, found := d.cache.Get(k)
	if !found {
		return access.Decision{}, false
	}
	entry := x.(decisionEntry)
	if entry.until != nil && !entry.until.After(now) {
		d.cache.Delete(k)
		return access.Decision{}, false
	}
	return entry.decision, true
}

// Set stores a decision for the cache TTL. A non-nil until ends the entry
// earlier, e.g. when the override behind it expires.
func (d *DecisionCache) Set(profileId uuid.UUID, key access.ResourceKey, decision access.Decision, until *time.Time) {
	if d == nil || d.ttl <= 0 {
		return
	}
	d.cache.Set(decisionKey(profileId, key), decisionEntry{decision: decision, until: until}, gocache.DefaultExpiration)
}

// EvictProfile drops every cached decision of one profile.
func (d *DecisionCache) EvictProfile(profileId uuid.UUID) {
	if d == nil {
		return
	}
	prefix := profileId.String() + "|"
	for k := range d.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			d.cache.Delete(k)
		}
	}
}

func (d *DecisionCache) Flush() {
	if d == nil {
		return
	}
	d.cache.Flush()
}

func (d *DecisionCache) Len() int {
	if d == nil {
		return 0
	}
	return d.cache.ItemCount()
}
