package cache

import (
	"context"
	"time"

	"crm-access-be/pkg/access"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// EffectiveStore is a shared second-level store for resolved feature sets.
type EffectiveStore interface {
	Get(ctx context.Context, profileId uuid.UUID) ([]access.EffectiveFeature, bool, error)
	Set(ctx context.Context, profileId uuid.UUID, features []access.EffectiveFeature) error
	Evict(ctx context.Context, profileId uuid.UUID) error
	EvictAll(ctx context.Context) error
}

// EffectiveCache keeps resolved feature sets in process and, when a remote
// store is configured, in Redis. Remote errors degrade to a miss.
type EffectiveCache struct {
	local  *gocache.Cache
	remote EffectiveStore
	ttl    time.Duration
}

func NewEffectiveCache(ttl time.Duration, remote EffectiveStore) *EffectiveCache {
	cleanup := 2 * ttl
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &EffectiveCache{
		local:  gocache.New(ttl, cleanup),
		remote: remote,
		ttl:    ttl,
	}
}

func (c *EffectiveCache) enabled() bool {
	return c != nil && c.ttl > 0
}

// Get returns the cached set for profileId. A set holding an override that
// has lapsed by now is evicted and reported as a miss.
func (c *EffectiveCache) Get(ctx context.Context, profileId uuid.UUID, now time.Time) ([]access.EffectiveFeature, bool) {
	if !c.enabled() {
		return nil, false
	}
	if x, found := c.local.Get(profileId.String()); found {
		features := x.([]access.EffectiveFeature)
		if Lapsed(features, now) {
			_ = c.Evict(ctx, profileId)
			return nil, false
		}
		return features, true
	}
	if c.remote == nil {
		return nil, false
	}
	features, found, err := c.remote.Get(ctx, profileId)
	if err != nil || !found {
		return nil, false
	}
	if Lapsed(features, now) {
		_ = c.remote.Evict(ctx, profileId)
		return nil, false
	}
	c.local.Set(profileId.String(), features, gocache.DefaultExpiration)
	return features, true
}

// Lapsed reports whether any override in features has expired by now.
func Lapsed(features []access.EffectiveFeature, now time.Time) bool {
	for _, ef := range features {
		if ef.Source == access.SourceOverride && ef.ExpiresAt != nil && !ef.ExpiresAt.After(now) {
			return true
		}
	}
	return false
}

func (c *EffectiveCache) Set(ctx context.Context, profileId uuid.UUID, features []access.EffectiveFeature) {
	if !c.enabled() {
		return
	}
	c.local.Set(profileId.String(), features, gocache.DefaultExpiration)
	if c.remote != nil {
		_ = c.remote.Set(ctx, profileId, features)
	}
}

func (c *EffectiveCache) Evict(ctx context.Context, profileId uuid.UUID) error {
	if c == nil {
		return nil
	}
	c.local.Delete(profileId.String())
	if c.remote != nil {
		return c.remote.Evict(ctx, profileId)
	}
	return nil
}

// EvictLocal only clears this process, for events another instance already
// applied to the shared store.
func (c *EffectiveCache) EvictLocal(profileId *uuid.UUID) {
	if c == nil {
		return
	}
	if profileId == nil {
		c.local.Flush()
		return
	}
	c.local.Delete(profileId.String())
}

func (c *EffectiveCache) EvictAll(ctx context.Context) error {
	if c == nil {
		return nil
	}
	c.local.Flush()
	if c.remote != nil {
		return c.remote.EvictAll(ctx)
	}
	return nil
}
