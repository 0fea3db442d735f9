package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"crm-access-be/pkg/access"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionCache(t *testing.T) {
	c := NewDecisionCache(time.Minute)
	alice, bob := uuid.New(), uuid.New()

	_, ok := c.Get(alice, "video_email", time.Now())
	assert.False(t, ok)

	c.Set(alice, "video_email", access.Decision{Allowed: true, Reason: access.ReasonTierAllowed}, nil)
	c.Set(alice, "analytics", access.Decision{Reason: access.ReasonFeatureDenied}, nil)
	c.Set(bob, "video_email", access.Decision{Reason: access.ReasonFeatureDenied}, nil)

	got, ok := c.Get(alice, "video_email", time.Now())
	require.True(t, ok)
	assert.True(t, got.Allowed)
	assert.Equal(t, 3, c.Len())

	c.EvictProfile(alice)
	_, ok = c.Get(alice, "video_email", time.Now())
	assert.False(t, ok)
	_, ok = c.Get(bob, "video_email", time.Now())
	assert.True(t, ok)

	c.Flush()
	assert.Equal(t, 0, c.Len())
}

func TestDecisionCache_ZeroTTLDisables(t *testing.T) {
	c := NewDecisionCache(0)
	id := uuid.New()
	c.Set(id, "contacts", access.Decision{Allowed: true}, nil)
	_, ok := c.Get(id, "contacts", time.Now())
	assert.False(t, ok)

	var nilCache *DecisionCache
	_, ok = nilCache.Get(id, "contacts", time.Now())
	assert.False(t, ok)
	nilCache.Flush()
}

func TestDecisionCache_EndsAtDeadline(t *testing.T) {
	c := NewDecisionCache(time.Hour)
	id := uuid.New()
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	until := now.Add(time.Second)

	c.Set(id, "video_email", access.Decision{Allowed: true, Reason: access.ReasonOverride}, &until)

	got, ok := c.Get(id, "video_email", now)
	require.True(t, ok)
	assert.True(t, got.Allowed)

	_, ok = c.Get(id, "video_email", until)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

type fakeStore struct {
	data    map[uuid.UUID][]access.EffectiveFeature
	evicted int
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) ([]access.EffectiveFeature, bool, error) {
	v, ok := f.data[id]
	return v, ok, nil
}

func (f *fakeStore) Set(_ context.Context, id uuid.UUID, features []access.EffectiveFeature) error {
	f.data[id] = features
	return nil
}

func (f *fakeStore) Evict(_ context.Context, id uuid.UUID) error {
	delete(f.data, id)
	return nil
}

func (f *fakeStore) EvictAll(context.Context) error {
	f.evicted++
	f.data = map[uuid.UUID][]access.EffectiveFeature{}
	return nil
}

func TestEffectiveCache_FallsBackToRemote(t *testing.T) {
	ctx := context.Background()
	remote := &fakeStore{data: map[uuid.UUID][]access.EffectiveFeature{}}
	id := uuid.New()
	features := []access.EffectiveFeature{{FeatureKey: "contacts", Enabled: true, Source: access.SourceTier}}

	writer := NewEffectiveCache(time.Minute, remote)
	writer.Set(ctx, id, features)

	reader := NewEffectiveCache(time.Minute, remote)
	got, ok := reader.Get(ctx, id, time.Now())
	require.True(t, ok)
	assert.Equal(t, features, got)

	require.NoError(t, writer.Evict(ctx, id))
	_, ok = writer.Get(ctx, id, time.Now())
	assert.False(t, ok)

	// the reader still holds its local copy until told otherwise
	_, ok = reader.Get(ctx, id, time.Now())
	assert.True(t, ok)
	reader.EvictLocal(nil)
	_, ok = reader.Get(ctx, id, time.Now())
	assert.False(t, ok)

	require.NoError(t, writer.EvictAll(ctx))
	assert.Equal(t, 1, remote.evicted)
}

func TestEffectiveCache_LapsedOverrideIsAMiss(t *testing.T) {
	ctx := context.Background()
	remote := &fakeStore{data: map[uuid.UUID][]access.EffectiveFeature{}}
	id := uuid.New()
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	expires := now.Add(time.Second)
	features := []access.EffectiveFeature{
		{FeatureKey: "contacts", Enabled: true, Source: access.SourceTier},
		{FeatureKey: "video_email", Enabled: true, Source: access.SourceOverride, ExpiresAt: &expires},
	}

	c := NewEffectiveCache(time.Hour, remote)
	c.Set(ctx, id, features)

	_, ok := c.Get(ctx, id, now)
	assert.True(t, ok)

	_, ok = c.Get(ctx, id, now.Add(10*time.Second))
	assert.False(t, ok)
	assert.NotContains(t, remote.data, id)

	// a stale copy arriving from the shared store is dropped too
	remote.data[id] = features
	_, ok = c.Get(ctx, id, expires)
	assert.False(t, ok)
	assert.NotContains(t, remote.data, id)
}

func TestRedisEffectiveStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	ctx := context.Background()
	store := NewRedisEffectiveStore(rdb, time.Minute)
	id := uuid.New()
	features := []access.EffectiveFeature{{FeatureKey: "video_email", Enabled: true, Source: access.SourceOverride, Reason: access.ReasonOverride}}

	require.NoError(t, store.Set(ctx, id, features))
	got, ok, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, features, got)

	require.NoError(t, store.EvictAll(ctx))
	_, ok, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)
}
