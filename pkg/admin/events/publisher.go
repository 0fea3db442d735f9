package events

import (
	"context"
	"time"

	"crm-access-be/internal/pkg/logger"
	pkgEvents "crm-access-be/pkg/events"
	pktNats "crm-access-be/pkg/nats"

	"github.com/google/uuid"
)

// Publisher abstracts event publishing for access administration.
type Publisher interface {
	PublishFeatureChanged(ctx context.Context, featureId uuid.UUID, key, action string, actor uuid.UUID)
	PublishTierFeaturesChanged(ctx context.Context, tier, featureKey, action string, actor uuid.UUID)
	PublishOverrideChanged(ctx context.Context, profileId uuid.UUID, featureKey, action string, actor uuid.UUID)
	PublishPrincipalAccessChanged(ctx context.Context, profileId uuid.UUID, before, after map[string]interface{}, actor uuid.UUID)
}

type NatsPublisher struct {
	publisher *pktNats.Publisher
	logger    logger.ILogger
}

func NewNatsPublisher(publisher *pktNats.Publisher, logger logger.ILogger) *NatsPublisher {
	return &NatsPublisher{
		publisher: publisher,
		logger:    logger,
	}
}

func (p *NatsPublisher) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if p.publisher == nil {
		return
	}
	evt := pkgEvents.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
	if err := p.publisher.Publish(ctx, evt); err != nil {
		p.logger.Error("ADMIN", "Failed to publish "+eventType+" event", map[string]interface{}{"error": err.Error()})
	}
}

func (p *NatsPublisher) PublishFeatureChanged(ctx context.Context, featureId uuid.UUID, key, action string, actor uuid.UUID) {
	p.publish(ctx, pkgEvents.FeatureChanged, map[string]interface{}{
		"feature_id":  featureId.String(),
		"feature_key": key,
		"action":      action,
		"actor_id":    actor.String(),
		"entity_type": "feature",
		"entity_id":   featureId.String(),
	})
}

func (p *NatsPublisher) PublishTierFeaturesChanged(ctx context.Context, tier, featureKey, action string, actor uuid.UUID) {
	p.publish(ctx, pkgEvents.TierFeaturesChanged, map[string]interface{}{
		"product_tier": tier,
		"feature_key":  featureKey,
		"action":       action,
		"actor_id":     actor.String(),
		"entity_type":  "tier",
		"entity_id":    tier,
	})
}

func (p *NatsPublisher) PublishOverrideChanged(ctx context.Context, profileId uuid.UUID, featureKey, action string, actor uuid.UUID) {
	p.publish(ctx, pkgEvents.OverrideChanged, map[string]interface{}{
		"profile_id":  profileId.String(),
		"feature_key": featureKey,
		"action":      action,
		"actor_id":    actor.String(),
		"entity_type": "profile",
		"entity_id":   profileId.String(),
	})
}

func (p *NatsPublisher) PublishPrincipalAccessChanged(ctx context.Context, profileId uuid.UUID, before, after map[string]interface{}, actor uuid.UUID) {
	p.publish(ctx, pkgEvents.PrincipalAccessChanged, map[string]interface{}{
		"profile_id":  profileId.String(),
		"before":      before,
		"after":       after,
		"actor_id":    actor.String(),
		"entity_type": "profile",
		"entity_id":   profileId.String(),
	})
}

// NopPublisher is used when NATS is not configured.
type NopPublisher struct{}

func (NopPublisher) PublishFeatureChanged(context.Context, uuid.UUID, string, string, uuid.UUID) {}
func (NopPublisher) PublishTierFeaturesChanged(context.Context, string, string, string, uuid.UUID) {
}
func (NopPublisher) PublishOverrideChanged(context.Context, uuid.UUID, string, string, uuid.UUID) {}
func (NopPublisher) PublishPrincipalAccessChanged(context.Context, uuid.UUID, map[string]interface{}, map[string]interface{}, uuid.UUID) {
}
