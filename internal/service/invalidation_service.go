package service

import (
	"context"
	"encoding/json"
	"log"

	"crm-access-be/internal/dto"
	"crm-access-be/internal/metrics"
	"crm-access-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const InvalidationTopic = "access.invalidate"

const (
	OriginLocal = "local"
	OriginNats  = "nats"
)

// Invalidator is what write paths use to drop cached access state.
type Invalidator interface {
	Invalidate(ctx context.Context, profileId *uuid.UUID, cause string) error
}

type IInvalidationService interface {
	Invalidator
	Consume(ctx context.Context) error
	HandleEvent(ctx context.Context, event events.Event) error
}

type invalidationService struct {
	pubSub  *gochannel.GoChannel
	access  IAccessService
	metrics *metrics.AccessMetrics
}

func NewInvalidationService(pubSub *gochannel.GoChannel, access IAccessService, accessMetrics *metrics.AccessMetrics) IInvalidationService {
	return &invalidationService{
		pubSub:  pubSub,
		access:  access,
		metrics: accessMetrics,
	}
}

// Invalidate evicts before returning, so a write path that calls it never
// answers with a stale cached decision afterwards.
func (s *invalidationService) Invalidate(ctx context.Context, profileId *uuid.UUID, cause string) error {
	s.apply(ctx, dto.InvalidationMessage{ProfileId: profileId, Cause: cause, Origin: OriginLocal})
	return nil
}

func (s *invalidationService) apply(ctx context.Context, payload dto.InvalidationMessage) {
	s.access.Invalidate(ctx, payload.ProfileId)

	scope := "all"
	if payload.ProfileId != nil {
		scope = "profile"
	}
	s.metrics.Invalidated(scope, payload.Origin)
}

func (s *invalidationService) publish(payload dto.InvalidationMessage) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.pubSub.Publish(InvalidationTopic, message.NewMessage(watermill.NewUUID(), raw))
}

// Consume applies invalidations until ctx is cancelled.
func (s *invalidationService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, InvalidationTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()
	return nil
}

func (s *invalidationService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.InvalidationMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal invalidation: %v", err)
		msg.Ack()
		return
	}

	s.apply(ctx, payload)
	msg.Ack()
}

// HandleEvent turns an access event published by any instance into a local
// invalidation. Events of other types are ignored.
func (s *invalidationService) HandleEvent(ctx context.Context, event events.Event) error {
	if !events.IsAccessChange(event.EventType()) {
		return nil
	}

	payload := dto.InvalidationMessage{Cause: event.EventType(), Origin: OriginNats}
	switch event.EventType() {
	case events.OverrideChanged, events.PrincipalAccessChanged:
		if raw, ok := event.Payload()["profile_id"].(string); ok {
			if id, err := uuid.Parse(raw); err == nil {
				payload.ProfileId = &id
			}
		}
	}
	return s.publish(payload)
}
