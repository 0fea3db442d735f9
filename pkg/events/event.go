package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "FEATURE_CHANGED").
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

// Event types emitted by the access admin surface.
const (
	FeatureChanged         = "FEATURE_CHANGED"
	TierFeaturesChanged    = "TIER_FEATURES_CHANGED"
	OverrideChanged        = "OVERRIDE_CHANGED"
	PrincipalAccessChanged = "PRINCIPAL_ACCESS_CHANGED"
)

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// IsAccessChange reports whether an event type should drop cached decisions.
func IsAccessChange(eventType string) bool {
	switch eventType {
	case FeatureChanged, TierFeaturesChanged, OverrideChanged, PrincipalAccessChanged:
		return true
	}
	return false
}
