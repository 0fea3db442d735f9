package entity

import (
	"time"

	"github.com/google/uuid"
)

// UserFeatureOverride grants or revokes one feature for one profile,
// optionally until ExpiresAt.
type UserFeatureOverride struct {
	Id        uuid.UUID
	ProfileId uuid.UUID
	FeatureId uuid.UUID
	Enabled   bool
	ExpiresAt *time.Time
	GrantedBy *uuid.UUID
	GrantedAt time.Time
	Feature   *Feature
	UpdatedAt time.Time
}

func (o *UserFeatureOverride) Active(now time.Time) bool {
	return o != nil && (o.ExpiresAt == nil || o.ExpiresAt.After(now))
}
