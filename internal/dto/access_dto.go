package dto

import (
	"time"

	"crm-access-be/pkg/access"

	"github.com/google/uuid"
)

// UserRoleResponse answers GET /api/auth/user-role.
type UserRoleResponse struct {
	Id          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	ProductTier *string   `json:"product_tier"`
	Permissions []string  `json:"permissions"`
	Status      string    `json:"status"`
}

type FeatureCheckResponse struct {
	FeatureKey string        `json:"feature_key"`
	Allowed    bool          `json:"allowed"`
	Reason     access.Reason `json:"reason"`
}

type EffectiveFeatureResponse struct {
	FeatureKey string        `json:"feature_key"`
	Name       string        `json:"name,omitempty"`
	Enabled    bool          `json:"enabled"`
	Source     access.Source `json:"source"`
	Reason     access.Reason `json:"reason"`
	ExpiresAt  *time.Time    `json:"expires_at,omitempty"`
}

type GateQuery struct {
	Key      string `query:"key"`
	Mode     string `query:"mode"`
	Fallback bool   `query:"fallback"`
}

// GuardRequest is a navigable route descriptor.
type GuardRequest struct {
	Path               string `json:"path" validate:"required"`
	FeatureKey         string `json:"featureKey"`
	Resource           string `json:"resource"`
	RequireProductTier bool   `json:"requireProductTier"`
}

type GuardResponse struct {
	State    access.GuardState `json:"state"`
	Redirect *access.Redirect  `json:"redirect,omitempty"`
}

type CatalogResponse struct {
	Version  string                   `json:"version"`
	Features []CatalogFeatureResponse `json:"features"`
}

type CatalogFeatureResponse struct {
	Key          string   `json:"key"`
	Name         string   `json:"name"`
	Tiers        []string `json:"tiers"`
	MinimumTier  string   `json:"minimum_tier"`
	IncludedHere bool     `json:"included_in_your_tier"`
}

// InvalidationMessage travels on the in-process access.invalidate topic.
// A nil ProfileId invalidates every principal.
type InvalidationMessage struct {
	ProfileId *uuid.UUID `json:"profile_id,omitempty"`
	Cause     string     `json:"cause"`
	Origin    string     `json:"origin"`
}
