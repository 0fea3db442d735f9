package dto

import (
	"time"

	"github.com/google/uuid"
)

// UpdateAccessRequest changes a principal's role, tier or status. An empty
// ProductTier string removes the tier.
type UpdateAccessRequest struct {
	Role        *string `json:"role" validate:"omitempty,oneof=super_admin wl_user regular_user"`
	ProductTier *string `json:"product_tier"`
	Status      *string `json:"status" validate:"omitempty,oneof=active inactive suspended"`
}

type ProfileResponse struct {
	Id          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	Role        string    `json:"role"`
	ProductTier *string   `json:"product_tier"`
	Permissions []string  `json:"permissions"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ProfileListQuery struct {
	Role        string `query:"role"`
	ProductTier string `query:"product_tier"`
	Status      string `query:"status"`
	Page        int    `query:"page"`
	Limit       int    `query:"limit"`
}

type GrantOverrideRequest struct {
	FeatureKey string     `json:"feature_key" validate:"required"`
	Enabled    *bool      `json:"enabled"` // defaults to true
	ExpiresAt  *time.Time `json:"expires_at"`
}

type OverrideResponse struct {
	Id         uuid.UUID  `json:"id"`
	ProfileId  uuid.UUID  `json:"profile_id"`
	FeatureId  uuid.UUID  `json:"feature_id"`
	FeatureKey string     `json:"feature_key"`
	Enabled    bool       `json:"enabled"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	GrantedBy  *uuid.UUID `json:"granted_by,omitempty"`
	GrantedAt  time.Time  `json:"granted_at"`
	Active     bool       `json:"active"`
}

type DriftResponse struct {
	CatalogVersion string       `json:"catalog_version"`
	Drift          []DriftEntry `json:"drift"`
}

type DriftEntry struct {
	FeatureKey string `json:"feature_key"`
	Tier       string `json:"tier"`
	Kind       string `json:"kind"`
}

type ProfileListResponse struct {
	Profiles []*ProfileResponse `json:"profiles"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	Limit    int                `json:"limit"`
}

type RevokeOverrideRequest struct {
	FeatureKey string `json:"feature_key" validate:"required"`
}
