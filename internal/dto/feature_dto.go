// FILE: internal/dto/feature_dto.go
// DTOs for feature catalog administration
package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateFeatureRequest struct {
	Key         string     `json:"key" validate:"required,max=100"`
	Name        string     `json:"name" validate:"required,max=255"`
	Description string     `json:"description"`
	Category    string     `json:"category" validate:"max=50"`
	ParentId    *uuid.UUID `json:"parent_id"`
	IsEnabled   *bool      `json:"is_enabled"` // defaults to true
	SortOrder   int        `json:"sort_order"`
}

// UpdateFeatureRequest patches a feature. Key is immutable. ClearParent moves
// the feature to the root.
type UpdateFeatureRequest struct {
	Name        *string    `json:"name" validate:"omitempty,max=255"`
	Description *string    `json:"description"`
	Category    *string    `json:"category" validate:"omitempty,max=50"`
	ParentId    *uuid.UUID `json:"parent_id"`
	ClearParent bool       `json:"clear_parent"`
	IsEnabled   *bool      `json:"is_enabled"`
	SortOrder   *int       `json:"sort_order"`
}

type FeatureResponse struct {
	Id          uuid.UUID  `json:"id"`
	Key         string     `json:"key"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	ParentId    *uuid.UUID `json:"parent_id,omitempty"`
	IsEnabled   bool       `json:"is_enabled"`
	SortOrder   int        `json:"sort_order"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// FeatureNode is a FeatureResponse with its children, for ?tree=true.
type FeatureNode struct {
	FeatureResponse
	Available bool           `json:"available"`
	Children  []*FeatureNode `json:"children"`
}

// TierFeatureRequest links a catalog feature to a tier. Either FeatureId or
// FeatureKey identifies the feature.
type TierFeatureRequest struct {
	FeatureId         *uuid.UUID `json:"feature_id"`
	FeatureKey        string     `json:"feature_key"`
	IncludedByDefault *bool      `json:"included_by_default"` // defaults to true
}

type RemoveTierFeatureRequest struct {
	FeatureId uuid.UUID `json:"feature_id" validate:"required"`
}

type TierFeatureResponse struct {
	ProductTier       string           `json:"product_tier"`
	FeatureId         uuid.UUID        `json:"feature_id"`
	IncludedByDefault bool             `json:"included_by_default"`
	Feature           *FeatureResponse `json:"feature,omitempty"`
}
