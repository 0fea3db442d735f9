package entity

import (
	"time"

	"crm-access-be/pkg/access"

	"github.com/google/uuid"
)

type TierFeature struct {
	ProductTier       access.ProductTier
	FeatureId         uuid.UUID
	IncludedByDefault bool
	Feature           *Feature
	CreatedAt         time.Time
}
