package model

import (
	"time"

	"github.com/google/uuid"
)

// TierFeature is the authoritative tier catalog row.
type TierFeature struct {
	ProductTier       string    `gorm:"type:varchar(50);primaryKey"`
	FeatureId         uuid.UUID `gorm:"type:uuid;primaryKey"`
	IncludedByDefault bool      `gorm:"not null"`
	Feature           *Feature  `gorm:"foreignKey:FeatureId"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
}

func (TierFeature) TableName() string {
	return "tier_features"
}
