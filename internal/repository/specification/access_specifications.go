package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByTier struct {
	Tier string
}

func (s ByTier) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("product_tier = ?", s.Tier)
}

type ByFeatureID struct {
	FeatureID uuid.UUID
}

func (s ByFeatureID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("feature_id = ?", s.FeatureID)
}

type ByProfileID struct {
	ProfileID uuid.UUID
}

func (s ByProfileID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("profile_id = ?", s.ProfileID)
}
