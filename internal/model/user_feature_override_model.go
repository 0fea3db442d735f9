package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserFeatureOverride struct {
	Id        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProfileId uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_override_profile_feature"`
	FeatureId uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_override_profile_feature"`
	Enabled   bool       `gorm:"not null"`
	ExpiresAt *time.Time `gorm:"index"`
	GrantedBy *uuid.UUID `gorm:"type:uuid"`
	GrantedAt time.Time  `gorm:"not null"`
	Feature   *Feature   `gorm:"foreignKey:FeatureId"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
}

func (UserFeatureOverride) TableName() string {
	return "user_feature_overrides"
}

func (o *UserFeatureOverride) BeforeCreate(tx *gorm.DB) error {
	if o.Id == uuid.Nil {
		o.Id = uuid.New()
	}
	return nil
}
