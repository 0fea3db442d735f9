// FILE: internal/model/feature_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Feature struct {
	Id          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Key         string     `gorm:"type:varchar(100);uniqueIndex;not null"`
	Name        string     `gorm:"type:varchar(255);not null"`
	Description string     `gorm:"type:text"`
	Category    string     `gorm:"type:varchar(50)"`
	ParentId    *uuid.UUID `gorm:"type:uuid;index"`
	IsEnabled   bool       `gorm:"not null"`
	SortOrder   int        `gorm:"default:0"`
	CreatedAt   time.Time  `gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime"`
}

func (Feature) TableName() string {
	return "features"
}

func (f *Feature) BeforeCreate(tx *gorm.DB) error {
	if f.Id == uuid.Nil {
		f.Id = uuid.New()
	}
	return nil
}
