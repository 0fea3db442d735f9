package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Profile struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email       string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	FullName    string    `gorm:"type:varchar(255)"`
	Role        string    `gorm:"type:varchar(50);not null;default:'regular_user'"`
	ProductTier *string   `gorm:"type:varchar(50);index"`
	Permissions datatypes.JSONSlice[string]
	Status      string    `gorm:"type:varchar(50);not null;default:'active'"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Profile) TableName() string {
	return "profiles"
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.Id == uuid.Nil {
		p.Id = uuid.New()
	}
	return nil
}
