package specification

import (
	"strings"

	"gorm.io/gorm"
)

type ByEmail struct {
	Email string
}

func (s ByEmail) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(s.Email)))
}

type ByRole struct {
	Role string
}

func (s ByRole) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("role = ?", s.Role)
}

type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// ByProductTier matches profiles on a tier; an empty Tier matches profiles without one.
type ByProductTier struct {
	Tier string
}

func (s ByProductTier) Apply(db *gorm.DB) *gorm.DB {
	if s.Tier == "" {
		return db.Where("(product_tier IS NULL OR product_tier = '')")
	}
	return db.Where("product_tier = ?", s.Tier)
}
