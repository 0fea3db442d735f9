package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByKey struct {
	Key string
}

func (s ByKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("key = ?", s.Key)
}

// ByParent matches direct children; a nil ParentId matches roots.
type ByParent struct {
	ParentId *uuid.UUID
}

func (s ByParent) Apply(db *gorm.DB) *gorm.DB {
	if s.ParentId == nil {
		return db.Where("parent_id IS NULL")
	}
	return db.Where("parent_id = ?", *s.ParentId)
}
