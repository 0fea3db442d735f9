// FILE: internal/entity/feature_entity.go
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Feature is a node of the feature catalog tree.
type Feature struct {
	Id          uuid.UUID
	Key         string // stable, unique: video_email, contacts, ...
	Name        string
	Description string
	Category    string
	ParentId    *uuid.UUID
	IsEnabled   bool // global kill switch, inherited by descendants
	SortOrder   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
