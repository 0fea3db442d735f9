package entity

import (
	"time"

	"crm-access-be/pkg/access"

	"github.com/google/uuid"
)

// Profile is the stored side of a principal. Profiles are never deleted;
// deactivation is a status change.
type Profile struct {
	Id          uuid.UUID
	Email       string
	FullName    string
	Role        access.Role
	ProductTier *access.ProductTier
	Permissions []string
	Status      access.Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
