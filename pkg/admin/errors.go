// Package admin holds the write paths behind /api/admin. Every manager
// assumes the caller already passed the admin_features access check.
package admin

import "errors"

var (
	ErrFeatureNotFound    = errors.New("feature not found")
	ErrDuplicateKey       = errors.New("feature key already exists")
	ErrParentNotFound     = errors.New("parent feature not found")
	ErrFeatureCycle       = errors.New("feature parent would create a cycle")
	ErrFeatureHasChildren = errors.New("feature has child features")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrOverrideNotFound   = errors.New("override not found")
	ErrInvalidTier        = errors.New("invalid product tier")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidExpiry      = errors.New("override expiry must be in the future")
	ErrForbidden          = errors.New("forbidden")
)
