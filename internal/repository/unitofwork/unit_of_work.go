package unitofwork

import (
	"context"

	"crm-access-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ProfileRepository() contract.ProfileRepository
	FeatureRepository() contract.FeatureRepository
	TierFeatureRepository() contract.TierFeatureRepository
	OverrideRepository() contract.OverrideRepository
}
