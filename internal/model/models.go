package model

import "gorm.io/gorm"

// All lists the tables owned by this service, in creation order.
func All() []interface{} {
	return []interface{}{
		&Profile{},
		&Feature{},
		&TierFeature{},
		&UserFeatureOverride{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
