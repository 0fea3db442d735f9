package main

import (
	"log"
	"os"
	"strings"

	"crm-access-be/internal/mapper"
	"crm-access-be/internal/model"
	"crm-access-be/pkg/access"
	"crm-access-be/pkg/database"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func main() {
	// Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Seeding Feature Catalog...")
	ids := seedFeatures(db)

	log.Println("Seeding Tier Catalog...")
	seedTierFeatures(db, ids)

	if email := os.Getenv("SEED_ADMIN_EMAIL"); email != "" {
		log.Println("Seeding Super Admin...")
		SeedSuperAdmin(db, email)
	}

	reportDrift(db)
}

// seedFeatures inserts every catalog entry that is not stored yet and returns
// the id of each key.
func seedFeatures(db *gorm.DB) map[access.ResourceKey]model.Feature {
	ids := make(map[access.ResourceKey]model.Feature)
	for i, e := range access.DefaultEntries() {
		var existing model.Feature
		if err := db.Where("key = ?", string(e.Key)).First(&existing).Error; err == nil {
			log.Printf("Feature '%s' already exists, skipping...", e.Key)
			ids[e.Key] = existing
			continue
		}

		f := model.Feature{
			Key:       string(e.Key),
			Name:      e.Name,
			Category:  e.Category,
			IsEnabled: true,
			SortOrder: i + 1,
		}
		if err := db.Create(&f).Error; err != nil {
			log.Printf("Error creating feature '%s': %v", e.Key, err)
			continue
		}
		log.Printf("Created feature: %s (%s)", f.Name, f.Key)
		ids[e.Key] = f
	}
	return ids
}

func seedTierFeatures(db *gorm.DB, features map[access.ResourceKey]model.Feature) {
	for _, e := range access.DefaultEntries() {
		f, ok := features[e.Key]
		if !ok {
			continue
		}
		for _, t := range e.Tiers {
			row := model.TierFeature{ProductTier: string(t), FeatureId: f.Id, IncludedByDefault: true}
			// Existing rows keep whatever an admin set.
			if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				log.Printf("Error linking '%s' to tier '%s': %v", e.Key, t, err)
			}
		}
	}
}

// SeedSuperAdmin creates or promotes the profile for email to super_admin.
func SeedSuperAdmin(db *gorm.DB, email string) {
	email = strings.ToLower(strings.TrimSpace(email))
	var p model.Profile
	err := db.Where("email = ?", email).First(&p).Error
	if err == nil {
		if err := db.Model(&p).Updates(map[string]interface{}{"role": string(access.RoleSuperAdmin), "status": string(access.StatusActive)}).Error; err != nil {
			log.Printf("Error promoting '%s': %v", email, err)
			return
		}
		log.Printf("Promoted %s to super_admin", email)
		return
	}

	p = model.Profile{Email: email, Role: string(access.RoleSuperAdmin), Status: string(access.StatusActive)}
	if err := db.Create(&p).Error; err != nil {
		log.Printf("Error creating super admin '%s': %v", email, err)
		return
	}
	log.Printf("Created super admin: %s (%s)", email, p.Id)
}

func reportDrift(db *gorm.DB) {
	var rows []*model.TierFeature
	if err := db.Preload("Feature").Find(&rows).Error; err != nil {
		log.Printf("Error loading tier rows: %v", err)
		return
	}
	m := mapper.NewTierFeatureMapper()
	drift := access.DefaultCatalog().Diff(m.ToCatalogRows(m.ToEntities(rows)))

	if len(drift) == 0 {
		color.Green("✓ Catalog %s matches the stored tier rows", access.CatalogVersion)
		return
	}
	color.Yellow("⚠ %d difference(s) between catalog %s and stored tier rows:", len(drift), access.CatalogVersion)
	for _, d := range drift {
		switch d.Kind {
		case access.DriftMissingInStore:
			color.Red("  - %-28s %-20s not granted in store", d.FeatureKey, d.Tier)
		default:
			color.Cyan("  + %-28s %-20s granted in store only", d.FeatureKey, d.Tier)
		}
	}
}
