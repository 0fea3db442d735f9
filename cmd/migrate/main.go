package main

import (
	"log"
	"os"

	"crm-access-be/internal/model"
	"crm-access-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}
	postgres := !database.IsSQLiteDSN(dsn)

	log.Println("Starting access schema migration...")

	// 3. AutoMigrate the access tables
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 4. Post-Migration: constraints GORM tags cannot express
	if postgres {
		postMigrationSQL := []string{
			`DO $$ BEGIN
			   ALTER TABLE profiles ADD CONSTRAINT profiles_role_check
			     CHECK (role IN ('super_admin', 'wl_user', 'regular_user'));
			 EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
			`DO $$ BEGIN
			   ALTER TABLE profiles ADD CONSTRAINT profiles_status_check
			     CHECK (status IN ('active', 'inactive', 'suspended'));
			 EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
			`DO $$ BEGIN
			   ALTER TABLE features ADD CONSTRAINT features_parent_fk
			     FOREIGN KEY (parent_id) REFERENCES features(id) ON DELETE RESTRICT;
			 EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
		}
		for _, sql := range postMigrationSQL {
			if err := db.Exec(sql).Error; err != nil {
				log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
			}
		}
	}

	log.Println("Success: access schema migration completed.")
}
