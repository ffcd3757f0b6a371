package main

import (
	"flag"
	"fmt"
	"log"

	"flashmeet/internal/config"
	"flashmeet/internal/models"
	"flashmeet/internal/storage"

	"gorm.io/gorm"
)

func main() {
	// Define command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	action := flag.String("action", "migrate", "Action to perform (migrate, reset, status)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	if err := storage.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	db := storage.GetDB()
	if db == nil {
		log.Fatalf("Failed to get database connection")
	}

	// Perform requested action
	switch *action {
	case "migrate":
		if err := migrateDatabase(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migration completed successfully")
	case "reset":
		if err := resetDatabase(db); err != nil {
			log.Fatalf("Reset failed: %v", err)
		}
		log.Println("Database reset completed successfully")
	case "status":
		if err := checkStatus(db); err != nil {
			log.Fatalf("Status check failed: %v", err)
		}
	default:
		log.Fatalf("Unknown action: %s", *action)
	}
}

// migrateDatabase performs database migration
func migrateDatabase(db *gorm.DB) error {
	fmt.Println("Migrating database...")

	if err := db.AutoMigrate(&models.Meetup{}); err != nil {
		return fmt.Errorf("failed to migrate Meetup model: %w", err)
	}
	if err := db.AutoMigrate(&models.ChatMessage{}); err != nil {
		return fmt.Errorf("failed to migrate ChatMessage model: %w", err)
	}
	if err := db.AutoMigrate(&models.PushToken{}); err != nil {
		return fmt.Errorf("failed to migrate PushToken model: %w", err)
	}

	return nil
}

// resetDatabase drops tables and recreates them
func resetDatabase(db *gorm.DB) error {
	fmt.Println("Resetting database...")

	// Confirm reset operation
	fmt.Print("WARNING: This will delete all data! Are you sure? (y/N): ")
	var confirmation string
	fmt.Scanln(&confirmation)

	if confirmation != "y" && confirmation != "Y" {
		return fmt.Errorf("operation cancelled by user")
	}

	// Drop children before parents
	if err := db.Migrator().DropTable(&models.ChatMessage{}); err != nil {
		return fmt.Errorf("failed to drop ChatMessage table: %w", err)
	}
	if err := db.Migrator().DropTable(&models.Meetup{}); err != nil {
		return fmt.Errorf("failed to drop Meetup table: %w", err)
	}
	if err := db.Migrator().DropTable(&models.PushToken{}); err != nil {
		return fmt.Errorf("failed to drop PushToken table: %w", err)
	}

	// Recreate tables
	return migrateDatabase(db)
}

// checkStatus checks the database status
func checkStatus(db *gorm.DB) error {
	fmt.Println("Checking database status...")

	tables := []struct {
		name  string
		model interface{}
	}{
		{"Meetup", &models.Meetup{}},
		{"ChatMessage", &models.ChatMessage{}},
		{"PushToken", &models.PushToken{}},
	}

	for _, t := range tables {
		if db.Migrator().HasTable(t.model) {
			fmt.Printf("✅ %s table exists\n", t.name)

			var count int64
			db.Model(t.model).Count(&count)
			fmt.Printf("   - Contains %d records\n", count)
		} else {
			fmt.Printf("❌ %s table does not exist\n", t.name)
		}
	}

	return nil
}
