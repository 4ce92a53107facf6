package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"boxoffice/internal/sandbox"
	"boxoffice/internal/shared/config"
	"boxoffice/internal/shared/database"
	"boxoffice/pkg/logger"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	clean := flag.Bool("clean", true, "truncate sandbox tables before seeding")
	flag.Parse()

	fmt.Println("🌱 Starting sandbox seeder...")
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.OpenPostgreSQL(ctx, cfg, logger.GetDefault())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}
	if err := database.MigrateConstraints(db); err != nil {
		log.Fatalf("Failed to add constraints: %v", err)
	}

	if *clean {
		fmt.Println("\n🧹 Cleaning sandbox tables...")
		if err := cleanDatabase(db); err != nil {
			log.Fatalf("Failed to clean database: %v", err)
		}
	}

	perfID, err := sandbox.SeedDemo(ctx, sandbox.NewRepository(db), time.Now().UTC())
	if err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Printf("✅ Seeded performance %d with the demo layout and discounts\n", perfID)
}

// cleanDatabase truncates the sandbox tables, children first
func cleanDatabase(db *gorm.DB) error {
	tables := []string{
		"sandbox_payments",
		"sandbox_booking_seats",
		"sandbox_bookings",
		"sandbox_seats",
		"sandbox_discounts",
		"sandbox_performances",
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			fmt.Printf("  Truncating table: %s\n", table)
			if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}
