// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/partforge/catalog-backend/internal/config"
	"github.com/partforge/catalog-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	// Enable UUID extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.Component{},
		&models.PriceObservation{},
		&models.CompatibilityConstraint{},
		&models.Correction{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Component indexes
		"CREATE INDEX IF NOT EXISTS idx_components_category_status ON components(category, status)",
		"CREATE INDEX IF NOT EXISTS idx_components_price ON components(current_price)",
		"CREATE INDEX IF NOT EXISTS idx_components_created_at ON components(created_at DESC)",

		// Observation indexes
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_observations_dedup ON price_observations(component_id, observed_at, source)",
		"CREATE INDEX IF NOT EXISTS idx_observations_observed_at ON price_observations(observed_at DESC)",

		// Correction indexes
		"CREATE INDEX IF NOT EXISTS idx_corrections_component_status ON corrections(component_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_corrections_created ON corrections(created_at DESC)",

		// Constraint indexes
		"CREATE INDEX IF NOT EXISTS idx_constraints_enabled ON compatibility_constraints(enabled)",

		// Full-text search index for catalog queries
		"CREATE INDEX IF NOT EXISTS idx_components_search ON components USING GIN(to_tsvector('english', name || ' ' || manufacturer))",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// SeedConstraints inserts the default compatibility rule set when the table
// is empty. Operators register further rules as rows.
func SeedConstraints(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.CompatibilityConstraint{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count constraints: %w", err)
	}

	if count > 0 {
		return nil
	}

	log.Println("Seeding default compatibility constraints...")
	for _, rule := range models.DefaultConstraints() {
		if err := db.Create(&rule).Error; err != nil {
			return fmt.Errorf("failed to seed constraint %s: %w", rule.Name, err)
		}
	}

	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
