package db

import (
	"fmt"
	"strings"

	"leadcrm/pkg/models"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite://"

// NewDatabase creates a new database connection. DSNs starting with
// sqlite:// open a local SQLite file for development; anything else is
// handed to the postgres driver.
func NewDatabase(dsn string) (*gorm.DB, error) {
	config := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		TranslateError: true,
	}

	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, sqlitePrefix) {
		dialector = sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix))
	} else {
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dialector.Name() == "sqlite" {
		// SQLite serializes writers; one connection avoids "database is locked".
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// NewMemoryDatabase opens a migrated in-memory SQLite database
func NewMemoryDatabase() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate runs database migrations using GORM
func AutoMigrate(db *gorm.DB) error {
	log.Debug().Msg("Running GORM AutoMigrate")

	if err := db.AutoMigrate(models.GetAllModels()...); err != nil {
		return fmt.Errorf("failed to run GORM AutoMigrate: %w", err)
	}

	if err := createCustomIndexes(db); err != nil {
		return fmt.Errorf("failed to create custom indexes: %w", err)
	}

	return nil
}

// createCustomIndexes creates indexes spanning embedded tenant columns,
// which struct tags cannot express.
func createCustomIndexes(db *gorm.DB) error {
	indexes := []string{
		// Contact deduplication anchor
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_contacts_tenant_phone ON contacts(tenant_id, phone)`,

		`CREATE INDEX IF NOT EXISTS idx_leads_tenant_contact_created ON leads(tenant_id, contact_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_tenant_lead_created ON messages(tenant_id, lead_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_pipeline_stages_tenant_position ON pipeline_stages(tenant_id, position)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return fmt.Errorf("%s: %w", idx, err)
		}
	}

	return nil
}

// RunMigrations is the main migration function called from main.go
func RunMigrations(db *gorm.DB) error {
	log.Info().Msg("Starting database migrations")

	if err := AutoMigrate(db); err != nil {
		return fmt.Errorf("AutoMigrate failed: %w", err)
	}

	log.Info().Msg("Database migrations completed")
	return nil
}
