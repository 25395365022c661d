package database

import (
	"fmt"

	"github.com/sajangpost/caption-api/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the Postgres connection used for caption records, usage logs
// and the exemplar corpus.
func Connect(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Migrate runs schema migrations. The exemplar embedding column is pgvector,
// which GORM does not model, so it is created with raw DDL after AutoMigrate.
func Migrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("failed to create pgvector extension: %w", err)
	}

	if err := db.AutoMigrate(
		&models.CaptionRecord{},
		&models.UsageLog{},
		&models.ExemplarCaption{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := db.Exec(
		"ALTER TABLE exemplar_captions ADD COLUMN IF NOT EXISTS embedding vector(1536)",
	).Error; err != nil {
		return fmt.Errorf("failed to add embedding column: %w", err)
	}

	// Approximate nearest neighbour index for cosine distance lookups.
	if err := db.Exec(
		"CREATE INDEX IF NOT EXISTS idx_exemplar_embedding ON exemplar_captions " +
			"USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)",
	).Error; err != nil {
		return fmt.Errorf("failed to create embedding index: %w", err)
	}

	return nil
}
