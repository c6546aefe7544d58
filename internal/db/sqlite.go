package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/utils"
)

type SQLiteService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewSQLiteService opens a file-backed (or :memory:) SQLite database.
// Used for local single-node deployments and by the test suites.
func NewSQLiteService(log *logger.Logger) (*SQLiteService, error) {
	serviceLog := log.With("service", "SQLiteService")

	path := utils.GetEnv("SQLITE_PATH", "pagecraft.db", log)

	serviceLog.Info("Opening SQLite database...", "path", path)
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		serviceLog.Error("Failed to open SQLite database", "error", err)
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	return &SQLiteService{db: gdb, log: serviceLog}, nil
}

func (s *SQLiteService) AutoMigrateAll() error {
	s.log.Info("Auto migrating sqlite tables...")
	if err := s.db.AutoMigrate(AllModels()...); err != nil {
		s.log.Error("Auto migration failed for sqlite tables", "error", err)
		return err
	}
	return nil
}

func (s *SQLiteService) DB() *gorm.DB {
	return s.db
}
