package testutil

import (
	"testing"

	"pollhub/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens a private in-memory database with the poll schema.
// The pool is pinned to one connection so every query sees the same memory database.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.SetupJoinTable(&models.Question{}, "Voters", &models.QuestionVoter{}); err != nil {
		t.Fatalf("setup join table: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Question{}, &models.Choice{}, &models.QuestionVoter{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
