package db

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// setupTestDB points the package at a throwaway in-memory database so the
// stores run against the real schema, unique constraints included.
func setupTestDB(t *testing.T) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	// A single connection keeps the in-memory database alive and shared.
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(&Response{}, &PendingCheckin{}, &RoleGrant{}, &OooEntry{}, &ConfigRecord{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	prev := DB
	DB = gdb
	t.Cleanup(func() {
		DB = prev
		_ = sqlDB.Close()
	})
}
