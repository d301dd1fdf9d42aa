package db

import (
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/inconshreveable/log15"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var DB *gorm.DB

var logger = log.New("module", "db")

// Init connects to postgres, migrates the schema and seeds the first admin
// roles. Any failure here is fatal for the process.
func Init() error {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return fmt.Errorf("db: DATABASE_URL is not set")
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("db: connect: %w", err)
	}

	if err := DB.AutoMigrate(&Response{}, &PendingCheckin{}, &RoleGrant{}, &OooEntry{}, &ConfigRecord{}); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}

	if err := seedAdminRoles(); err != nil {
		return fmt.Errorf("db: seed admin roles: %w", err)
	}

	logger.Info("connected to database")
	return nil
}

// seedAdminRoles bootstraps the admin set from ADMIN_USER_IDS on a fresh
// install. Once any grant exists the roles table is authoritative.
func seedAdminRoles() error {
	var count int64
	if err := DB.Model(&RoleGrant{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seeded := 0
	for _, id := range strings.Split(os.Getenv("ADMIN_USER_IDS"), ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		grant := RoleGrant{SlackID: id, Role: RoleAdmin, AddedBy: "SYSTEM", AddedAt: time.Now().UTC()}
		if err := DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&grant).Error; err != nil {
			return err
		}
		seeded++
	}
	if seeded > 0 {
		logger.Info("seeded initial admin roles", "count", seeded)
	}
	return nil
}
