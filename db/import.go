package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Legacy flat-file layouts from before the database existed.

type legacyHistory struct {
	Responses []legacyResponse `json:"responses"`
}

type legacyResponse struct {
	SlackID     string `json:"slack_id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Question    string `json:"question"`
	Date        string `json:"date"`
	Value       int    `json:"value"`
	RespondedAt string `json:"responded_at"`
	Blocker     string `json:"blocker"`
}

// ImportLegacyData runs the one-time migrations: history.json into the
// responses table and config.json into the config blob. Both are safe to
// run repeatedly; existing rows short-circuit the import.
func ImportLegacyData(dataDir, configPath string) error {
	if err := importHistory(filepath.Join(dataDir, "history.json")); err != nil {
		return err
	}
	if configPath == "" {
		configPath = "config.json"
	}
	return seedConfigFromFile(configPath)
}

// importHistory migrates the legacy response history inside a single
// all-or-nothing transaction, then renames the file out of the way.
func importHistory(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	var count int64
	if err := DB.Model(&Response{}).Count(&count).Error; err != nil {
		return fmt.Errorf("import: count responses: %w", err)
	}
	if count > 0 {
		// Already migrated; leave the file alone.
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("import: read %s: %w", path, err)
	}
	var history legacyHistory
	if err := json.Unmarshal(raw, &history); err != nil {
		return fmt.Errorf("import: parse %s: %w", path, err)
	}

	err = DB.Transaction(func(tx *gorm.DB) error {
		for _, r := range history.Responses {
			respondedAt, err := time.Parse(time.RFC3339, r.RespondedAt)
			if err != nil {
				respondedAt = time.Now().UTC()
			}
			rec := Response{
				SlackID:     r.SlackID,
				Name:        r.Name,
				Role:        r.Role,
				Question:    r.Question,
				Date:        r.Date,
				Value:       r.Value,
				RespondedAt: respondedAt,
				Blocker:     r.Blocker,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("import: migrate %s: %w", path, err)
	}

	if err := os.Rename(path, path+".bak"); err != nil {
		logger.Warn("could not rename imported history file", "path", path, "err", err)
	}
	logger.Info("imported legacy history", "responses", len(history.Responses))
	return nil
}

// seedConfigFromFile loads the config blob from a legacy config.json on
// first run only.
func seedConfigFromFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	var count int64
	if err := DB.Model(&ConfigRecord{}).Where("key = ?", appConfigKey).Count(&count).Error; err != nil {
		return fmt.Errorf("import: check config: %w", err)
	}
	if count > 0 {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("import: read %s: %w", path, err)
	}
	var cfg AppConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("import: parse %s: %w", path, err)
	}
	if err := SaveAppConfig(&cfg); err != nil {
		return fmt.Errorf("import: seed config: %w", err)
	}
	logger.Info("seeded configuration from file", "path", path)
	return nil
}
