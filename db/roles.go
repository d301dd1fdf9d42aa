package db

import (
	"fmt"
	"time"

	"gorm.io/gorm/clause"
)

// Role predicates re-read the table on every call so authorization is never
// based on a stale grant. Query failures are logged and treated as "no",
// which only ever denies.

func hasRole(slackID, role string) bool {
	var count int64
	err := DB.Model(&RoleGrant{}).Where("slack_id = ? AND role = ?", slackID, role).Count(&count).Error
	if err != nil {
		logger.Error("role lookup failed", "user", slackID, "role", role, "err", err)
		return false
	}
	return count > 0
}

func IsAdmin(slackID string) bool   { return hasRole(slackID, RoleAdmin) }
func IsManager(slackID string) bool { return hasRole(slackID, RoleManager) }

func AdminCount() int64 {
	var count int64
	err := DB.Model(&RoleGrant{}).Where("role = ?", RoleAdmin).Count(&count).Error
	if err != nil {
		logger.Error("admin count failed", "err", err)
		return 0
	}
	return count
}

// AddRole grants a role; granted is false when the user already held it.
func AddRole(slackID, role, addedBy string) (granted bool, err error) {
	grant := RoleGrant{SlackID: slackID, Role: role, AddedBy: addedBy, AddedAt: time.Now().UTC()}
	result := DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&grant)
	if result.Error != nil {
		return false, fmt.Errorf("AddRole: %s %s: %w", slackID, role, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// RemoveRole revokes a role; revoked is false when the user did not hold it.
func RemoveRole(slackID, role string) (revoked bool, err error) {
	result := DB.Where("slack_id = ? AND role = ?", slackID, role).Delete(&RoleGrant{})
	if result.Error != nil {
		return false, fmt.Errorf("RemoveRole: %s %s: %w", slackID, role, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func ListByRole(role string) ([]RoleGrant, error) {
	var grants []RoleGrant
	err := DB.Where("role = ?", role).Order("added_at").Find(&grants).Error
	if err != nil {
		return nil, fmt.Errorf("ListByRole: %s: %w", role, err)
	}
	return grants, nil
}
