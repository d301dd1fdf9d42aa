package db

import (
	"fmt"
	"time"
)

// IsOoo reports whether the member has an absence range containing date.
func IsOoo(slackID, date string) bool {
	var count int64
	err := DB.Model(&OooEntry{}).
		Where("slack_id = ? AND start_date <= ? AND end_date >= ?", slackID, date, date).
		Count(&count).Error
	if err != nil {
		logger.Error("ooo lookup failed", "user", slackID, "date", date, "err", err)
		return false
	}
	return count > 0
}

// GetOooForMember lists the member's current and upcoming absences as of
// asOfDate.
func GetOooForMember(slackID, asOfDate string) ([]OooEntry, error) {
	var entries []OooEntry
	err := DB.Where("slack_id = ? AND end_date >= ?", slackID, asOfDate).
		Order("start_date").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("GetOooForMember: %s: %w", slackID, err)
	}
	return entries, nil
}

func AddOoo(slackID, startDate, endDate, reason, setBy string) error {
	entry := OooEntry{
		SlackID:   slackID,
		StartDate: startDate,
		EndDate:   endDate,
		Reason:    reason,
		SetBy:     setBy,
		CreatedAt: time.Now().UTC(),
	}
	if err := DB.Create(&entry).Error; err != nil {
		return fmt.Errorf("AddOoo: %s: %w", slackID, err)
	}
	return nil
}

// ClearOoo removes the member's current and upcoming absences and returns
// how many entries went.
func ClearOoo(slackID, asOfDate string) (int64, error) {
	result := DB.Where("slack_id = ? AND end_date >= ?", slackID, asOfDate).Delete(&OooEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("ClearOoo: %s: %w", slackID, result.Error)
	}
	return result.RowsAffected, nil
}
