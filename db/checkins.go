package db

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// The lifecycle tracker. One row per (member, date) check-in, created when
// the prompt goes out. All operations are per-row; callers loop over members
// and isolate failures so one bad record never aborts a batch.

// MarkCheckinSent records that a prompt was delivered. Idempotent: resending
// for an existing key leaves the row untouched.
func MarkCheckinSent(slackID, name, date string) error {
	rec := PendingCheckin{SlackID: slackID, Name: name, Date: date}
	err := DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("MarkCheckinSent: %s %s: %w", slackID, date, err)
	}
	return nil
}

// MarkResponded flips the responded flag. A missing row is a no-op.
func MarkResponded(slackID, date string) error {
	err := DB.Model(&PendingCheckin{}).
		Where("slack_id = ? AND date = ?", slackID, date).
		Update("responded", true).Error
	if err != nil {
		return fmt.Errorf("MarkResponded: %s %s: %w", slackID, date, err)
	}
	return nil
}

// HasResponded is the de-duplication guard consulted before accepting an
// inbound answer.
func HasResponded(slackID, date string) (bool, error) {
	var count int64
	err := DB.Model(&PendingCheckin{}).
		Where("slack_id = ? AND date = ? AND responded = ?", slackID, date, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("HasResponded: %s %s: %w", slackID, date, err)
	}
	return count > 0, nil
}

// GetPendingFollowups lists the check-ins for date that are still
// unanswered and have not exhausted their follow-up budget.
func GetPendingFollowups(date string, maxFollowups int) ([]PendingCheckin, error) {
	var pending []PendingCheckin
	err := DB.Where("date = ? AND responded = ? AND followup_count < ?", date, false, maxFollowups).
		Find(&pending).Error
	if err != nil {
		return nil, fmt.Errorf("GetPendingFollowups: %s: %w", date, err)
	}
	return pending, nil
}

// IncrementFollowupCount bumps the reminder count after a follow-up is
// delivered. A missing row is a no-op.
func IncrementFollowupCount(slackID, date string) error {
	err := DB.Model(&PendingCheckin{}).
		Where("slack_id = ? AND date = ?", slackID, date).
		UpdateColumn("followup_count", gorm.Expr("followup_count + 1")).Error
	if err != nil {
		return fmt.Errorf("IncrementFollowupCount: %s %s: %w", slackID, date, err)
	}
	return nil
}

// PurgeCheckinsBefore deletes lifecycle records strictly older than cutoff
// and returns how many went.
func PurgeCheckinsBefore(cutoff string) (int64, error) {
	result := DB.Where("date < ?", cutoff).Delete(&PendingCheckin{})
	if result.Error != nil {
		return 0, fmt.Errorf("PurgeCheckinsBefore: %s: %w", cutoff, result.Error)
	}
	return result.RowsAffected, nil
}
