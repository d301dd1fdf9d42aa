package db

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AddResponse inserts one answer into the ledger. The (slack_id, date)
// unique constraint is the atomic duplicate arbiter: when another answer for
// the key already exists nothing is written and inserted is false, so two
// near-simultaneous deliveries of the same click cannot both record.
func AddResponse(resp *Response) (inserted bool, err error) {
	result := DB.Clauses(clause.OnConflict{DoNothing: true}).Create(resp)
	if result.Error != nil {
		return false, fmt.Errorf("AddResponse: %s %s: %w", resp.SlackID, resp.Date, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// UpdateBlocker attaches a blocker note to an already-recorded answer.
func UpdateBlocker(slackID, date, blocker string) error {
	err := DB.Model(&Response{}).
		Where("slack_id = ? AND date = ?", slackID, date).
		Update("blocker", blocker).Error
	if err != nil {
		return fmt.Errorf("UpdateBlocker: %s %s: %w", slackID, date, err)
	}
	return nil
}

// GetResponsesForMember returns the member's answers in [fromDate, toDate],
// both inclusive, ordered by date.
func GetResponsesForMember(slackID, fromDate, toDate string) ([]Response, error) {
	var responses []Response
	err := DB.Where("slack_id = ? AND date >= ? AND date <= ?", slackID, fromDate, toDate).
		Order("date").
		Find(&responses).Error
	if err != nil {
		return nil, fmt.Errorf("GetResponsesForMember: %s: %w", slackID, err)
	}
	return responses, nil
}

// GetResponseForDay returns the member's answer for one date, or nil when
// they have not answered.
func GetResponseForDay(slackID, date string) (*Response, error) {
	var resp Response
	err := DB.Where("slack_id = ? AND date = ?", slackID, date).First(&resp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetResponseForDay: %s %s: %w", slackID, date, err)
	}
	return &resp, nil
}
