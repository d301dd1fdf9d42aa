package api

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"PulseBot/db"
	"PulseBot/utils"
)

// ParseAnswerValue turns a typed answer like "75" or "75%" into a value in
// the 0-100 range.
func ParseAnswerValue(text string) (int, error) {
	v := strings.TrimSpace(text)
	v = strings.TrimSpace(strings.TrimSuffix(v, "%"))
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("answer %q is not a number", strings.TrimSpace(text))
	}
	if n < 0 || n > 100 {
		return 0, fmt.Errorf("answer %d is outside the 0-100 range", n)
	}
	return n, nil
}

// acceptAnswer runs the full answer pipeline for one (member, date) check-in:
// the duplicate guard, the ledger insert, the lifecycle flip, the scorecard
// post, and the blocker follow-up question. It reports whether the answer was
// recorded; the first answer for a key wins and later ones are dropped.
func (h *Handler) acceptAnswer(ctx context.Context, userID, date string, value int, dmChannel string) bool {
	responded, err := db.HasResponded(userID, date)
	if err != nil {
		logger.Error("duplicate guard failed", "user", userID, "date", date, "err", err)
		return false
	}
	if responded {
		logger.Info("duplicate answer rejected", "user", userID, "date", date)
		if dmChannel != "" {
			_ = SendMessage(ctx, dmChannel, fmt.Sprintf("You already checked in for %s. Your first answer stands.", date))
		}
		return false
	}

	cfg, err := db.LoadAppConfig()
	if err != nil {
		logger.Error("answer pipeline: load config", "err", err)
		return false
	}
	member := cfg.MemberByID(userID)
	if member == nil {
		logger.Warn("answer from someone not on the team", "user", userID)
		return false
	}

	resp := &db.Response{
		SlackID:     userID,
		Name:        member.Name,
		Role:        member.Role,
		Question:    member.Question,
		Date:        date,
		Value:       value,
		RespondedAt: time.Now().UTC(),
	}
	inserted, err := db.AddResponse(resp)
	if err != nil {
		logger.Error("failed to record answer", "user", userID, "date", date, "err", err)
		return false
	}
	if !inserted {
		// Two deliveries raced; the other one won at the unique index.
		logger.Info("duplicate answer rejected at insert", "user", userID, "date", date)
		return false
	}

	if err := db.MarkResponded(userID, date); err != nil {
		logger.Error("failed to flip lifecycle record", "user", userID, "date", date, "err", err)
	}
	logger.Info("answer recorded", "user", userID, "date", date, "value", value)

	if card, err := h.Engine.ScorecardUpdate(cfg, member, resp); err != nil {
		logger.Error("failed to build scorecard update", "user", userID, "err", err)
	} else if err := h.Messenger.PostScorecardUpdate(card); err != nil {
		logger.Error("failed to post scorecard update", "user", userID, "err", err)
	}

	if err := h.States.Set(ctx, userID, utils.AnswerState{Kind: utils.StateBlocker, Date: date}); err != nil {
		logger.Error("failed to set blocker state", "user", userID, "err", err)
	}
	if dmChannel != "" {
		_ = SendMessage(ctx, dmChannel, fmt.Sprintf(
			":white_check_mark: Got it, *%d%%* recorded for %s.\nAnything blocking you? Reply here, or say `no`.", value, date))
	}
	return true
}
