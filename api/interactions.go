package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"PulseBot/utils"
)

// HandleSlackInteractions processes block_actions payloads from the prompt
// buttons.
func (h *Handler) HandleSlackInteractions(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	var payload interactionPayload
	if err := json.Unmarshal([]byte(r.FormValue("payload")), &payload); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	if payload.Type != "block_actions" {
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx := context.Background()
	for _, action := range payload.Actions {
		switch {
		case strings.HasPrefix(action.ActionID, actionAnswerPrefix):
			h.handleAnswerButton(ctx, payload, action.Value)
		case action.ActionID == actionCustomAnswer:
			h.handleCustomButton(ctx, payload, action.Value)
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleAnswerButton(ctx context.Context, payload interactionPayload, rawValue string) {
	var answer answerPayload
	if err := json.Unmarshal([]byte(rawValue), &answer); err != nil {
		logger.Error("malformed button value", "err", err)
		return
	}
	// Prompts are DMs, so this only fires on a forwarded or tampered payload.
	if payload.User.ID != answer.SlackID {
		logger.Warn("button clicked by a different user", "clicker", payload.User.ID, "owner", answer.SlackID)
		return
	}
	if answer.Value < 0 || answer.Value > 100 {
		logger.Warn("button value out of range", "user", answer.SlackID, "value", answer.Value)
		return
	}

	if h.acceptAnswer(ctx, answer.SlackID, answer.Date, answer.Value, payload.Channel.ID) {
		if payload.Channel.ID != "" && payload.Message.Ts != "" {
			confirmation := fmt.Sprintf(":white_check_mark: Checked in at *%d%%* for %s.", answer.Value, answer.Date)
			if err := updateMessage(ctx, payload.Channel.ID, payload.Message.Ts, confirmation); err != nil {
				logger.Error("failed to update prompt message", "user", answer.SlackID, "err", err)
			}
		}
	}
}

// handleCustomButton switches the DM into custom-answer mode; the next
// message from the user is parsed as their answer.
func (h *Handler) handleCustomButton(ctx context.Context, payload interactionPayload, rawValue string) {
	var answer answerPayload
	if err := json.Unmarshal([]byte(rawValue), &answer); err != nil {
		logger.Error("malformed button value", "err", err)
		return
	}
	if payload.User.ID != answer.SlackID {
		logger.Warn("button clicked by a different user", "clicker", payload.User.ID, "owner", answer.SlackID)
		return
	}

	state := utils.AnswerState{Kind: utils.StateCustom, Date: answer.Date}
	if err := h.States.Set(ctx, payload.User.ID, state); err != nil {
		logger.Error("failed to set custom-answer state", "user", payload.User.ID, "err", err)
		return
	}
	if payload.Channel.ID != "" {
		_ = SendMessage(ctx, payload.Channel.ID, "Type your answer as a number from 0 to 100, like `75` or `75%`.")
	}
}
