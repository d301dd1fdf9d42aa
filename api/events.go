package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"PulseBot/access"
	"PulseBot/db"
	"PulseBot/scheduler"
	"PulseBot/stats"
	"PulseBot/utils"
)

// ConversationStore tracks pending DM conversations per user.
type ConversationStore interface {
	Get(ctx context.Context, userID string) (*utils.AnswerState, error)
	Set(ctx context.Context, userID string, state utils.AnswerState) error
	Clear(ctx context.Context, userID string) error
}

// Handler wires the HTTP surface to the rest of the app.
type Handler struct {
	Messenger *Messenger
	Engine    *stats.Engine
	Policy    *access.Policy
	Scheduler *scheduler.Scheduler
	States    ConversationStore
}

func HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleSlackEvents answers the Events API: the URL verification handshake
// and direct messages. Slack wants a fast 200, so DM processing runs off the
// request goroutine.
func (h *Handler) HandleSlackEvents(w http.ResponseWriter, r *http.Request) {
	var event slackEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "url_verification":
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"challenge": event.Challenge})
		return
	case "event_callback":
		ev := event.Event
		if ev.Type == "message" && ev.ChannelType == "im" && ev.BotID == "" && ev.User != "" {
			go h.handleDirectMessage(context.Background(), ev.User, ev.Text, ev.Channel)
		}
	}
	w.WriteHeader(http.StatusOK)
}

// handleDirectMessage interprets a DM through the user's conversation state:
// a pending custom answer or a pending blocker question. DMs with no state
// are ignored.
func (h *Handler) handleDirectMessage(ctx context.Context, userID, text, channel string) {
	state, err := h.States.Get(ctx, userID)
	if err != nil {
		logger.Error("failed to read conversation state", "user", userID, "err", err)
		return
	}
	if state == nil {
		return
	}

	switch state.Kind {
	case utils.StateCustom:
		value, err := ParseAnswerValue(text)
		if err != nil {
			// Keep the state so the user can try again.
			_ = SendMessage(ctx, channel, ":warning: Please reply with a number from 0 to 100, like `75` or `75%`.")
			return
		}
		if !h.acceptAnswer(ctx, userID, state.Date, value, channel) {
			// Not recorded (usually a duplicate). Drop the pending
			// conversation so later DMs are not misread as answers.
			if err := h.States.Clear(ctx, userID); err != nil {
				logger.Error("failed to clear conversation state", "user", userID, "err", err)
			}
		}

	case utils.StateBlocker:
		if err := h.States.Clear(ctx, userID); err != nil {
			logger.Error("failed to clear conversation state", "user", userID, "err", err)
		}
		note := strings.TrimSpace(text)
		switch strings.ToLower(note) {
		case "", "no", "none", "nope", "nothing":
			_ = SendMessage(ctx, channel, "Great, have a good one! :raised_hands:")
			return
		}
		encrypted, err := utils.Encrypt(note)
		if err != nil {
			logger.Error("failed to encrypt blocker note", "user", userID, "err", err)
			_ = SendMessage(ctx, channel, ":warning: I could not save that, sorry. Please tell your manager directly.")
			return
		}
		if err := db.UpdateBlocker(userID, state.Date, encrypted); err != nil {
			logger.Error("failed to save blocker note", "user", userID, "date", state.Date, "err", err)
			_ = SendMessage(ctx, channel, ":warning: I could not save that, sorry. Please tell your manager directly.")
			return
		}
		logger.Info("blocker note recorded", "user", userID, "date", state.Date)
		_ = SendMessage(ctx, channel, ":memo: Noted, thanks for flagging it.")

	default:
		logger.Warn("unknown conversation state", "user", userID, "kind", state.Kind)
	}
}
