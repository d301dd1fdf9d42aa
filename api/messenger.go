package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"PulseBot/db"
)

// Messenger delivers prompts, follow-ups, and scorecard posts. It caches the
// scorecard channel id after the first successful lookup.
type Messenger struct {
	mu        sync.Mutex
	channelID string
}

func NewMessenger() *Messenger {
	return &Messenger{}
}

// promptBlocks renders the check-in prompt: the member's question plus the
// quick percentage buttons and a custom-entry button. Every button value
// carries the full answer payload.
func promptBlocks(member *db.TeamMember, date, lead string) ([]block, error) {
	question := member.Question
	if question == "" {
		question = "How did you do against your goal? (0-100%)"
	}

	elements := make([]buttonElement, 0, len(quickAnswers)+1)
	for _, v := range quickAnswers {
		value, err := json.Marshal(answerPayload{SlackID: member.SlackID, Date: date, Value: v})
		if err != nil {
			return nil, fmt.Errorf("messenger: encode answer: %w", err)
		}
		elements = append(elements, buttonElement{
			Type:     "button",
			Text:     &textObject{Type: "plain_text", Text: fmt.Sprintf("%d%%", v), Emoji: true},
			ActionID: fmt.Sprintf("%s%d", actionAnswerPrefix, v),
			Value:    string(value),
		})
	}
	custom, err := json.Marshal(answerPayload{SlackID: member.SlackID, Date: date, Value: -1})
	if err != nil {
		return nil, fmt.Errorf("messenger: encode answer: %w", err)
	}
	elements = append(elements, buttonElement{
		Type:     "button",
		Text:     &textObject{Type: "plain_text", Text: "Custom...", Emoji: true},
		ActionID: actionCustomAnswer,
		Value:    string(custom),
	})

	return []block{
		{Type: "section", Text: &textObject{Type: "mrkdwn", Text: lead + "\n" + question}},
		{Type: "actions", Elements: elements},
	}, nil
}

// SendCheckinPrompt opens the member's DM with today's question.
func (m *Messenger) SendCheckinPrompt(member *db.TeamMember, date string) error {
	ctx := context.Background()
	lead := fmt.Sprintf(":wave: Hi %s! Time for your check-in (%s).", member.Name, date)
	blocks, err := promptBlocks(member, date, lead)
	if err != nil {
		return err
	}
	return sendBlocks(ctx, member.SlackID, "Time for your check-in.", blocks)
}

// SendFollowup re-prompts a member who has not answered for date yet.
func (m *Messenger) SendFollowup(member *db.TeamMember, date string, attempt int) error {
	ctx := context.Background()
	lead := fmt.Sprintf(":bell: Reminder %d: I still need your check-in for %s.", attempt, date)
	if attempt == 1 {
		lead = fmt.Sprintf(":wave: Friendly reminder, I still need your check-in for %s.", date)
	}
	blocks, err := promptBlocks(member, date, lead)
	if err != nil {
		return err
	}
	return sendBlocks(ctx, member.SlackID, "Check-in reminder.", blocks)
}

// findChannel pages through public channels looking for name. Empty id means
// not found.
func findChannel(ctx context.Context, name string) (string, error) {
	cursor := ""
	for {
		params := url.Values{
			"types":            {"public_channel"},
			"exclude_archived": {"true"},
			"limit":            {"200"},
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		out, err := slackGet(ctx, slackConvListURL, params)
		if err != nil {
			return "", err
		}
		for _, ch := range out.Channels {
			if ch.Name == name {
				return ch.ID, nil
			}
		}
		cursor = out.ResponseMetadata.NextCursor
		if cursor == "" {
			return "", nil
		}
	}
}

// EnsureScorecardChannel finds or creates the configured scorecard channel
// and invites the current team into it. Safe to call repeatedly.
func (m *Messenger) EnsureScorecardChannel(cfg *db.AppConfig) error {
	ctx := context.Background()
	name := cfg.ScorecardChannelName

	id, err := findChannel(ctx, name)
	if err != nil {
		return err
	}
	if id == "" {
		out, err := slackPost(ctx, slackConvCreateURL, map[string]any{"name": name})
		if err != nil {
			// Lost a create race; the channel exists now.
			if out == nil || out.Error != "name_taken" {
				return err
			}
			if id, err = findChannel(ctx, name); err != nil {
				return err
			}
		} else {
			id = out.Channel.ID
			logger.Info("created scorecard channel", "channel", name, "id", id)
		}
	}

	var members []string
	for _, mem := range cfg.Team {
		if !mem.Placeholder() {
			members = append(members, mem.SlackID)
		}
	}
	if len(members) > 0 {
		out, err := slackPost(ctx, slackConvInviteURL, map[string]any{
			"channel": id,
			"users":   strings.Join(members, ","),
		})
		if err != nil && (out == nil || out.Error != "already_in_channel") {
			logger.Warn("could not invite team to scorecard channel", "err", err)
		}
	}

	m.mu.Lock()
	m.channelID = id
	m.mu.Unlock()
	return nil
}

// channel returns the scorecard channel id, resolving it on first use.
func (m *Messenger) channel() (string, error) {
	m.mu.Lock()
	id := m.channelID
	m.mu.Unlock()
	if id != "" {
		return id, nil
	}
	cfg, err := db.LoadAppConfig()
	if err != nil {
		return "", err
	}
	if err := m.EnsureScorecardChannel(cfg); err != nil {
		return "", err
	}
	m.mu.Lock()
	id = m.channelID
	m.mu.Unlock()
	return id, nil
}

// PostScorecardUpdate posts a per-answer summary to the scorecard channel.
func (m *Messenger) PostScorecardUpdate(text string) error {
	id, err := m.channel()
	if err != nil {
		return err
	}
	return SendMessage(context.Background(), id, text)
}

// PostWeeklyReport posts the weekly report to the scorecard channel.
func (m *Messenger) PostWeeklyReport(report string) error {
	id, err := m.channel()
	if err != nil {
		return err
	}
	return SendMessage(context.Background(), id, report)
}
