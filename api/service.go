// Package api is the Slack-facing surface: the outbound Web API client, the
// prompt and scorecard messenger, and the HTTP handlers for events,
// interactions, and slash commands.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	log "github.com/inconshreveable/log15"
)

var logger = log.New("module", "api")

var httpClient = &http.Client{Timeout: 10 * time.Second}

type slackChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type slackAPIResponse struct {
	OK               bool           `json:"ok"`
	Error            string         `json:"error"`
	Channel          slackChannel   `json:"channel"`
	Channels         []slackChannel `json:"channels"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

func botToken() string {
	return os.Getenv("SLACK_BOT_TOKEN")
}

// slackPost calls a Slack Web API write method. The decoded response is
// returned even on an API-level failure so callers can branch on the error
// code.
func slackPost(ctx context.Context, apiURL string, payload any) (*slackAPIResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("slack: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("slack: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+botToken())

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack: %s: %w", apiURL, err)
	}
	defer resp.Body.Close()

	var out slackAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("slack: decode response: %w", err)
	}
	if !out.OK {
		return &out, fmt.Errorf("slack: %s: %s", apiURL, out.Error)
	}
	return &out, nil
}

func slackGet(ctx context.Context, apiURL string, params url.Values) (*slackAPIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("slack: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+botToken())

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack: %s: %w", apiURL, err)
	}
	defer resp.Body.Close()

	var out slackAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("slack: decode response: %w", err)
	}
	if !out.OK {
		return &out, fmt.Errorf("slack: %s: %s", apiURL, out.Error)
	}
	return &out, nil
}

// SendMessage posts a plain-text message. The channel may be a channel id or
// a user id, which opens a direct message.
func SendMessage(ctx context.Context, channel, text string) error {
	_, err := slackPost(ctx, slackPostMessageURL, map[string]any{
		"channel": channel,
		"text":    text,
	})
	return err
}

func sendBlocks(ctx context.Context, channel, text string, blocks []block) error {
	_, err := slackPost(ctx, slackPostMessageURL, map[string]any{
		"channel": channel,
		"text":    text,
		"blocks":  blocks,
	})
	return err
}

// updateMessage rewrites a previously posted message, dropping its blocks.
// Used to replace the button prompt with a confirmation after a click.
func updateMessage(ctx context.Context, channel, ts, text string) error {
	_, err := slackPost(ctx, slackUpdateMessageURL, map[string]any{
		"channel": channel,
		"ts":      ts,
		"text":    text,
		"blocks":  []block{},
	})
	return err
}
