package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StateCustom  = "custom"
	StateBlocker = "blocker"

	stateTTL = 12 * time.Hour
)

// AnswerState tracks a short-lived DM conversation: what the next free-text
// message from a user means. Kind is StateCustom (awaiting a typed answer
// value) or StateBlocker (awaiting an optional blocker note).
type AnswerState struct {
	Kind string `json:"kind"`
	Date string `json:"date"`
}

// StateStore keeps conversation state in redis with a TTL so abandoned
// conversations expire on their own.
type StateStore struct {
	client *redis.Client
}

func NewStateStore() (*StateStore, error) {
	url := strings.TrimSpace(os.Getenv("REDIS_URL"))
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &StateStore{client: client}, nil
}

func stateKey(userID string) string {
	return "answer_state:" + userID
}

func (s *StateStore) Set(ctx context.Context, userID string, state AnswerState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, stateKey(userID), data, stateTTL).Err()
}

// Get returns nil when the user has no pending conversation.
func (s *StateStore) Get(ctx context.Context, userID string) (*AnswerState, error) {
	val, err := s.client.Get(ctx, stateKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state AnswerState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *StateStore) Clear(ctx context.Context, userID string) error {
	return s.client.Del(ctx, stateKey(userID)).Err()
}
