// Package chat stores per-organization message history. Messages live
// in Redis as a JSON list per organization; any member may read and
// post.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"capitalapi/internal/apperr"
	"capitalapi/internal/authz"
)

const maxTextLen = 500

// Message is one chat entry in an organization's room.
type Message struct {
	ID             string    `json:"id"`
	OrganizationID int       `json:"organization_id"`
	UserEmail      string    `json:"user_email"`
	Text           string    `json:"text"`
	SentAt         time.Time `json:"sent_at"`
}

// Store persists and replays messages per organization.
type Store interface {
	Append(ctx context.Context, msg Message) error
	History(ctx context.Context, orgID, limit int) ([]Message, error)
}

// RedisStore keeps each organization's history in a Redis list.
type RedisStore struct {
	Rdb *redis.Client
}

func key(orgID int) string {
	return fmt.Sprintf("chat:org:%d", orgID)
}

func (s *RedisStore) Append(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.Rdb.RPush(ctx, key(msg.OrganizationID), body).Err()
}

func (s *RedisStore) History(ctx context.Context, orgID, limit int) ([]Message, error) {
	entries, err := s.Rdb.LRange(ctx, key(orgID), int64(-limit), -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(entries))
	for _, entry := range entries {
		var msg Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

type Service struct {
	Store Store
	Authz *authz.Engine
}

func New(store Store, az *authz.Engine) *Service {
	return &Service{Store: store, Authz: az}
}

// Post saves a message to the organization's room on behalf of the
// caller.
func (s *Service) Post(ctx context.Context, orgID, callerID int, email, text string) (*Message, error) {
	if err := s.Authz.Authorize(ctx, callerID, orgID, authz.OpChat); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, apperr.Validation("text", "message text is required")
	}
	if utf8.RuneCountInString(text) > maxTextLen {
		return nil, apperr.Validation("text", fmt.Sprintf("message text must not exceed %d characters", maxTextLen))
	}
	msg := Message{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		UserEmail:      email,
		Text:           text,
		SentAt:         time.Now().UTC(),
	}
	if err := s.Store.Append(ctx, msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// History returns up to limit most recent messages, oldest first.
func (s *Service) History(ctx context.Context, orgID, callerID, limit int) ([]Message, error) {
	if err := s.Authz.Authorize(ctx, callerID, orgID, authz.OpChat); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	return s.Store.History(ctx, orgID, limit)
}
