package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/promptcraft-portal/pkg/promptcraft"
)

const keyPrefix = "promptcraft:session:"

// Record is what survives between requests for one session: the upstream
// credential pair and the profile loaded with it.
type Record struct {
	ID           string            `json:"id"`
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token,omitempty"`
	TokenType    string            `json:"token_type,omitempty"`
	User         *promptcraft.User `json:"user,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Store persists session records by ID.
type Store interface {
	Load(ctx context.Context, id string) (Record, error)
	Save(ctx context.Context, record Record, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps records as JSON values with a TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore builds a Store on top of client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Load returns ErrNoSession when the record is missing or expired.
func (s *RedisStore) Load(ctx context.Context, id string) (Record, error) {
	raw, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNoSession
		}
		return Record{}, fmt.Errorf("load session: %w", err)
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, fmt.Errorf("decode session: %w", err)
	}
	return record, nil
}

func (s *RedisStore) Save(ctx context.Context, record Record, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+record.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
