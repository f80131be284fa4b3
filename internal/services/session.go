package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// SessionDuration is 7 days
	SessionDuration = 7 * 24 * time.Hour
	// SessionKeyPrefix maps a token to the entity id (hex)
	SessionKeyPrefix = "session:"
	// UserSessionKeyPrefix maps an entity id to its current token
	UserSessionKeyPrefix = "user_session:"
)

// Sessions validates bearer tokens against the keyspace the auth subsystem writes.
// CreateSession exists for the seed tool and tests; login itself is not served here.
type Sessions struct {
	client *redis.Client
}

func NewSessions(client *redis.Client) *Sessions {
	return &Sessions{client: client}
}

// CreateSession replaces any existing session for id and returns the new token.
func (s *Sessions) CreateSession(ctx context.Context, id primitive.ObjectID) (string, error) {
	if err := s.InvalidateUserSessions(ctx, id); err != nil {
		return "", err
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, SessionKeyPrefix+token, id.Hex(), SessionDuration)
	pipe.Set(ctx, UserSessionKeyPrefix+id.Hex(), token, SessionDuration)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return token, nil
}

// ValidateSession returns the entity a token belongs to. ok is false for unknown
// or expired tokens.
func (s *Sessions) ValidateSession(ctx context.Context, token string) (primitive.ObjectID, bool, error) {
	if token == "" {
		return primitive.NilObjectID, false, nil
	}

	hex, err := s.client.Get(ctx, SessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return primitive.NilObjectID, false, nil
	}
	if err != nil {
		return primitive.NilObjectID, false, err
	}

	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, false, fmt.Errorf("corrupt session value: %w", err)
	}
	return id, true, nil
}

// RefreshSession extends both keys by SessionDuration from now.
func (s *Sessions) RefreshSession(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("session token is empty")
	}
	hex, err := s.client.Get(ctx, SessionKeyPrefix+token).Result()
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Expire(ctx, SessionKeyPrefix+token, SessionDuration)
	pipe.Expire(ctx, UserSessionKeyPrefix+hex, SessionDuration)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Sessions) InvalidateSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if hex, err := s.client.Get(ctx, SessionKeyPrefix+token).Result(); err == nil && hex != "" {
		s.client.Del(ctx, UserSessionKeyPrefix+hex)
	}
	return s.client.Del(ctx, SessionKeyPrefix+token).Err()
}

func (s *Sessions) InvalidateUserSessions(ctx context.Context, id primitive.ObjectID) error {
	key := UserSessionKeyPrefix + id.Hex()
	if token, err := s.client.Get(ctx, key).Result(); err == nil && token != "" {
		s.client.Del(ctx, SessionKeyPrefix+token)
	}
	return s.client.Del(ctx, key).Err()
}
