package auth

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/stockpoint-erp/stockpoint-erp/internal/shared"
)

// SessionManager keeps bearer sessions in Redis. The token is an opaque UUID;
// the value carries the actor identity resolved by the middleware.
type SessionManager struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{client: client, ttl: ttl}
}

// TTL returns the session lifetime.
func (m *SessionManager) TTL() time.Duration { return m.ttl }

// Create issues a new session token for the user.
func (m *SessionManager) Create(ctx context.Context, user *User) (string, error) {
	token := uuid.NewString()
	value := fmt.Sprintf("%d:%s", user.ID, user.Email)
	if err := m.client.Set(ctx, sessionKey(token), value, m.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve returns the actor behind a token, refreshing its TTL.
func (m *SessionManager) Resolve(ctx context.Context, token string) (shared.Actor, error) {
	value, err := m.client.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return shared.Actor{}, shared.ErrUnauthorized
		}
		return shared.Actor{}, err
	}
	id, email, ok := strings.Cut(value, ":")
	if !ok {
		return shared.Actor{}, shared.ErrUnauthorized
	}
	userID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return shared.Actor{}, shared.ErrUnauthorized
	}
	_ = m.client.Expire(ctx, sessionKey(token), m.ttl).Err()
	return shared.Actor{ID: userID, Email: email}, nil
}

// Destroy revokes a session token.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	return m.client.Del(ctx, sessionKey(token)).Err()
}

func sessionKey(token string) string {
	return "session:" + token
}
