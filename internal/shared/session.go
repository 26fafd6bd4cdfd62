package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionData is the payload stored in Redis for an authenticated session.
// Permissions are resolved once at login and travel with the session; role
// changes take effect on the next login.
type SessionData struct {
	UserID      int64    `json:"user_id"`
	ClientID    string   `json:"client_id"`
	Email       string   `json:"email"`
	Permissions []string `json:"permissions,omitempty"`
}

// SessionManager orchestrates bearer-token sessions backed by Redis.
type SessionManager struct {
	client *redis.Client
	ttl    time.Duration
}

// ErrSessionNotFound indicates the token is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, ttl time.Duration) *SessionManager {
	return &SessionManager{client: client, ttl: ttl}
}

// Create stores the session payload and returns an opaque token.
func (sm *SessionManager) Create(ctx context.Context, data SessionData) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	if err := sm.client.Set(ctx, sm.redisKey(token), payload, sm.ttl).Err(); err != nil {
		return "", fmt.Errorf("shared/session: store: %w", err)
	}
	return token, nil
}

// Get loads the session payload for a token and refreshes its TTL.
func (sm *SessionManager) Get(ctx context.Context, token string) (SessionData, error) {
	if token == "" {
		return SessionData{}, ErrSessionNotFound
	}
	payload, err := sm.client.Get(ctx, sm.redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return SessionData{}, ErrSessionNotFound
		}
		return SessionData{}, fmt.Errorf("shared/session: load: %w", err)
	}
	var data SessionData
	if err := json.Unmarshal(payload, &data); err != nil {
		return SessionData{}, fmt.Errorf("shared/session: decode: %w", err)
	}
	_ = sm.client.Expire(ctx, sm.redisKey(token), sm.ttl).Err()
	return data, nil
}

// Delete removes a session, logging the user out.
func (sm *SessionManager) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return sm.client.Del(ctx, sm.redisKey(token)).Err()
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

func (sm *SessionManager) redisKey(token string) string {
	return "session:" + token
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
