package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "pgnest/internal/domain/auth"
	domainuser "pgnest/internal/domain/user"
)

const (
	tokenKeyPrefix = "session:token:"
	userKeyPrefix  = "session:user:"
)

// SessionStore keeps bearer sessions in Redis so they survive restarts and
// can be shared between server instances. Expiry is delegated to Redis TTLs.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(addr string) (*SessionStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: ping failed: %w", err)
	}
	return &SessionStore{client: client}, nil
}

type sessionRecord struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	if session == nil {
		return domainauth.ErrTokenRequired
	}
	record := sessionRecord{
		Token:     string(session.Token),
		UserID:    string(session.UserID),
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}
	for _, role := range session.Roles {
		record.Roles = append(record.Roles, string(role))
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return domainauth.ErrTTLInvalid
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, tokenKeyPrefix+record.Token, payload, ttl)
	pipe.SAdd(ctx, userKeyPrefix+record.UserID, record.Token)
	pipe.Expire(ctx, userKeyPrefix+record.UserID, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	payload, err := s.client.Get(ctx, tokenKeyPrefix+string(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domainauth.ErrSessionNotFound
		}
		return nil, err
	}
	var record sessionRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, err
	}
	session := &domainauth.Session{
		Token:     domainauth.Token(record.Token),
		UserID:    domainuser.ID(record.UserID),
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}
	for _, role := range record.Roles {
		session.Roles = append(session.Roles, domainuser.Role(role))
	}
	if session.Expired(time.Now()) {
		_ = s.Delete(ctx, token)
		return nil, domainauth.ErrSessionNotFound
	}
	return session, nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	payload, err := s.client.Get(ctx, tokenKeyPrefix+string(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	var record sessionRecord
	if err := json.Unmarshal(payload, &record); err == nil && record.UserID != "" {
		_ = s.client.SRem(ctx, userKeyPrefix+record.UserID, record.Token).Err()
	}
	return s.client.Del(ctx, tokenKeyPrefix+string(token)).Err()
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID domainuser.ID) error {
	tokens, err := s.client.SMembers(ctx, userKeyPrefix+string(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	pipe := s.client.TxPipeline()
	for _, token := range tokens {
		pipe.Del(ctx, tokenKeyPrefix+token)
	}
	pipe.Del(ctx, userKeyPrefix+string(userID))
	_, err = pipe.Exec(ctx)
	return err
}

var _ domainauth.SessionStore = (*SessionStore)(nil)
