package session

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore keeps sessions in Redis so several server replicas can share them.
// Keys are laid out as `/<prefix>/sessions/<sessionID>` and carry a TTL that
// follows the session's expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, prefix string, logger zerolog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger.With().Str("component", "redis_store").Logger(),
	}
}

// DialRedisStore connects to redisURL and verifies the connection with PING.
func DialRedisStore(ctx context.Context, redisURL, prefix string, logger zerolog.Logger) (*RedisStore, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse redis URL")
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "failed to connect to redis")
	}
	return NewRedisStore(client, prefix, logger), nil
}

func (s *RedisStore) key(sessionID string) string {
	return path.Join(s.prefix, "sessions", sessionID)
}

func (s *RedisStore) Set(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "failed to marshal session")
	}

	// Keep a short grace period so ValidateSession can still report
	// SESSION_EXPIRED instead of SESSION_NOT_FOUND.
	ttl := time.Until(session.ExpiresAt) + time.Minute
	if err := s.client.Set(ctx, s.key(session.ID), data, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to store session in redis")
	}
	return nil
}

// Replace writes with SET XX so a session deleted concurrently stays deleted.
func (s *RedisStore) Replace(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "failed to marshal session")
	}

	ttl := time.Until(session.ExpiresAt) + time.Minute
	err = s.client.SetArgs(ctx, s.key(session.ID), data, redis.SetArgs{Mode: "XX", TTL: ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return NewSessionNotFoundError(session.ID)
	}
	if err != nil {
		return errors.Wrap(err, "failed to replace session in redis")
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, NewSessionNotFoundError(sessionID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get session from redis")
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal session")
	}
	return &session, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	n, err := s.client.Del(ctx, s.key(sessionID)).Result()
	if err != nil {
		return errors.Wrap(err, "failed to delete session from redis")
	}
	if n == 0 {
		return NewSessionNotFoundError(sessionID)
	}
	return nil
}

func (s *RedisStore) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.key("*"), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan sessions")
	}
	return keys, nil
}

func (s *RedisStore) List(ctx context.Context) ([]*Session, error) {
	keys, err := s.keys(ctx)
	if err != nil || len(keys) == 0 {
		return nil, err
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load sessions")
	}

	sessions := make([]*Session, 0, len(values))
	for i, v := range values {
		// Keys can expire between SCAN and MGET.
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var session Session
		if err := json.Unmarshal([]byte(raw), &session); err != nil {
			s.logger.Warn().Err(err).Str("key", keys[i]).Msg("Skipping malformed session")
			continue
		}
		sessions = append(sessions, &session)
	}
	return sessions, nil
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	keys, err := s.keys(ctx)
	return len(keys), err
}

func (s *RedisStore) Kind() string {
	return "redis"
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
