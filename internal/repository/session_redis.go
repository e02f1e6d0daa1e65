package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/assessio/assessio-backend/internal/config"
	"github.com/assessio/assessio-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisSessionStore keeps in-flight sessions and their working audit logs
// in Redis. The session record is a JSON blob; the audit log is an RPUSHed
// list beside it, so appends never rewrite history and both survive a
// process restart.
type RedisSessionStore struct {
	rdb *redis.Client
}

// NewRedisSessionStore creates a new RedisSessionStore.
func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

// Load retrieves the session for the given key, or ErrNotFound.
func (s *RedisSessionStore) Load(ctx context.Context, key model.SessionKey) (*model.ExamSession, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.SessionKey(key.ExamID, key.StudentID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess model.ExamSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Save writes the full session record.
func (s *RedisSessionStore) Save(ctx context.Context, sess *model.ExamSession) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.SessionKey(sess.ExamID, sess.StudentID), raw, 0).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes the session record and its working audit log.
func (s *RedisSessionStore) Delete(ctx context.Context, key model.SessionKey) error {
	if err := s.rdb.Del(ctx,
		config.CacheKey.SessionKey(key.ExamID, key.StudentID),
		config.CacheKey.SessionAuditKey(key.ExamID, key.StudentID),
	).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// AppendAudit appends one entry to the session's working audit log.
func (s *RedisSessionStore) AppendAudit(ctx context.Context, key model.SessionKey, entry model.AuditEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.CacheKey.SessionAuditKey(key.ExamID, key.StudentID), raw).Err(); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// AuditTrail returns the working audit log in append order.
func (s *RedisSessionStore) AuditTrail(ctx context.Context, key model.SessionKey) ([]model.AuditEntry, error) {
	items, err := s.rdb.LRange(ctx, config.CacheKey.SessionAuditKey(key.ExamID, key.StudentID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read audit: %w", err)
	}

	entries := make([]model.AuditEntry, 0, len(items))
	for _, item := range items {
		var e model.AuditEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("decode audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
