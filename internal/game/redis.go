package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a SessionStore backed by Redis. Sessions are stored as
// JSON with an optional TTL as a safety net against leaked sessions; the
// owner index lives in a separate key claimed with SETNX so the
// one-active-session-per-identity rule holds across concurrent creates.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration // 0 = no expiration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(id string) string     { return "bn:session:" + id }
func ownerKey(identity string) string { return "bn:active:" + identity }

func (s *RedisStore) Create(ctx context.Context, sess *Session) error {
	ok, err := s.client.SetNX(ctx, ownerKey(sess.Owner), sess.ID, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("claiming active slot: %w", err)
	}
	if !ok {
		existing, err := s.client.Get(ctx, ownerKey(sess.Owner)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("reading active slot: %w", err)
		}
		return &ActiveSessionError{SessionID: existing}
	}

	if err := s.write(ctx, sess); err != nil {
		// Release the slot so the owner is not locked out by a failed create.
		s.client.Del(ctx, ownerKey(sess.Owner))
		return err
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("unmarshaling session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) Update(ctx context.Context, sess *Session) error {
	exists, err := s.client.Exists(ctx, sessionKey(sess.ID)).Result()
	if err != nil {
		return fmt.Errorf("checking session: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return s.write(ctx, sess)
}

func (s *RedisStore) Remove(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	// Release the owner slot only if it still points at this session.
	owned, err := s.client.Get(ctx, ownerKey(sess.Owner)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("reading active slot: %w", err)
	}
	if owned == id {
		if err := s.client.Del(ctx, ownerKey(sess.Owner)).Err(); err != nil {
			return fmt.Errorf("releasing active slot: %w", err)
		}
	}
	return nil
}

func (s *RedisStore) ActiveSession(ctx context.Context, identity string) (string, error) {
	id, err := s.client.Get(ctx, ownerKey(identity)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading active slot: %w", err)
	}
	return id, nil
}

func (s *RedisStore) write(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}
