package redisstore

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/osa030/harmony/internal/infra/store"
)

var (
	// ErrEmptyUser is returned when a user store is requested without a user id.
	ErrEmptyUser = errors.New("user id is empty")
)

// UserStore is a store.KV namespaced under harmony:user:<uid>.
type UserStore struct {
	client *Client
	uid    string
}

var _ store.KV = (*UserStore)(nil)

// ForUser returns the document store of a signed-in user.
func (c *Client) ForUser(uid string) (*UserStore, error) {
	if uid == "" {
		return nil, ErrEmptyUser
	}
	return &UserStore{client: c, uid: uid}, nil
}

// UserID returns the owner of the store.
func (s *UserStore) UserID() string {
	return s.uid
}

func (s *UserStore) key(key string) string {
	return s.client.key("user", s.uid, key)
}

// Get decodes the document stored under key into dst.
func (s *UserStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := s.client.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "failed to get %s", key)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, errors.Wrapf(err, "failed to decode %s", key)
	}
	return true, nil
}

// Set writes value under key.
func (s *UserStore) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", key)
	}
	if err := s.client.rdb.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		return errors.Wrapf(err, "failed to set %s", key)
	}
	return nil
}

// Delete removes the document stored under key.
func (s *UserStore) Delete(ctx context.Context, key string) error {
	if err := s.client.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return errors.Wrapf(err, "failed to delete %s", key)
	}
	return nil
}
