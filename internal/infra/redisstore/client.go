// Package redisstore provides the Redis-backed per-user document store and
// the keyword index of the song catalog.
package redisstore

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"
)

const (
	defaultPrefix  = "harmony"
	pingTimeout    = 5 * time.Second
	defaultTimeout = 3 * time.Second
)

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Client wraps a go-redis client with the key prefix used by this application.
type Client struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  defaultTimeout,
		WriteTimeout: defaultTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, errors.Wrapf(err, "failed to ping redis at %s", cfg.Addr)
	}

	zlog.Info().Msgf("redisstore: connected: addr=%s, db=%d", cfg.Addr, cfg.DB)
	return Wrap(rdb, cfg.Prefix), nil
}

// Wrap builds a client around an existing connection.
func Wrap(rdb redis.UniversalClient, prefix string) *Client {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Client{rdb: rdb, prefix: prefix}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) key(parts ...string) string {
	k := c.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}
