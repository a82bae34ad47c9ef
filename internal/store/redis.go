// ABOUTME: Redis-backed secondary store mirroring the wallet state best-effort
// ABOUTME: Fetches remote data at load time and receives live snapshots from the pipeline

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRemoteKey = "walletd:state"

// Remote is the optional secondary store. A nil *Remote means the host has
// no secondary backend at all; a constructed-but-disabled Remote means the
// backend exists but the user has turned sync off.
type Remote struct {
	client  *redis.Client
	key     string
	enabled bool
	timeout time.Duration
}

// NewRemote connects to the Redis backend at redisURL. The connection is
// verified with a ping before the store is returned.
func NewRemote(redisURL, key string, enabled bool, timeout time.Duration) (*Remote, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	if key == "" {
		key = defaultRemoteKey
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Remote{
		client:  client,
		key:     key,
		enabled: enabled,
		timeout: timeout,
	}, nil
}

// NewRemoteWithClient builds a Remote from an existing client. Used by tests.
func NewRemoteWithClient(client *redis.Client, enabled bool) *Remote {
	return &Remote{
		client:  client,
		key:     defaultRemoteKey,
		enabled: enabled,
		timeout: 5 * time.Second,
	}
}

// Enabled reports whether the user has remote sync turned on. Safe to
// call on a nil receiver, so a missing backend reads as disabled even
// when the nil pointer travels through an interface value.
func (r *Remote) Enabled() bool {
	return r != nil && r.enabled
}

// Fetch retrieves the remote state document. Returns (nil, nil) when the
// remote slot has never been written.
func (r *Remote) Fetch(ctx context.Context) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.client.Get(ctx, r.key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching remote state: %w", err)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("decoding remote state: %w", err)
	}
	return data, nil
}

// Sync pushes an unwrapped state snapshot to the remote slot.
func (r *Remote) Sync(ctx context.Context, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding remote state: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("syncing remote state: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (r *Remote) Close() error {
	return r.client.Close()
}
