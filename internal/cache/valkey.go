// Package cache provides Valkey (Redis-compatible) client initialization and
// a small key-value abstraction used for sessions and guest prompt storage.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectValkey creates a Valkey client and verifies the connection with a ping.
func ConnectValkey(host, port, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("valkey ping: %w", err)
	}

	slog.Info("valkey connected", "addr", fmt.Sprintf("%s:%s", host, port))
	return client, nil
}

// ValkeyKV is a KV backed by a Valkey client. Every key is stored under
// the configured prefix.
type ValkeyKV struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewValkeyKV wraps client. A zero ttl stores keys without expiry.
func NewValkeyKV(client *redis.Client, prefix string, ttl time.Duration) *ValkeyKV {
	return &ValkeyKV{client: client, prefix: prefix, ttl: ttl}
}

// Get returns the value stored under key. A missing key is not an error.
func (v *ValkeyKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := v.client.Get(ctx, v.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("valkey get %s: %w", key, err)
	}
	return val, true, nil
}

// Set overwrites key with value and resets its TTL.
func (v *ValkeyKV) Set(ctx context.Context, key string, value []byte) error {
	if err := v.client.Set(ctx, v.prefix+key, value, v.ttl).Err(); err != nil {
		return fmt.Errorf("valkey set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key succeeds.
func (v *ValkeyKV) Delete(ctx context.Context, key string) error {
	if err := v.client.Del(ctx, v.prefix+key).Err(); err != nil {
		return fmt.Errorf("valkey del %s: %w", key, err)
	}
	return nil
}

// Count scans the prefix and returns how many keys it holds.
func (v *ValkeyKV) Count(ctx context.Context) (int, error) {
	var cursor uint64
	var n int
	for {
		keys, next, err := v.client.Scan(ctx, cursor, v.prefix+"*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("valkey scan: %w", err)
		}
		n += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return n, nil
}
