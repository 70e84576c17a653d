// Package calib provides the external calibration cache the OAS engine
// reads model parameters through. Calibrations are JSON blobs keyed by
// currency and date; persistence is a pluggable Store and the read-through
// Cache guarantees at most one concurrent computation per key.
package calib

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Calibration is the persisted parameter set for one currency and date.
type Calibration struct {
	Currency      string    `json:"currency"`
	Date          string    `json:"date"`
	Volatility    float64   `json:"volatility"`
	MeanReversion float64   `json:"mean_reversion"`
	CalibratedAt  time.Time `json:"calibrated_at"`
}

// Key builds the canonical cache key for a currency and date.
func Key(currency string, date time.Time) string {
	return fmt.Sprintf("calib:%s:%s", currency, date.Format("2006-01-02"))
}

// Store persists calibration blobs. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the blob for key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores the blob under key.
	Put(ctx context.Context, key string, value []byte) error
}

// MemoryStore is an in-process Store, used in tests and single-node runs.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	return nil
}

// RedisStore persists calibrations in Redis with a TTL; the usual choice
// when several pricing workers share one calibration set.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. ttl <= 0 means no expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("calib: redis get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("calib: redis set %s: %w", key, err)
	}
	return nil
}

func marshal(c Calibration) ([]byte, error) {
	return json.Marshal(c)
}

func unmarshal(b []byte) (Calibration, error) {
	var c Calibration
	if err := json.Unmarshal(b, &c); err != nil {
		return Calibration{}, fmt.Errorf("calib: decoding blob: %w", err)
	}
	return c, nil
}
