package repo

import (
	"context"
	"fmt"

	"github.com/go-redis/redis"
	"github.com/zeebo/errs"

	"github.com/light-bringer/storefront-catalog/internal/app/catalog/contracts"
	"github.com/light-bringer/storefront-catalog/internal/app/catalog/domain"
	"github.com/light-bringer/storefront-catalog/internal/pkg/clock"
)

const (
	redisKeyPrefix     = "catalog:metadata:"
	redisScanBatch     = 200
	redisMergeAttempts = 5
)

// RedisError is the error class for the Redis backend.
var RedisError = errs.Class("redis metadata store")

// RedisStore implements MetadataStore with one JSON string per key.
// Set uses WATCH/MULTI so a merge never writes over a record that changed
// between its read and its write.
type RedisStore struct {
	db    *redis.Client
	clock clock.Clock
}

var _ contracts.MetadataStore = (*RedisStore)(nil)

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(addr, password string, db int, clk clock.Clock) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping().Err(); err != nil {
		_ = client.Close()
		return nil, RedisError.New("ping failed: %v", err)
	}

	return &RedisStore{db: client, clock: clk}, nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.db.Close()
}

// Get reads one document.
func (s *RedisStore) Get(ctx context.Context, key string) (*domain.MetadataRecord, error) {
	data, err := s.db.WithContext(ctx).Get(redisKeyPrefix + key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, RedisError.Wrap(fmt.Errorf("failed to get %s: %w", key, err))
	}
	return decodeRecord(key, data)
}

// Set merges patch into the stored document.
func (s *RedisStore) Set(ctx context.Context, key string, patch domain.MetadataPatch) (*domain.MetadataRecord, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	client := s.db.WithContext(ctx)
	rkey := redisKeyPrefix + key

	var merged *domain.MetadataRecord
	txf := func(tx *redis.Tx) error {
		var existing *domain.MetadataRecord
		data, err := tx.Get(rkey).Bytes()
		switch {
		case err == redis.Nil:
		case err != nil:
			return err
		default:
			existing, err = decodeRecord(key, data)
			if err != nil {
				return err
			}
		}

		merged = domain.MergeMetadata(existing, key, patch, s.clock.Now())
		encoded, err := encodeRecord(merged)
		if err != nil {
			return err
		}

		_, err = tx.Pipelined(func(pipe redis.Pipeliner) error {
			pipe.Set(rkey, encoded, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < redisMergeAttempts; attempt++ {
		err := client.Watch(txf, rkey)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, RedisError.Wrap(fmt.Errorf("failed to set %s: %w", key, err))
		}
		return merged, nil
	}
	return nil, RedisError.New("failed to set %s: too much contention", key)
}

// Delete removes the document.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Del(redisKeyPrefix + key).Err(); err != nil {
		return RedisError.Wrap(fmt.Errorf("failed to delete %s: %w", key, err))
	}
	return nil
}

// Scan walks the key space with SCAN and fetches documents with MGET.
func (s *RedisStore) Scan(ctx context.Context) ([]*domain.MetadataRecord, error) {
	client := s.db.WithContext(ctx)

	var (
		out    []*domain.MetadataRecord
		cursor uint64
	)
	seen := make(map[string]struct{})
	for {
		keys, next, err := client.Scan(cursor, redisKeyPrefix+"*", redisScanBatch).Result()
		if err != nil {
			return nil, RedisError.Wrap(fmt.Errorf("failed to scan: %w", err))
		}
		// SCAN may return a key more than once.
		keys = unseenKeys(keys, seen)

		if len(keys) > 0 {
			values, err := client.MGet(keys...).Result()
			if err != nil {
				return nil, RedisError.Wrap(fmt.Errorf("failed to fetch batch: %w", err))
			}
			for i, v := range values {
				str, ok := v.(string)
				if !ok {
					// deleted between SCAN and MGET
					continue
				}
				rec, err := decodeRecord(keys[i][len(redisKeyPrefix):], []byte(str))
				if err != nil {
					return nil, err
				}
				out = append(out, rec)
			}
		}

		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}

// unseenKeys drops keys already in seen and records the rest.
func unseenKeys(keys []string, seen map[string]struct{}) []string {
	out := keys[:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
