package redis

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/acmekit/core/storage"
)

// Compile-time check that Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)

const (
	fieldData     = "data"
	fieldModified = "modified"

	defaultScanBatchSize = 1000
)

// Backend stores every object as a hash holding its bytes and the time of
// the last write.
type Backend struct {
	client    redis.Cmdable
	prefix    string
	batchSize int64
}

// NewBackend returns a backend on client. Keys are namespaced with
// cfg.KeyPrefix.
func NewBackend(client redis.Cmdable, cfg Config) *Backend {
	batch := cfg.ScanBatchSize
	if batch <= 0 {
		batch = defaultScanBatchSize
	}
	return &Backend{client: client, prefix: cfg.KeyPrefix, batchSize: batch}
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.HGet(ctx, b.prefix+key, fieldData).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

func (b *Backend) Put(ctx context.Context, key string, data []byte) error {
	err := b.client.HSet(ctx, b.prefix+key,
		fieldData, data,
		fieldModified, time.Now().UTC().UnixNano(),
	).Err()
	if err != nil {
		return fmt.Errorf("redis put %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// List walks the keyspace with SCAN. Objects of one SCAN batch are yielded
// in key order; the overall order follows the server cursor.
func (b *Backend) List(ctx context.Context, prefix string) iter.Seq2[storage.Object, error] {
	return func(yield func(storage.Object, error) bool) {
		match := escapeGlob(b.prefix+prefix) + "*"
		seen := make(map[string]struct{})

		var cursor uint64
		for {
			keys, next, err := b.client.Scan(ctx, cursor, match, b.batchSize).Result()
			if err != nil {
				yield(storage.Object{}, fmt.Errorf("redis scan: %w", err))
				return
			}

			// SCAN may return a key more than once.
			keys = slices.DeleteFunc(keys, func(k string) bool {
				_, dup := seen[k]
				seen[k] = struct{}{}
				return dup
			})
			slices.Sort(keys)

			objects, err := b.stat(ctx, keys)
			if err != nil {
				yield(storage.Object{}, err)
				return
			}
			for _, obj := range objects {
				if !yield(obj, nil) {
					return
				}
			}

			if next == 0 {
				return
			}
			cursor = next
		}
	}
}

// stat reads the modification time of keys in one round trip. Keys removed
// since the scan are skipped.
func (b *Backend) stat(ctx context.Context, keys []string) ([]storage.Object, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	pipe := b.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGet(ctx, key, fieldModified)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis stat: %w", err)
	}

	objects := make([]storage.Object, 0, len(keys))
	for i, cmd := range cmds {
		nanos, err := cmd.Int64()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis stat %s: %w", keys[i], err)
		}
		objects = append(objects, storage.Object{
			Key:          strings.TrimPrefix(keys[i], b.prefix),
			LastModified: time.Unix(0, nanos).UTC(),
		})
	}
	return objects, nil
}

// escapeGlob escapes the SCAN MATCH metacharacters of s.
func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\', '^', '-':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
