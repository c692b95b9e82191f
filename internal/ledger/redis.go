package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/nao1215/newsledger/internal/model"
)

// DefaultRedisKey is the hash holding visits when no key is configured.
const DefaultRedisKey = "newsledger:visits"

// advanceScript sets a hash field only when the new value is strictly greater.
// Scripts run atomically on the server, which makes the check-and-set
// linearizable per field without client-side locking.
var advanceScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], ARGV[1])
if cur and tonumber(cur) >= tonumber(ARGV[2]) then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// RedisLedger stores visits as fields of one Redis hash.
type RedisLedger struct {
	client *redis.Client
	key    string
}

// NewRedisLedger wraps an existing client.
func NewRedisLedger(client *redis.Client, key string) *RedisLedger {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisLedger{client: client, key: key}
}

// OpenRedisLedger connects to the Redis server at rawURL and verifies it with PING.
func OpenRedisLedger(ctx context.Context, rawURL, key string) (*RedisLedger, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, storageErr("open", "", fmt.Errorf("invalid redis url: %w", err))
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close() //nolint:errcheck // already failing
		return nil, storageErr("open", "", fmt.Errorf("redis ping failed: %w", err))
	}

	return NewRedisLedger(client, key), nil
}

// Get returns the last recorded visit for id.
func (r *RedisLedger) Get(ctx context.Context, id model.SourceID) (model.Timestamp, bool, error) {
	val, err := r.client.HGet(ctx, r.key, string(id)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storageErr("get", id, err)
	}

	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, storageErr("get", id, fmt.Errorf("malformed visit value %q: %w", val, err))
	}
	return model.Timestamp(ms), true, nil
}

// RecordVisit advances the visit for id to ts if ts is newer.
func (r *RedisLedger) RecordVisit(ctx context.Context, id model.SourceID, ts model.Timestamp) error {
	if id == "" {
		return ErrEmptySourceID
	}
	if err := advanceScript.Run(ctx, r.client, []string{r.key}, string(id), int64(ts)).Err(); err != nil {
		return storageErr("record", id, err)
	}
	return nil
}

// List returns every record sorted by source id.
func (r *RedisLedger) List(ctx context.Context) ([]model.VisitRecord, error) {
	all, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, storageErr("list", "", err)
	}

	records := make([]model.VisitRecord, 0, len(all))
	for id, val := range all {
		ms, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return nil, storageErr("list", model.SourceID(id), fmt.Errorf("malformed visit value %q: %w", val, err))
		}
		records = append(records, model.VisitRecord{
			SourceID:      model.SourceID(id),
			LastVisitedAt: model.Timestamp(ms),
		})
	}
	sortRecords(records)
	return records, nil
}

// Close closes the Redis client.
func (r *RedisLedger) Close() error {
	return r.client.Close()
}
