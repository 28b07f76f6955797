// Package cache keeps derived ledger artifacts in redis: the latest year-end
// preview, nightly dashboard snapshots, and the lock serialising year-end
// clears. Nothing here is a source of truth.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/coop-ledger/internal/domain"
)

const (
	keyPreview    = "ledger:year-end:preview"
	keyGeneration = "ledger:year-end:generation"
	keyClearLock  = "ledger:year-end:clear-lock"
	keySnapshots  = "ledger:snapshots"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// storePreviewScript sets the preview only while the generation is unchanged.
var storePreviewScript = redis.NewScript(`
local current = redis.call("GET", KEYS[2]) or "0"
if current ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[2])
end
return 1
`)

type RedisCache struct {
	client      *redis.Client
	previewTTL  time.Duration
	lockTTL     time.Duration
	historySize int64
}

func NewRedisCache(client *redis.Client, previewTTL, lockTTL time.Duration, historySize int) *RedisCache {
	if historySize <= 0 {
		historySize = 30
	}
	return &RedisCache{
		client:      client,
		previewTTL:  previewTTL,
		lockTTL:     lockTTL,
		historySize: int64(historySize),
	}
}

// PreviewGeneration returns the counter bumped by every InvalidatePreview.
func (c *RedisCache) PreviewGeneration(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, keyGeneration).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// StorePreview caches the report if no invalidation happened since
// generation was read. stored is false when the report was discarded.
func (c *RedisCache) StorePreview(ctx context.Context, report *domain.DistributionReport, generation int64) (stored bool, err error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return false, fmt.Errorf("marshal preview: %w", err)
	}
	n, err := storePreviewScript.Run(ctx, c.client,
		[]string{keyPreview, keyGeneration},
		generation, payload, c.previewTTL.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// LoadPreview returns the cached preview, or nil when none is stored.
func (c *RedisCache) LoadPreview(ctx context.Context) (*domain.DistributionReport, error) {
	payload, err := c.client.Get(ctx, keyPreview).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var report domain.DistributionReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("unmarshal preview: %w", err)
	}
	return &report, nil
}

// InvalidatePreview drops the cached preview and bumps the generation so
// previews computed before the call are not stored afterwards.
func (c *RedisCache) InvalidatePreview(ctx context.Context) error {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, keyGeneration)
	pipe.Del(ctx, keyPreview)
	_, err := pipe.Exec(ctx)
	return err
}

// AcquireClearLock takes the year-end clear lock. acquired is false when
// another holder has it. The returned release func is safe to call after
// the lock has expired.
func (c *RedisCache) AcquireClearLock(ctx context.Context) (release func(context.Context) error, acquired bool, err error) {
	token := uuid.NewString()

	ok, err := c.client.SetNX(ctx, keyClearLock, token, c.lockTTL).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release = func(ctx context.Context) error {
		return releaseScript.Run(ctx, c.client, []string{keyClearLock}, token).Err()
	}
	return release, true, nil
}

// StoreSnapshot pushes a dashboard snapshot and keeps the newest historySize.
func (c *RedisCache) StoreSnapshot(ctx context.Context, summary *domain.LedgerSummary, takenAt time.Time) error {
	payload, err := json.Marshal(domain.LedgerSnapshot{TakenAt: takenAt, Summary: summary})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, keySnapshots, payload)
	pipe.LTrim(ctx, keySnapshots, 0, c.historySize-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Snapshots returns stored snapshots, newest first.
func (c *RedisCache) Snapshots(ctx context.Context) ([]domain.LedgerSnapshot, error) {
	raw, err := c.client.LRange(ctx, keySnapshots, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	snapshots := make([]domain.LedgerSnapshot, 0, len(raw))
	for _, item := range raw {
		var s domain.LedgerSnapshot
		if err := json.Unmarshal([]byte(item), &s); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, nil
}
