package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-crm/internal/listview"
)

const (
	cacheVersionPrefix = "crm:collections:version:"
	bumpChannel        = "crm.collections.bump"
)

// raiseVersion sets the version key only when the published version is newer,
// so a late or reordered bump never rolls the cache back.
var raiseVersion = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0') or 0
local incoming = tonumber(ARGV[1])
if incoming > current then
	redis.call('SET', KEYS[1], ARGV[1])
	return 1
end
return 0
`)

// Loader fetches a collection on a cache miss.
type Loader func(context.Context) ([]listview.Row, error)

// CollectionCache keeps fetched collections in Redis under a per-entity
// version, so a write can invalidate every cached copy with one INCR.
type CollectionCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCollectionCache instantiates the cache helper. A nil client disables
// caching but still de-duplicates concurrent loads.
func NewCollectionCache(client *redis.Client, ttl time.Duration) *CollectionCache {
	return &CollectionCache{client: client, ttl: ttl}
}

// Version returns the current cache version of entity, initialising when missing.
func (c *CollectionCache) Version(ctx context.Context, entity string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	key := cacheVersionPrefix + entity
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, key).Int64()
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, key, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// BuildKey composes the cache key of entity with its current version.
func (c *CollectionCache) BuildKey(ctx context.Context, entity string) (string, error) {
	base := strings.Join([]string{"crm", "collection", entity}, ":")
	if c == nil || c.client == nil {
		return base, nil
	}
	ver, err := c.Version(ctx, entity)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", base, ver), nil
}

// Fetch returns the cached collection of entity or populates it with load.
// Concurrent misses for the same key share one load.
func (c *CollectionCache) Fetch(ctx context.Context, entity string, load Loader) ([]listview.Row, error) {
	if load == nil {
		return nil, errors.New("remote: loader required")
	}
	if c == nil {
		return load(ctx)
	}
	key, err := c.BuildKey(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("remote: cache key %s: %w", entity, err)
	}
	if c.client != nil {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			return DecodeRows(bytes.NewReader(payload))
		}
		if !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("remote: cache get %s: %w", key, err)
		}
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		rows, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []listview.Row{}
		}
		if c.client != nil {
			raw, err := json.Marshal(rows)
			if err != nil {
				return nil, err
			}
			if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
				return nil, fmt.Errorf("remote: cache set %s: %w", key, err)
			}
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	// Callers sharing a load each get their own slice.
	return slices.Clone(value.([]listview.Row)), nil
}

// Bump invalidates the cached collection of entity by incrementing its
// version and publishing an event.
func (c *CollectionCache) Bump(ctx context.Context, entity string) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionPrefix+entity).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, entity+":"+strconv.FormatInt(ver, 10)).Err()
}

// ApplyBump raises the version of entity to ver. Older versions are ignored;
// the result reports whether the stored version moved.
func (c *CollectionCache) ApplyBump(ctx context.Context, entity string, ver int64) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}
	moved, err := raiseVersion.Run(ctx, c.client, []string{cacheVersionPrefix + entity}, ver).Int()
	if err != nil {
		return false, err
	}
	return moved == 1, nil
}

// ListenForInvalidation applies version bumps published by other instances
// until ctx is cancelled. A bump never lowers the stored version.
func (c *CollectionCache) ListenForInvalidation(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, bumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				entity, rawVer, found := strings.Cut(msg.Payload, ":")
				if !found || entity == "" {
					continue
				}
				if ver, err := strconv.ParseInt(rawVer, 10, 64); err == nil {
					_, _ = c.ApplyBump(ctx, entity, ver)
				}
			}
		}
	}()
	return nil
}
