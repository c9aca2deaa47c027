package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is the subset of redis.Cmdable the slot cache needs. *redis.Client satisfies it.
type Client interface {
	redis.Scripter
	Get(ctx context.Context, key string) *redis.StringCmd
}

// generationTTL keeps per-date generation counters around well past any in-flight listing.
const generationTTL = 48 * time.Hour

// KEYS[1] generation, KEYS[2] listing. ARGV: expected generation, payload, ttl ms.
var setIfGenerationScript = redis.NewScript(`
local gen = redis.call("GET", KEYS[1]) or "0"
if gen ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

// KEYS[1] generation, KEYS[2] listing. ARGV[1] generation ttl ms.
var invalidateScript = redis.NewScript(`
local gen = redis.call("INCR", KEYS[1])
redis.call("PEXPIRE", KEYS[1], ARGV[1])
redis.call("DEL", KEYS[2])
return gen
`)

// SlotCache stores free-slot listings per calendar date in Redis. Entries expire after ttl so a
// missed invalidation heals on its own.
//
// Every date also carries a generation counter that Invalidate bumps. A listing is only
// written when the generation it was computed under is still current, so a listing that
// raced a booking is dropped instead of cached.
type SlotCache struct {
	rdb    Client
	ttl    time.Duration
	prefix string
}

func NewSlotCache(rdb Client, ttl time.Duration, prefix string) *SlotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "appointmate:slots"
	}
	return &SlotCache{rdb: rdb, ttl: ttl, prefix: prefix}
}

// Both keys of a date share a hash tag so the scripts stay on one cluster slot.
func (c *SlotCache) key(day string) string {
	return c.prefix + ":{" + day + "}"
}

func (c *SlotCache) genKey(day string) string {
	return c.key(day) + ":gen"
}

func (c *SlotCache) Get(ctx context.Context, day string) ([]time.Time, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(day)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var slots []time.Time
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, false, fmt.Errorf("decode cached slots for %s: %w", day, err)
	}
	return slots, true, nil
}

// Generation reads the current generation of day. Read it before computing a listing and
// hand it to Set.
func (c *SlotCache) Generation(ctx context.Context, day string) (int64, error) {
	gen, err := c.rdb.Get(ctx, c.genKey(day)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Set stores slots for day if day is still at generation gen. It reports whether the
// listing was stored.
func (c *SlotCache) Set(ctx context.Context, day string, gen int64, slots []time.Time) (bool, error) {
	if slots == nil {
		slots = []time.Time{}
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return false, err
	}
	n, err := setIfGenerationScript.Run(ctx, c.rdb,
		[]string{c.genKey(day), c.key(day)},
		strconv.FormatInt(gen, 10), raw, c.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *SlotCache) Invalidate(ctx context.Context, days ...string) error {
	seen := make(map[string]struct{}, len(days))
	var errs []error
	for _, d := range days {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		err := invalidateScript.Run(ctx, c.rdb,
			[]string{c.genKey(d), c.key(d)},
			generationTTL.Milliseconds(),
		).Err()
		if err != nil {
			errs = append(errs, fmt.Errorf("invalidate %s: %w", d, err))
		}
	}
	return errors.Join(errs...)
}
