package ratelimit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/clock"
	"go.uber.org/zap"
)

const fixedWindowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`

const keyPrefix = "itsc:rl:"

type Decision struct {
	Allowed    bool
	Count      int
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter counts requests per key in fixed windows. Redis is authoritative
// when configured; on redis errors it degrades to the in-process counter.
type Limiter struct {
	client *redis.Client
	script *redis.Script
	memory *memoryWindow
	log    *zap.Logger
}

func NewLimiter(client *redis.Client, clk clock.Clock, log *zap.Logger) *Limiter {
	return &Limiter{
		client: client,
		script: redis.NewScript(fixedWindowScript),
		memory: newMemoryWindow(clk),
		log:    log.Named("ratelimit"),
	}
}

func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) Decision {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	key = strings.TrimSpace(key)

	if l.client == nil {
		return l.memory.allow(key, limit, window)
	}
	d, err := l.allowRedis(ctx, key, limit, window)
	if err != nil {
		l.log.Warn("redis rate limit check failed, using local counter", zap.String("key", key), zap.Error(err))
		return l.memory.allow(key, limit, window)
	}
	return d
}

func (l *Limiter) allowRedis(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	res, err := l.script.Run(ctx, l.client, []string{keyPrefix + key}, window.Milliseconds()).Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(res) < 2 {
		return Decision{}, errors.New("invalid rate limit script response")
	}

	count := int(castToInt(res[0]))
	ttl := time.Duration(castToInt(res[1])) * time.Millisecond
	if ttl < 0 {
		ttl = window
	}
	return decide(count, limit, ttl), nil
}

func decide(count, limit int, untilReset time.Duration) Decision {
	d := Decision{
		Allowed:   count <= limit,
		Count:     count,
		Limit:     limit,
		Remaining: max(limit-count, 0),
	}
	if !d.Allowed {
		d.RetryAfter = untilReset
	}
	return d
}

func castToInt(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	default:
		return 0
	}
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

type memoryWindow struct {
	mu    sync.Mutex
	clock clock.Clock
	items map[string]windowEntry
}

func newMemoryWindow(clk clock.Clock) *memoryWindow {
	if clk == nil {
		clk = clock.New()
	}
	return &memoryWindow{clock: clk, items: make(map[string]windowEntry)}
}

func (m *memoryWindow) allow(key string, limit int, window time.Duration) Decision {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range m.items {
		if !now.Before(v.resetAt) {
			delete(m.items, k)
		}
	}
	curr, ok := m.items[key]
	if !ok {
		curr = windowEntry{resetAt: now.Add(window)}
	}
	curr.count++
	m.items[key] = curr
	return decide(curr.count, limit, curr.resetAt.Sub(now))
}
