package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const ThrottleCooldownCapSeconds = 30

// LoginThrottle tracks failed logins per username. Each failure imposes a
// cooldown of CooldownSecondsForFailCount(failures) seconds.
type LoginThrottle interface {
	WaitSeconds(ctx context.Context, username string) (int, error)
	RecordFailure(ctx context.Context, username string) error
	RecordSuccess(ctx context.Context, username string) error
}

// CooldownSecondsForFailCount returns min(30, 2^failCount).
func CooldownSecondsForFailCount(failCount int) int {
	if failCount > 10 {
		return ThrottleCooldownCapSeconds
	}
	s := int(math.Pow(2, float64(failCount)))
	if s > ThrottleCooldownCapSeconds {
		return ThrottleCooldownCapSeconds
	}
	return s
}

func waitUntil(until, now time.Time) int {
	if !now.Before(until) {
		return 0
	}
	return int(until.Sub(now).Seconds()) + 1 // round up
}

type throttleEntry struct {
	fails int
	until time.Time
}

// MemoryThrottle is a process-local LoginThrottle.
type MemoryThrottle struct {
	mu      sync.Mutex
	entries map[string]throttleEntry
	now     func() time.Time
}

func NewMemoryThrottle() *MemoryThrottle {
	return &MemoryThrottle{entries: make(map[string]throttleEntry), now: time.Now}
}

func (t *MemoryThrottle) WaitSeconds(ctx context.Context, username string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[username]
	if !ok {
		return 0, nil
	}
	return waitUntil(e.until, t.now()), nil
}

func (t *MemoryThrottle) RecordFailure(ctx context.Context, username string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entries[username]
	e.fails++
	e.until = t.now().Add(time.Duration(CooldownSecondsForFailCount(e.fails)) * time.Second)
	t.entries[username] = e
	return nil
}

func (t *MemoryThrottle) RecordSuccess(ctx context.Context, username string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, username)
	return nil
}

// RedisThrottle shares the throttle between API replicas. The failure
// counter lives under <prefix>:<username>:fails and the cooldown is a key
// that expires when it ends.
type RedisThrottle struct {
	rdb    redis.Cmdable
	prefix string
}

func NewRedisThrottle(rdb redis.Cmdable) *RedisThrottle {
	return &RedisThrottle{rdb: rdb, prefix: "login_throttle"}
}

func (t *RedisThrottle) failsKey(u string) string    { return t.prefix + ":" + u + ":fails" }
func (t *RedisThrottle) cooldownKey(u string) string { return t.prefix + ":" + u + ":cooldown" }

func (t *RedisThrottle) WaitSeconds(ctx context.Context, username string) (int, error) {
	ttl, err := t.rdb.PTTL(ctx, t.cooldownKey(username)).Result()
	if err != nil {
		return 0, fmt.Errorf("throttle ttl: %w", err)
	}
	if ttl <= 0 {
		return 0, nil
	}
	return int(ttl.Seconds()) + 1, nil
}

func (t *RedisThrottle) RecordFailure(ctx context.Context, username string) error {
	fails, err := t.rdb.Incr(ctx, t.failsKey(username)).Result()
	if err != nil {
		return fmt.Errorf("throttle incr: %w", err)
	}
	cooldown := time.Duration(CooldownSecondsForFailCount(int(fails))) * time.Second
	pipe := t.rdb.TxPipeline()
	pipe.Expire(ctx, t.failsKey(username), 24*time.Hour)
	pipe.Set(ctx, t.cooldownKey(username), fails, cooldown)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("throttle cooldown: %w", err)
	}
	return nil
}

func (t *RedisThrottle) RecordSuccess(ctx context.Context, username string) error {
	return t.rdb.Del(ctx, t.failsKey(username), t.cooldownKey(username)).Err()
}
