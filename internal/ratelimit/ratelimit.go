// Package ratelimit counts events per key in fixed windows, in process or
// shared through Redis.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Memory is a fixed-window limiter for single-instance deployments.
// Expired windows are dropped at most once per window length.
type Memory struct {
	mu        sync.Mutex
	buckets   map[string]*window
	nextSweep time.Time
	now       func() time.Time
}

type window struct {
	count int
	end   time.Time
}

func NewMemory() *Memory {
	return &Memory{buckets: make(map[string]*window), now: time.Now}
}

func (m *Memory) Allow(_ context.Context, key string, limit int, d time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if !now.Before(m.nextSweep) {
		for k, b := range m.buckets {
			if !now.Before(b.end) {
				delete(m.buckets, k)
			}
		}
		m.nextSweep = now.Add(d)
	}

	b, ok := m.buckets[key]
	if !ok || !now.Before(b.end) {
		m.buckets[key] = &window{count: 1, end: now.Add(d)}
		return true
	}
	if b.count >= limit {
		return false
	}
	b.count++
	return true
}

// Len reports how many windows are held.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}

const script = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

// KeyPrefix namespaces the Redis counters.
const KeyPrefix = "ratelimit:"

// Redis shares counters across instances. Redis failures admit the request.
type Redis struct {
	client redis.Scripter
	script *redis.Script
}

func NewRedis(client redis.Scripter) *Redis {
	return &Redis{client: client, script: redis.NewScript(script)}
}

func (l *Redis) Allow(ctx context.Context, key string, limit int, d time.Duration) bool {
	if key == "" || limit <= 0 || d <= 0 {
		return true
	}
	ttl := d.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}
	ctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	allowed, err := l.script.Run(ctx, l.client, []string{KeyPrefix + key}, ttl, limit).Int64()
	if err != nil {
		return true
	}
	return allowed == 1
}
