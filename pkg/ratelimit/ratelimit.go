// Package ratelimit 提供按 "{count}/{period}" 规则的平滑速率限制：Redis 存储使用 GCRA（多实例共享），
// 进程内存储使用令牌桶。两者都是匀速回填，"5/minute" 每 12s 恢复一次额度，而非整窗口重置
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimiter defines the interface for rate limiting
type RateLimiter interface {
	// Allow checks if the request is allowed for the given key and limit
	Allow(ctx context.Context, key string, limit Limit) (*Result, error)
}

// Limit defines the rate limit rule
type Limit struct {
	Rate   int
	Period time.Duration
	Burst  int
}

// String 还原为 "{count}/{period}" 形式，同时用作存储键的一部分
func (l Limit) String() string {
	switch l.Period {
	case time.Second:
		return fmt.Sprintf("%d/second", l.Rate)
	case time.Minute:
		return fmt.Sprintf("%d/minute", l.Rate)
	case time.Hour:
		return fmt.Sprintf("%d/hour", l.Rate)
	case 24 * time.Hour:
		return fmt.Sprintf("%d/day", l.Rate)
	default:
		return fmt.Sprintf("%d/%s", l.Rate, l.Period)
	}
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAfter time.Duration
	RetryAfter time.Duration
}

// ParseLimit 解析 "50/minute"、"200 per day" 之类的规则
func ParseLimit(s string) (Limit, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	var count, unit string
	switch {
	case strings.Contains(s, "/"):
		count, unit, _ = strings.Cut(s, "/")
	case strings.Contains(s, " per "):
		count, unit, _ = strings.Cut(s, " per ")
	default:
		return Limit{}, fmt.Errorf("invalid rate limit %q", s)
	}

	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil || n <= 0 {
		return Limit{}, fmt.Errorf("invalid rate limit count in %q", s)
	}

	var period time.Duration
	switch strings.TrimSuffix(strings.TrimSpace(unit), "s") {
	case "second":
		period = time.Second
	case "minute":
		period = time.Minute
	case "hour":
		period = time.Hour
	case "day":
		period = 24 * time.Hour
	default:
		return Limit{}, fmt.Errorf("invalid rate limit period in %q", s)
	}

	return Limit{Rate: n, Period: period, Burst: n}, nil
}

// ParseLimits 批量解析
func ParseLimits(specs []string) ([]Limit, error) {
	limits := make([]Limit, 0, len(specs))
	for _, spec := range specs {
		if strings.TrimSpace(spec) == "" {
			continue
		}
		l, err := ParseLimit(spec)
		if err != nil {
			return nil, err
		}
		limits = append(limits, l)
	}
	return limits, nil
}

// RedisRateLimiter implements RateLimiter using Redis
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
}

// NewRedisRateLimiter creates a new RedisRateLimiter
func NewRedisRateLimiter(rdb redis.UniversalClient) *RedisRateLimiter {
	return &RedisRateLimiter{
		limiter: redis_rate.NewLimiter(rdb),
	}
}

// Allow checks if the request is allowed
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit Limit) (*Result, error) {
	burst := limit.Burst
	if burst <= 0 {
		burst = limit.Rate
	}
	res, err := r.limiter.Allow(ctx, key+":"+limit.String(), redis_rate.Limit{
		Rate:   limit.Rate,
		Period: limit.Period,
		Burst:  burst,
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Remaining:  res.Remaining,
		ResetAfter: res.ResetAfter,
		RetryAfter: res.RetryAfter,
	}, nil
}

// sweepInterval 内存限流器清理空闲条目的最小间隔
const sweepInterval = time.Minute

// MemoryRateLimiter 进程内令牌桶，每个 key+规则 一个 rate.Limiter。
// 令牌已回满的条目与新建条目等价，定期清理，map 大小只取决于近期活跃的 key
type MemoryRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryRateLimiter 创建内存限流器
func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		now:      time.Now,
	}
}

// Allow 消耗一个令牌；不足时返回需要等待的时间
func (m *MemoryRateLimiter) Allow(_ context.Context, key string, limit Limit) (*Result, error) {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return nil, fmt.Errorf("invalid limit %s", limit)
	}
	burst := limit.Burst
	if burst <= 0 {
		burst = limit.Rate
	}
	interval := limit.Period / time.Duration(limit.Rate)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	k := key + ":" + limit.String()
	lim, ok := m.limiters[k]
	if !ok {
		lim = rate.NewLimiter(rate.Every(interval), burst)
		m.limiters[k] = lim
	}

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return nil, fmt.Errorf("limit %s cannot be satisfied", limit)
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return &Result{
			Allowed:    false,
			Remaining:  0,
			ResetAfter: resetAfter(lim.TokensAt(now), burst, interval),
			RetryAfter: delay,
		}, nil
	}

	tokens := lim.TokensAt(now)
	return &Result{
		Allowed:    true,
		Remaining:  int(tokens),
		ResetAfter: resetAfter(tokens, burst, interval),
		RetryAfter: -1,
	}, nil
}

// sweep 删除令牌已回满的条目；调用方持有锁
func (m *MemoryRateLimiter) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < sweepInterval {
		return
	}
	m.lastSweep = now
	for k, lim := range m.limiters {
		if lim.TokensAt(now) >= float64(lim.Burst()) {
			delete(m.limiters, k)
		}
	}
}

func resetAfter(tokens float64, burst int, interval time.Duration) time.Duration {
	missing := float64(burst) - tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing * float64(interval))
}
