package utils

import (
	"context"
	"sync"
	"time"
)

// RateLimiter 令牌桶，rate 为每秒产生的令牌数，burst 为桶容量
type RateLimiter struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	tokens float64
	last   time.Time
	now    func() time.Time
}

// NewRateLimiter rate、burst 小于 1 时按 1 处理，桶初始是满的
func NewRateLimiter(rate int, burst int) *RateLimiter {
	if rate < 1 {
		rate = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rate:   float64(rate),
		burst:  float64(burst),
		tokens: float64(burst),
		last:   time.Now(),
		now:    time.Now,
	}
}

// refill 调用方持有锁
func (rl *RateLimiter) refill() {
	now := rl.now()
	if elapsed := now.Sub(rl.last).Seconds(); elapsed > 0 {
		rl.tokens = min(rl.burst, rl.tokens+elapsed*rl.rate)
	}
	rl.last = now
}

// Allow 有令牌时取走一个并返回 true
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// reserve 预支一个令牌，返回需要等待的时间。令牌可以欠账，后来的调用方依次排队
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	rl.tokens--
	if rl.tokens >= 0 {
		return 0
	}
	return time.Duration(-rl.tokens / rl.rate * float64(time.Second))
}

// cancel 归还 reserve 预支的令牌
func (rl *RateLimiter) cancel() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	rl.tokens = min(rl.burst, rl.tokens+1)
}

// Wait 阻塞到拿到令牌，ctx 结束时归还令牌并返回 ctx.Err()
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := rl.reserve()
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		rl.cancel()
		return ctx.Err()
	}
}
