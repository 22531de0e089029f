package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Limiter は、API呼び出しなどの操作の頻度を制限するインターフェースです。
type Limiter interface {
	Wait(ctx context.Context) error
}

// RateLimiter は呼び出し間の固定ディレイと、interval あたりの上限回数の両方で頻度を制限します。
type RateLimiter struct {
	mu        sync.Mutex
	limit     int           // interval あたりの上限
	interval  time.Duration // どの単位でリセットするか
	delay     time.Duration // 呼び出し間の最小間隔
	count     int
	lastReset time.Time
	lastCall  time.Time
}

// NewRateLimiter は新しいRateLimiterのインスタンスを生成します。
// limit が 0 以下の場合は上限チェックを行いません。
func NewRateLimiter(limit int, interval, delay time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:     limit,
		interval:  interval,
		delay:     delay,
		lastReset: time.Now(),
	}
}

// Wait は必要であれば待機します。ctx がキャンセルされた場合は待機を中断してエラーを返します。
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	var sleep time.Duration

	// 前回呼び出しからの固定ディレイ
	if !rl.lastCall.IsZero() {
		if d := rl.delay - now.Sub(rl.lastCall); d > 0 {
			sleep = d
		}
	}

	// interval を過ぎたらカウントリセット
	if rl.limit > 0 {
		if now.Sub(rl.lastReset) >= rl.interval {
			rl.count = 0
			rl.lastReset = now
		}
		rl.count++
		if rl.count > rl.limit {
			if d := rl.interval - now.Sub(rl.lastReset); d > sleep {
				slog.Warn("rate limit reached, sleeping", "limit", rl.limit, "sleep", d)
				sleep = d
			}
			rl.count = 1
			rl.lastReset = now.Add(sleep)
		}
	}

	if sleep > 0 {
		timer := time.NewTimer(sleep)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	rl.lastCall = time.Now()
	return nil
}
