package ratelimiter

import (
	"testing"
	"time"
)

func TestRateLimiter_UnderLimitDoesNotBlock(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(10, time.Minute)

	start := time.Now()
	for i := 0; i < 10; i++ {
		rl.WaitIfNeeded()
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("expected no blocking under the limit, took %v", elapsed)
	}
}

func TestRateLimiter_OverLimitBlocks(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(2, 200*time.Millisecond)

	start := time.Now()
	rl.WaitIfNeeded()
	rl.WaitIfNeeded()
	rl.WaitIfNeeded() // 3回目は次のintervalまで待機する
	elapsed := time.Since(start)

	if elapsed < 100*time.Millisecond {
		t.Errorf("expected third call to block, took %v", elapsed)
	}
}

func TestRateLimiter_ResetsAfterInterval(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, 50*time.Millisecond)

	rl.WaitIfNeeded()
	time.Sleep(60 * time.Millisecond)

	start := time.Now()
	rl.WaitIfNeeded()
	if elapsed := time.Since(start); elapsed > 30*time.Millisecond {
		t.Errorf("expected counter reset after interval, took %v", elapsed)
	}
}
