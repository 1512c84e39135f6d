package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Burst_Then_Refill(t *testing.T) {
	req := require.New(t)
	now := time.Now()
	limiter := newRateLimiter(RateLimitConfig{Burst: 3, RefillInterval: 3 * time.Second})
	limiter.lastCheck = now
	limiter.now = func() time.Time { return now }

	// Given a full bucket, the burst is accepted then refused
	req.True(limiter.allow())
	req.True(limiter.allow())
	req.True(limiter.allow())
	req.False(limiter.allow())

	// When one token worth of time has elapsed
	now = now.Add(time.Second)
	req.True(limiter.allow())
	req.False(limiter.allow())

	// Then a long pause never overfills the bucket
	now = now.Add(time.Hour)
	for i := 0; i < 3; i++ {
		req.True(limiter.allow())
	}
	req.False(limiter.allow())
}
