// Package server implements per-connection inbound throttling on top of a
// token bucket from golang.org/x/time/rate.
package server

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/JOJOXU918/infinity-backend/internal/config"
)

// rateLimiter allows Burst messages per RefillInterval. A nil *rateLimiter
// allows everything.
type rateLimiter struct {
	limiter  *rate.Limiter
	burst    int
	interval time.Duration
}

func newRateLimiter(cfg config.RateLimitConfig) *rateLimiter {
	if !cfg.Enabled() {
		return nil
	}

	interval := cfg.RefillInterval
	if interval <= 0 {
		interval = time.Second
	}

	return &rateLimiter{
		limiter:  rate.NewLimiter(rate.Limit(float64(cfg.Burst)/interval.Seconds()), cfg.Burst),
		burst:    cfg.Burst,
		interval: interval,
	}
}

func (rl *rateLimiter) allow() bool {
	if rl == nil {
		return true
	}
	return rl.limiter.Allow()
}
