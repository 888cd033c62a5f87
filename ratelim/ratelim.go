package ratelim

import (
	"sync"
	"time"

	"github.com/kataras/iris/v12"
	"golang.org/x/time/rate"
)

// RateLimiter keeps a token bucket per client IP. Applied to the public
// booking endpoints so a misbehaving client cannot hammer the PMS or Stripe.
type RateLimiter struct {
	visitors map[string]*rate.Limiter
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.visitors[ip]; exists {
		return limiter
	}

	limiter := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[ip] = limiter

	// Drop the bucket after a while so the map does not grow forever.
	go func() {
		time.Sleep(10 * time.Minute)
		rl.mu.Lock()
		delete(rl.visitors, ip)
		rl.mu.Unlock()
	}()

	return limiter
}

// Limit is the Iris middleware form.
func (rl *RateLimiter) Limit(ctx iris.Context) {
	limiter := rl.getLimiter(ctx.RemoteAddr())

	if !limiter.Allow() {
		ctx.StatusCode(iris.StatusTooManyRequests)
		ctx.JSON(iris.Map{"error": "rate_limited", "message": "Too many requests, please try again shortly"})
		return
	}

	ctx.Next()
}
