package http

import "golang.org/x/time/rate"

// rateLimiter bounds inbound frames per connection. A zero limit
// disables it.
type rateLimiter struct {
	limiter *rate.Limiter
}

func newRateLimiter(perSecond int) *rateLimiter {
	if perSecond <= 0 {
		return &rateLimiter{}
	}
	return &rateLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond)}
}

func (r *rateLimiter) allow() bool {
	if r == nil || r.limiter == nil {
		return true
	}
	return r.limiter.Allow()
}
