package middleware

import (
	"math"
	"sync"

	"golang.org/x/time/rate"
)

// tier is one token bucket configuration.
type tier struct {
	limit rate.Limit
	burst int
}

func (t tier) newLimiter() *rate.Limiter {
	return rate.NewLimiter(t.limit, t.burst)
}

// LimiterPair holds a client's two buckets: the normal tier paces
// requests that may trigger upstream fetches, the cached tier is a
// looser budget for requests served straight from the cache.
type LimiterPair struct {
	Normal *rate.Limiter
	Cached *rate.Limiter
}

// GetNormalTokens returns the whole tokens left in the normal tier.
func (lp *LimiterPair) GetNormalTokens() int {
	return int(math.Floor(lp.Normal.Tokens()))
}

// GetCachedTokens returns the whole tokens left in the cached tier.
func (lp *LimiterPair) GetCachedTokens() int {
	return int(math.Floor(lp.Cached.Tokens()))
}

// IPRateLimiter hands out a LimiterPair per client IP.
type IPRateLimiter struct {
	mu     sync.RWMutex
	perIP  map[string]*LimiterPair
	normal tier
	cached tier
}

// NewIPRateLimiter creates a limiter with the given per-tier rates and
// bursts.
func NewIPRateLimiter(normalRate rate.Limit, normalBurst int, cachedRate rate.Limit, cachedBurst int) *IPRateLimiter {
	return &IPRateLimiter{
		perIP:  make(map[string]*LimiterPair),
		normal: tier{limit: normalRate, burst: normalBurst},
		cached: tier{limit: cachedRate, burst: cachedBurst},
	}
}

// GetNormalLimit returns the normal tier burst, reported in rate limit
// headers.
func (i *IPRateLimiter) GetNormalLimit() int {
	return i.normal.burst
}

// GetCachedLimit returns the cached tier burst.
func (i *IPRateLimiter) GetCachedLimit() int {
	return i.cached.burst
}

// AddIP creates fresh buckets for ip, replacing any existing pair.
func (i *IPRateLimiter) AddIP(ip string) *LimiterPair {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.addLocked(ip)
}

func (i *IPRateLimiter) addLocked(ip string) *LimiterPair {
	pair := &LimiterPair{
		Normal: i.normal.newLimiter(),
		Cached: i.cached.newLimiter(),
	}
	i.perIP[ip] = pair
	return pair
}

// GetLimiter returns the pair for ip, creating one on first sight.
func (i *IPRateLimiter) GetLimiter(ip string) *LimiterPair {
	i.mu.RLock()
	pair, ok := i.perIP[ip]
	i.mu.RUnlock()
	if ok {
		return pair
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if pair, ok := i.perIP[ip]; ok {
		return pair
	}
	return i.addLocked(ip)
}
