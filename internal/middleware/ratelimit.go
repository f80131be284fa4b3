package middleware

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/AnshRaj112/econex-backend/pkg/clientip"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	// RateLimitWindow is the fixed counting window per IP
	RateLimitWindow = 60 * time.Second
	// RateLimitMaxRequests is how many API calls one IP may make per window
	RateLimitMaxRequests = 120
	// RateLimitKeyPrefix is the Redis key prefix for per-IP counters
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix marks IPs that blew through the limit
	BlockedIPKeyPrefix = "blocked_ip:"
	// BlockedIPDuration is how long an IP stays blocked
	BlockedIPDuration = 15 * time.Minute
)

// RateLimiter counts requests per client IP in Redis so every instance shares
// the same budget. Without Redis it falls back to an in-process token bucket per IP.
type RateLimiter struct {
	client   *redis.Client
	max      int64
	window   time.Duration
	blockFor time.Duration

	mu      sync.Mutex
	local   map[string]*limiterEntry
	lastGC  time.Time
	localRP rate.Limit
}

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

const localLimiterTTL = 30 * time.Minute

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{
		client:   client,
		max:      RateLimitMaxRequests,
		window:   RateLimitWindow,
		blockFor: BlockedIPDuration,
		local:    make(map[string]*limiterEntry),
		localRP:  rate.Every(RateLimitWindow / RateLimitMaxRequests),
	}
}

// Allow reports whether ip may make another request now.
func (l *RateLimiter) Allow(ctx context.Context, ip string) bool {
	if l.client == nil {
		return l.localLimiter(ip).Allow()
	}

	blocked, err := l.client.Exists(ctx, BlockedIPKeyPrefix+ip).Result()
	if err != nil {
		// fail open
		return true
	}
	if blocked > 0 {
		return false
	}

	key := RateLimitKeyPrefix + ip
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return true
	}
	if count == 1 {
		l.client.Expire(ctx, key, l.window)
	}

	if count > l.max {
		if err := l.client.Set(ctx, BlockedIPKeyPrefix+ip, "1", l.blockFor).Err(); err != nil {
			log.Printf("ratelimit: failed to block %s: %v", ip, err)
		} else {
			log.Printf("⚠️  Blocked %s for %s after %d requests", ip, l.blockFor, count)
		}
		return false
	}
	return true
}

func (l *RateLimiter) localLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastGC) > localLimiterTTL {
		for k, e := range l.local {
			if now.Sub(e.lastUse) > localLimiterTTL {
				delete(l.local, k)
			}
		}
		l.lastGC = now
	}

	e, ok := l.local[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.localRP, int(l.max))}
		l.local[ip] = e
	}
	e.lastUse = now
	return e.limiter
}

// Middleware returns 429 once the caller's IP is over budget.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(r.Context(), clientip.RealClientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
