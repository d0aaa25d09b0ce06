package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/metrics"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Key prefix for Redis keys
	KeyPrefix string
}

// counter takes one request for key and reports whether it fits the limit.
type counter interface {
	take(ctx context.Context, key string) (allowed bool, remaining int, reset time.Time, err error)
}

// RateLimiter handles rate limiting using Redis, or an in-process token bucket
// when no Redis client is configured.
type RateLimiter struct {
	counter counter
	config  RateLimitConfig
}

// NewRateLimiter creates a new rate limiter instance. A nil client selects
// the in-process limiter.
func NewRateLimiter(redisClient *redis.Client, config RateLimitConfig) *RateLimiter {
	var c counter
	if redisClient != nil {
		c = &redisCounter{redis: redisClient, config: config}
	} else {
		c = newLocalCounter(config)
	}
	return &RateLimiter{counter: c, config: config}
}

// NewRecipeCreationRateLimiter limits recipe creation per user.
func NewRecipeCreationRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	return NewRateLimiter(redisClient, RateLimitConfig{
		Window:    window,
		Limit:     limit,
		KeyPrefix: "rate_limit:recipe_creation",
	})
}

// NewRecipeModificationRateLimiter limits updates per user and recipe.
func NewRecipeModificationRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	return NewRateLimiter(redisClient, RateLimitConfig{
		Window:    window,
		Limit:     limit,
		KeyPrefix: "rate_limit:recipe_modification",
	})
}

// IsAllowed checks if a request for the given key is allowed
// Returns: allowed, remaining requests, reset time, error
func (rl *RateLimiter) IsAllowed(ctx context.Context, key string) (bool, int, time.Time, error) {
	return rl.counter.take(ctx, key)
}

// RateLimitMiddleware returns a Gin middleware that enforces rate limiting
// per user.
func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return rl.middleware(func(c *gin.Context, userID uint) string {
		return strconv.FormatUint(uint64(userID), 10)
	})
}

// PerRecipeRateLimitMiddleware creates a middleware for per-recipe rate limiting
func (rl *RateLimiter) PerRecipeRateLimitMiddleware() gin.HandlerFunc {
	return rl.middleware(func(c *gin.Context, userID uint) string {
		return fmt.Sprintf("%d:%s", userID, c.Param("id"))
	})
}

func (rl *RateLimiter) middleware(keyFn func(*gin.Context, uint) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			return
		}

		allowed, remaining, resetTime, err := rl.IsAllowed(c.Request.Context(), keyFn(c, userID))
		if err != nil {
			// Log error but don't fail the request
			logging.Ctx(c.Request.Context()).Warn().Err(err).Str("limiter", rl.config.KeyPrefix).Msg("rate limit check failed")
			c.Header("X-RateLimit-Error", "rate limit check failed")
			c.Next()
			return
		}

		// Set rate limit headers
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			metrics.RateLimitRejections.WithLabelValues(rl.config.KeyPrefix).Inc()
			retryAfter := int(time.Until(resetTime).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"message":     fmt.Sprintf("You have exceeded the rate limit of %d requests per %v", rl.config.Limit, rl.config.Window),
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}

// redisCounter is a fixed window counter shared by every API instance.
type redisCounter struct {
	redis  *redis.Client
	config RateLimitConfig
}

func (r *redisCounter) take(ctx context.Context, key string) (bool, int, time.Time, error) {
	now := time.Now()
	windowStart := now.Truncate(r.config.Window)
	redisKey := fmt.Sprintf("%s:%s:%d", r.config.KeyPrefix, key, windowStart.Unix())

	// Use Redis pipeline for atomic operations
	pipe := r.redis.TxPipeline()
	incrCmd := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, r.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, err
	}

	count := int(incrCmd.Val())
	remaining := r.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= r.config.Limit, remaining, windowStart.Add(r.config.Window), nil
}

// localCounter keeps one token bucket per key in process memory. Buckets that
// have refilled completely carry no state and are dropped by sweep, which runs
// at most once per window.
type localCounter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	every     rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
}

func newLocalCounter(config RateLimitConfig) *localCounter {
	return &localCounter{
		limiters:  map[string]*rate.Limiter{},
		every:     rate.Every(config.Window / time.Duration(max(config.Limit, 1))),
		burst:     config.Limit,
		window:    config.Window,
		lastSweep: time.Now(),
	}
}

func (l *localCounter) take(_ context.Context, key string) (bool, int, time.Time, error) {
	now := time.Now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= l.window {
		l.sweepLocked(now)
	}
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()

	allowed := lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)
	remaining := int(tokens)
	if remaining < 0 {
		remaining = 0
	}
	// time until the next token is available
	wait := time.Duration(0)
	if tokens < 1 {
		wait = time.Duration((1 - tokens) / float64(l.every) * float64(time.Second))
	}
	return allowed, remaining, now.Add(wait), nil
}

// sweep drops the buckets that are full at now.
func (l *localCounter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(now)
}

func (l *localCounter) sweepLocked(now time.Time) {
	for key, lim := range l.limiters {
		if lim.TokensAt(now) >= float64(l.burst) {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

func (l *localCounter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
