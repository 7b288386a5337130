package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
	"github.com/noah-isme/campus-timetable-api/pkg/telemetry"
)

// TokenBucket is an in-memory per-client rate limiter. Buckets refill
// continuously at perMinute and hold at most capacity tokens.
type TokenBucket struct {
	name     string
	capacity float64
	rate     float64
	idle     time.Duration
	now      func() time.Time
	tracer   trace.Tracer

	mu      sync.Mutex
	buckets map[string]*bucket
	sweep   time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewTokenBucket creates a limiter with capacity tokens refilled perMinute.
// A non-positive capacity defaults to perMinute.
func NewTokenBucket(name string, capacity, perMinute int) *TokenBucket {
	if perMinute <= 0 {
		perMinute = 60
	}
	if capacity <= 0 {
		capacity = perMinute
	}
	return &TokenBucket{
		name:     name,
		capacity: float64(capacity),
		rate:     float64(perMinute) / float64(time.Minute),
		idle:     10 * time.Minute,
		now:      time.Now,
		tracer:   telemetry.Tracer("campus-timetable-api/ratelimit"),
		buckets:  make(map[string]*bucket),
	}
}

// Middleware enforces the limit per client IP.
func (l *TokenBucket) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}

		_, span := l.tracer.Start(c.Request.Context(), "ratelimit "+l.name)
		allowed := l.Allow(ip)
		span.SetAttributes(attribute.String("ip", ip), attribute.String("path", c.FullPath()), attribute.Bool("blocked", !allowed))
		span.End()

		if !allowed {
			c.Header("Retry-After", "60")
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Allow takes one token for key when available.
func (l *TokenBucket) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictIdle(now)

	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &bucket{tokens: l.capacity - 1, last: now}
		return true
	}

	b.tokens += float64(now.Sub(b.last)) * l.rate
	if b.tokens > l.capacity {
		b.tokens = l.capacity
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// evictIdle must be called with mu held.
func (l *TokenBucket) evictIdle(now time.Time) {
	if now.Sub(l.sweep) < l.idle {
		return
	}
	l.sweep = now
	for key, b := range l.buckets {
		if now.Sub(b.last) >= l.idle {
			delete(l.buckets, key)
		}
	}
}
