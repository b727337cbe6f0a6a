package http

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	apperrors "github.com/allisson/credvault/internal/errors"
	"github.com/allisson/credvault/internal/httputil"
)

const (
	limiterSweepInterval = 5 * time.Minute
	limiterIdleTTL       = time.Hour
)

// callerLimiters holds one token bucket per caller.
type callerLimiters struct {
	mu      sync.Mutex
	buckets map[uuid.UUID]*callerBucket
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

type callerBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newCallerLimiters(rps float64, burst int) *callerLimiters {
	return &callerLimiters{
		buckets: make(map[uuid.UUID]*callerBucket),
		limit:   rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

// reserve takes a token for userID. It returns zero when the request may proceed, and
// otherwise how long the caller has to wait.
func (l *callerLimiters) reserve(userID uuid.UUID) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	bucket, ok := l.buckets[userID]
	if !ok {
		bucket = &callerBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[userID] = bucket
	}
	bucket.lastSeen = now

	if bucket.limiter.AllowN(now, 1) {
		return 0
	}

	r := bucket.limiter.ReserveN(now, 1)
	if !r.OK() {
		return limiterIdleTTL
	}
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return delay
}

// sweep drops buckets idle for longer than ttl.
func (l *callerLimiters) sweep(ttl time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-ttl)
	removed := 0
	for id, bucket := range l.buckets {
		if bucket.lastSeen.Before(cutoff) {
			delete(l.buckets, id)
			removed++
		}
	}
	return removed
}

func (l *callerLimiters) runSweeper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep(ttl)
		}
	}
}

// retryAfterSeconds rounds up so clients never see "Retry-After: 0".
func retryAfterSeconds(delay time.Duration) int {
	return max(1, int(math.Ceil(delay.Seconds())))
}

// RateLimitMiddleware applies a token bucket of rps and burst per authenticated caller. It
// must run after AuthenticationMiddleware. Rejected requests get 429 and a Retry-After
// header. Idle buckets are swept until ctx is done.
func RateLimitMiddleware(ctx context.Context, rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	limiters := newCallerLimiters(rps, burst)
	go limiters.runSweeper(ctx, limiterSweepInterval, limiterIdleTTL)

	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c.Request.Context())
		if !ok {
			logger.Error("rate limit middleware reached without a principal")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		delay := limiters.reserve(principal.UserID)
		if delay == 0 {
			c.Next()
			return
		}

		retryAfter := retryAfterSeconds(delay)
		logger.Debug("rate limit exceeded",
			slog.String("user_id", principal.UserID.String()),
			slog.Int("retry_after", retryAfter))

		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, httputil.ErrorResponse{
			Error:   "rate_limit_exceeded",
			Message: "too many requests, retry after " + strconv.Itoa(retryAfter) + "s",
		})
	}
}
