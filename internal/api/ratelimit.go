package api

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiter allows max requests per window for each client IP. Idle
// visitors expire from the table after one window.
type RateLimiter struct {
	mu       sync.Mutex
	visitors *gocache.Cache
	limit    rate.Limit
	burst    int
	window   time.Duration
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	if max <= 0 {
		max = 100
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &RateLimiter{
		visitors: gocache.New(window, window),
		limit:    rate.Every(window / time.Duration(max)),
		burst:    max,
		window:   window,
	}
}

func (r *RateLimiter) limiter(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, found := r.visitors.Get(key); found {
		lim := v.(*rate.Limiter)
		r.visitors.SetDefault(key, lim)
		return lim
	}
	lim := rate.NewLimiter(r.limit, r.burst)
	r.visitors.SetDefault(key, lim)
	return lim
}

// Reserve reports whether key may proceed and, if not, how long until it may.
func (r *RateLimiter) Reserve(key string) (bool, time.Duration) {
	lim := r.limiter(key)
	now := time.Now()
	if lim.AllowN(now, 1) {
		return true, 0
	}
	res := lim.ReserveN(now, 1)
	delay := res.DelayFrom(now)
	res.CancelAt(now)
	return false, delay
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter := r.Reserve(c.ClientIP())
		c.Header("RateLimit-Limit", strconv.Itoa(r.burst))
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			abortWithError(c, http.StatusTooManyRequests, CodeRateLimitExceeded, "Too many requests. Please try again later.")
			return
		}
		c.Next()
	}
}
