package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	maxTrackedClients = 10000
	clientIdleTTL     = 10 * time.Minute
)

// RateLimiter returns a Gin middleware that enforces per-IP token-bucket
// rate limiting. Idle clients expire from the table after ten minutes.
func RateLimiter(rps float64, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := expirable.NewLRU[string, *rate.Limiter](maxTrackedClients, nil, clientIdleTTL)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		l, ok := limiters.Get(ip)
		if !ok {
			l = rate.NewLimiter(rate.Limit(rps), burst)
		}
		// Re-adding refreshes the idle TTL.
		limiters.Add(ip, l)
		mu.Unlock()

		if !l.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
