package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type window struct {
	count int
	start time.Time
}

// RateLimiter allows maxRequests per client IP per minute. A non-positive
// limit disables it.
func RateLimiter(maxRequests int) gin.HandlerFunc {
	if maxRequests <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*window)
		swept   = time.Now()
	)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		// Drop idle clients on the request path instead of a background goroutine.
		if now.Sub(swept) > 5*time.Minute {
			for k, w := range clients {
				if now.Sub(w.start) > 2*time.Minute {
					delete(clients, k)
				}
			}
			swept = now
		}

		w, ok := clients[ip]
		if !ok || now.Sub(w.start) > time.Minute {
			clients[ip] = &window{count: 1, start: now}
			mu.Unlock()
			c.Next()
			return
		}
		if w.count >= maxRequests {
			retry := time.Minute - now.Sub(w.start)
			mu.Unlock()
			c.Header("Retry-After", fmt.Sprintf("%d", int(retry.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("Rate limit exceeded. Maximum %d requests per minute.", maxRequests),
			})
			return
		}
		w.count++
		mu.Unlock()
		c.Next()
	}
}
