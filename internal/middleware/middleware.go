package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key the identity middleware sets.
const UserIDKey = "user_id"

// UserIdentity requires the X-User-ID header set by the upstream edge and
// exposes it to handlers as an int64. Authentication itself happens
// upstream; the engine only needs to know who is asking.
func UserIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		if raw == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "X-User-ID header required"})
			c.Abort()
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid X-User-ID header"})
			c.Abort()
			return
		}
		c.Set(UserIDKey, id)
		c.Next()
	}
}

// UserID reads the identity set by UserIdentity.
func UserID(c *gin.Context) int64 {
	v, _ := c.Get(UserIDKey)
	id, _ := v.(int64)
	return id
}

// RateLimiter allows one request per user per interval.
type RateLimiter struct {
	clients map[int64]time.Time
	mu      sync.Mutex
	limit   time.Duration
}

func NewRateLimiter(limit time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[int64]time.Time),
		limit:   limit,
	}
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := UserID(c)
		r.mu.Lock()
		last, exists := r.clients[id]
		if exists && time.Since(last) < r.limit {
			r.mu.Unlock()
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		r.clients[id] = time.Now()
		r.mu.Unlock()
		c.Next()
	}
}
