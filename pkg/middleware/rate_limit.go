package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/filevault/pkg/configs"
)

const (
	limiterSweepInterval = 10 * time.Minute
	limiterMaxEntries    = 10000
)

// keyedLimiters 按 key 维护一组令牌桶，map 过大时整体重置.
type keyedLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

func newKeyedLimiters(rps float64, burst int) *keyedLimiters {
	kl := &keyedLimiters{
		limiters: map[string]*rate.Limiter{},
		rps:      rps,
		burst:    burst,
	}
	go kl.sweep()

	return kl
}

func (kl *keyedLimiters) get(key string) *rate.Limiter {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	l, ok := kl.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(kl.rps), kl.burst)
		kl.limiters[key] = l
	}

	return l
}

func (kl *keyedLimiters) sweep() {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for range ticker.C {
		kl.mu.Lock()
		if len(kl.limiters) > limiterMaxEntries {
			kl.limiters = map[string]*rate.Limiter{}
		}
		kl.mu.Unlock()
	}
}

// RateLimitMiddleware 返回限流中间件，key 维度支持 global/ip/header:<name>.
// header 模式下取不到请求头时回退为客户端 IP，可用 header:x-user-id 按属主限流.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	keyMode := strings.ToLower(strings.TrimSpace(cfg.Key))
	if keyMode == "" || keyMode == "global" {
		limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)

		return func(c *gin.Context) {
			if !limiter.Allow() {
				rejectRateLimited(c)
				return
			}

			c.Next()
		}
	}

	kl := newKeyedLimiters(cfg.RPS, cfg.Burst)
	headerName := strings.TrimPrefix(keyMode, "header:")

	return func(c *gin.Context) {
		key := ""
		if strings.HasPrefix(keyMode, "header:") {
			key = c.GetHeader(headerName)
		}

		if key == "" {
			key = clientIP(c)
		}

		if key == "" {
			key = "unknown"
		}

		if !kl.get(key).Allow() {
			rejectRateLimited(c)
			return
		}

		c.Next()
	}
}

func rejectRateLimited(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}

	return host
}
