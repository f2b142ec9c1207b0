package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter 按 key（通常为客户端 IP）统计滑动窗口内的尝试次数
type RateLimiter struct {
	maxAttempts int
	window      time.Duration

	mu       sync.Mutex
	attempts map[string][]time.Time
	now      func() time.Time
}

// NewRateLimiter 创建限流器
func NewRateLimiter(maxAttempts int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		attempts:    make(map[string][]time.Time),
		now:         time.Now,
	}
}

// Allow 记录一次尝试，窗口内次数已满时返回 false
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	l.prune(cutoff)

	ts := l.attempts[key]
	if len(ts) >= l.maxAttempts {
		return false
	}
	l.attempts[key] = append(ts, now)
	return true
}

// Reset 清除 key 的记录，登录成功后调用
func (l *RateLimiter) Reset(key string) {
	l.mu.Lock()
	delete(l.attempts, key)
	l.mu.Unlock()
}

// prune 移除窗口外的记录，调用方需持有锁
func (l *RateLimiter) prune(cutoff time.Time) {
	for key, ts := range l.attempts {
		kept := ts[:0]
		for _, t := range ts {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(l.attempts, key)
		} else {
			l.attempts[key] = kept
		}
	}
}

// Middleware 超过限制时返回 429
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "登录尝试过于频繁，请稍后再试",
				"data":    nil,
			})
			return
		}
		c.Next()
	}
}

// LoginRateLimit 登录接口限流中间件
func LoginRateLimit(maxAttempts int, window time.Duration) gin.HandlerFunc {
	return NewRateLimiter(maxAttempts, window).Middleware()
}
