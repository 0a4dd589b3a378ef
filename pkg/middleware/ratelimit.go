package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/spreadhub/pkg/logger"
	"github.com/wyfcoding/spreadhub/pkg/ratelimit"
	"github.com/wyfcoding/spreadhub/pkg/response"
)

// ClientKey 取 X-Forwarded-For 的第一个地址，缺失时回退到连接地址
func ClientKey(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return c.ClientIP()
}

// RateLimitMiddleware 对同一客户端依次检查所有规则，任一规则超限即返回 429；限流器故障时放行
func RateLimitMiddleware(limiter ratelimit.RateLimiter, scope string, limits ...ratelimit.Limit) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || len(limits) == 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%s", scope, ClientKey(c))
		for _, limit := range limits {
			res, err := limiter.Allow(c.Request.Context(), key, limit)
			if err != nil {
				logger.Warn(c.Request.Context(), "rate limiter unavailable", "key", key, "error", err)
				c.Next()
				return
			}

			if !res.Allowed {
				c.Header("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
				c.Header("X-RateLimit-Remaining", "0")
				c.Header("X-RateLimit-Reset", strconv.FormatInt(ceilSeconds(res.ResetAfter), 10))
				c.Header("Retry-After", strconv.FormatInt(ceilSeconds(res.RetryAfter), 10))
				response.ErrorWithStatus(c, http.StatusTooManyRequests, "Rate limit exceeded: "+limit.String())
				return
			}

			// 响应头只反映最严格（剩余最少）的规则
			if c.Writer.Header().Get("X-RateLimit-Remaining") == "" || res.Remaining < headerInt(c, "X-RateLimit-Remaining") {
				c.Header("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
				c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
				c.Header("X-RateLimit-Reset", strconv.FormatInt(ceilSeconds(res.ResetAfter), 10))
			}
		}

		c.Next()
	}
}

func headerInt(c *gin.Context, name string) int {
	n, _ := strconv.Atoi(c.Writer.Header().Get(name))
	return n
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64((d + time.Second - 1) / time.Second)
}
