package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/video-access-backend/pkg/response"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimit 固定窗口限流中间件
// 按"用户 ID（未登录时退化为客户端 IP）+ 路由"计数，
// 窗口为一分钟，INCR + EXPIRE 实现。
// Redis 不可用时放行，限流只是防滥用手段而非正确性保证。
func RateLimit(rdb *redis.Client, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		subject := CurrentUserID(c)
		if subject == "" {
			subject = c.ClientIP()
		}
		key := fmt.Sprintf("ratelimit:%s:%s", subject, c.FullPath())

		ctx := c.Request.Context()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("限流计数失败，请求放行", zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(ctx, key, time.Minute)
		}

		if count > int64(limit) {
			response.Error(c, response.CodeTooManyReq)
			c.Abort()
			return
		}

		c.Next()
	}
}
