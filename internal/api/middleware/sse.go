package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/myysophia/filehub-backend/internal/logger"
	"go.uber.org/zap"
)

// SSEMiddleware SSE连接专用中间件
// 用于确保SSE连接的稳定性，禁用缓存和优化连接设置
func SSEMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 仅对流式端点进行特殊处理
		if isSSEEndpoint(c.Request.URL.Path) {
			logger.Debug("处理SSE请求",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.String("remote_addr", c.ClientIP()),
			)

			c.Header("Connection", "keep-alive")
			c.Header("Content-Type", "text/event-stream")
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")

			// 禁用响应缓冲
			c.Header("X-Accel-Buffering", "no") // Nginx
			c.Header("X-Content-Type-Options", "nosniff")
		}

		c.Next()
	}
}

// isSSEEndpoint 判断是否为SSE端点
func isSSEEndpoint(path string) bool {
	return strings.HasSuffix(path, "/stream")
}
