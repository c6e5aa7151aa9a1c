package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/myysophia/filehub-backend/internal/auth"
	"github.com/myysophia/filehub-backend/internal/config"
	"github.com/myysophia/filehub-backend/internal/logger"
	"github.com/myysophia/filehub-backend/internal/utils"
	"go.uber.org/zap"
)

// AuthMiddleware 认证中间件
// 所有上传、删除操作都要求已解析的身份，缺失身份的请求在此拦截
func AuthMiddleware(jwtConfig *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 从请求头获取 JWT 令牌
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "未提供认证令牌")
			return
		}

		// 检查 Authorization 头格式
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			abortUnauthorized(c, "认证令牌格式错误")
			return
		}

		// 解析令牌
		token := parts[1]
		claims, err := auth.ParseToken(token, jwtConfig)
		if err != nil {
			logger.Error("解析令牌失败", zap.Error(err))
			abortUnauthorized(c, "无效的认证令牌")
			return
		}

		// 将用户信息存储到上下文中
		c.Set("userID", claims.UserID)
		c.Set("username", claims.Username)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, utils.Response{
		Code:    utils.CodeUnauthorized,
		Message: message,
	})
}
