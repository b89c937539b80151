package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SharedSecretAuth 本地 API 共享密钥验证中间件
// 校验 Authorization: Bearer <secret>，secret 为空时不校验
func SharedSecretAuth(secret string) gin.HandlerFunc {
	if secret == "" {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		// 1. 提取 Authorization 头
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "缺少 Authorization 头")
			return
		}

		// 2. 解析 Bearer Token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			unauthorized(c, "Authorization 格式错误，应为: Bearer <token>")
			return
		}

		// 3. 常量时间比较
		if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(parts[1])), []byte(secret)) != 1 {
			unauthorized(c, "无效的访问令牌")
			return
		}

		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"data":    nil,
		"message": message,
	})
}
