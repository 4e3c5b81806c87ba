package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/trustguard/forensic_server/internal/pkg/jwt"
	"github.com/trustguard/forensic_server/internal/pkg/response"
)

const (
	UserIDKey      = "userID"
	DisplayNameKey = "displayName"
)

// Auth 会话认证中间件
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "请提供认证信息")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			response.AuthError(c, "认证格式错误")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			response.AuthError(c, "认证失败或已过期")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(DisplayNameKey, claims.DisplayName)
		c.Next()
	}
}

// GetUserID 从上下文获取用户 ID
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// GetDisplayName 从上下文获取展示名
func GetDisplayName(c *gin.Context) string {
	name, exists := c.Get(DisplayNameKey)
	if !exists {
		return ""
	}
	s, _ := name.(string)
	return s
}
