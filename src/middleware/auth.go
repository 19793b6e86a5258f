package middleware

import (
	"net/http"
	"strings"

	"ai-memo-app/src/logger"
	"ai-memo-app/src/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthMiddleware Bearerトークンを検証するmiddleware
func AuthMiddleware(jwtService service.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Authorizationヘッダーを取得
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.WithField("client_ip", c.ClientIP()).Warn("認証失敗: Authorizationヘッダーがありません")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		// Bearer tokenの形式をチェック
		if !strings.HasPrefix(authHeader, "Bearer ") {
			logger.WithField("client_ip", c.ClientIP()).Warn("認証失敗: Bearer tokenの形式が正しくありません")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			logger.WithField("client_ip", c.ClientIP()).Warn("認証失敗: tokenが空です")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token is empty"})
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"client_ip": c.ClientIP(),
				"error":     err.Error(),
			}).Warn("認証失敗: 無効なJWTトークン")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set("subject", claims.Subject)
		c.Next()
	}
}
