package middleware

import (
	"time"

	"ai-memo-app/src/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader carries the id echoed back on every response
const RequestIDHeader = "X-Request-ID"

// LoggerMiddleware 構造化ログを使用したロギングmiddleware
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		entry := logger.WithFields(logrus.Fields{
			"request_id":  requestID,
			"method":      c.Request.Method,
			"route":       c.FullPath(),
			"uri":         c.Request.RequestURI,
			"client_ip":   c.ClientIP(),
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"size":        c.Writer.Size(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		// ステータスコードに応じてログレベルを変更
		switch {
		case statusCode >= 500:
			entry.Error("リクエスト完了 - サーバーエラー")
		case statusCode >= 400:
			entry.Warn("リクエスト完了 - クライアントエラー")
		default:
			entry.Info("リクエスト完了")
		}
	}
}
