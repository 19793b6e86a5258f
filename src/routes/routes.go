package routes

import (
	"context"
	"net/http"
	"time"

	"ai-memo-app/src/interface/handler"
	"ai-memo-app/src/logger"
	"ai-memo-app/src/metrics"
	"ai-memo-app/src/middleware"
	"ai-memo-app/src/notify"
	"ai-memo-app/src/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HealthChecker reports whether a backing store is reachable
type HealthChecker func(ctx context.Context) error

// Deps are the components the router exposes. Metrics, JWT and Health may be nil.
type Deps struct {
	MemoHandler    *handler.MemoHandler
	Hub            *notify.Hub
	Metrics        *metrics.Collector
	JWT            service.JWTService
	Health         HealthChecker
	AllowedOrigins []string
}

// NewRouter builds the gin engine with every route and global middleware
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORSMiddleware(deps.AllowedOrigins))
	if deps.Metrics != nil {
		r.Use(middleware.MetricsMiddleware(deps.Metrics))
	}

	r.NoRoute(func(c *gin.Context) {
		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"uri":    c.Request.RequestURI,
		}).Warn("404: ルートが見つかりません")
		c.JSON(http.StatusNotFound, handler.ErrorResponseDTO{Error: "Route not found"})
	})

	r.GET("/health", healthHandler(deps.Health))
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			notify.ServeWs(deps.Hub, c.Writer, c.Request)
		})
	}

	SetupRoutes(r, deps.MemoHandler, deps.JWT)
	return r
}

// SetupRoutes sets up all API routes
func SetupRoutes(r *gin.Engine, memoHandler *handler.MemoHandler, jwtService service.JWTService) {
	memos := r.Group("/api/memos")
	if jwtService != nil {
		memos.Use(middleware.AuthMiddleware(jwtService))
	}
	{
		memos.GET("", memoHandler.ListMemos)              // GET /api/memos
		memos.POST("", memoHandler.CreateMemo)            // POST /api/memos
		memos.POST("/summary", memoHandler.SummarizeMemo) // POST /api/memos/summary
		memos.POST("/tags", memoHandler.GenerateTags)     // POST /api/memos/tags
		memos.GET("/:id", memoHandler.GetMemo)            // GET /api/memos/:id
		memos.PATCH("/:id", memoHandler.UpdateMemo)       // PATCH /api/memos/:id
		memos.DELETE("/:id", memoHandler.DeleteMemo)      // DELETE /api/memos/:id
	}
}

func healthHandler(check HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{
			"status":    "OK",
			"timestamp": time.Now().Format(time.RFC3339),
		}
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				logger.Log.WithError(err).Warn("ヘルスチェックに失敗しました")
				status = http.StatusServiceUnavailable
				body["status"] = "UNAVAILABLE"
			}
		}
		c.JSON(status, body)
	}
}
