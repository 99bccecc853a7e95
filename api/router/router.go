package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"review-digest/api/handlers"
	"review-digest/api/middleware"
)

type Deps struct {
	Analyzer handlers.Analyzer
	// CallLogs 가 nil 이면 호출 로그 조회는 404 를 반환한다.
	CallLogs handlers.CallLogFinder
	// Ping 이 nil 이 아니면 /health 에서 저장소 연결을 확인한다.
	Ping func(ctx context.Context) error
}

func New(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLoggingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		if deps.Ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
			defer cancel()
			if err := deps.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "mongo": "down", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/analyses", handlers.CreateAnalysisHandler(deps.Analyzer))
		api.GET("/analyses/:id/logs", handlers.ListCallLogsHandler(deps.CallLogs))
	}

	return r
}

// WithCORS 는 허용 출처가 설정된 경우 rs/cors 로 엔진을 감싼다.
func WithCORS(h http.Handler, allowedOrigins []string) http.Handler {
	if len(allowedOrigins) == 0 {
		return h
	}
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
	}).Handler(h)
}
