package api

import (
	"github.com/gin-gonic/gin"

	"github.com/trustguard/forensic_server/config"
	"github.com/trustguard/forensic_server/internal/api/handler"
	"github.com/trustguard/forensic_server/internal/api/middleware"
	"github.com/trustguard/forensic_server/internal/dashboard"
	"github.com/trustguard/forensic_server/internal/pkg/ws"
	"github.com/trustguard/forensic_server/internal/repository"
)

// NewRouter 组装路由
func NewRouter(
	cfg *config.Config,
	registry *dashboard.Registry,
	historyRepo *repository.HistoryRepository,
	hub *ws.Hub,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.CORS))

	sessionHandler := handler.NewSessionHandler(cfg)
	analysisHandler := handler.NewAnalysisHandler(registry, cfg)
	historyHandler := handler.NewHistoryHandler(registry, historyRepo)
	wsHandler := handler.NewWebSocketHandler(hub, cfg)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		v1.POST("/sessions", sessionHandler.Create)
		v1.GET("/ws", wsHandler.Connect)

		authed := v1.Group("")
		authed.Use(middleware.Auth(cfg.JWT.Secret))
		{
			authed.POST("/analyses", analysisHandler.Submit)
			authed.GET("/dashboard", analysisHandler.View)
			authed.GET("/history", historyHandler.List)
			authed.POST("/history/:id/load", historyHandler.Load)
		}
	}

	return r
}
