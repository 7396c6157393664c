package http

import (
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/iamasit07/four-in-a-row/internal/transport/http/middleware"
)

type RouterConfig struct {
	AllowedOrigins []string
	Stats          *StatsHandler
	Watch          *WatchHandler
	WebSocket      http.HandlerFunc
	Logger         *log.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(cfg.Logger), gin.Recovery())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins, cfg.Logger))

	api := router.Group("/api")
	{
		api.GET("/health", cfg.Watch.Health)
		api.GET("/games", cfg.Watch.GetLiveGames)
		api.GET("/leaderboard", cfg.Stats.Leaderboard)
		api.GET("/stats", cfg.Stats.Stats)
		api.GET("/analytics", cfg.Stats.Analytics)
	}

	if cfg.WebSocket != nil {
		router.GET("/ws", gin.WrapF(cfg.WebSocket))
	}
	return router
}
