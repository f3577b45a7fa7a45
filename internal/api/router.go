package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func logHTTP(path string, status int, dur time.Duration) {
	log.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
}

// NewRouter wires all session routes onto a gin engine.
func NewRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	r.GET("/health", h.Health)
	r.GET("/api/time", h.ServerTime)

	sessions := r.Group("/api/sessions")
	{
		sessions.POST("", h.CreateSession)
		sessions.POST("/join", h.Join)
		sessions.GET("/:session_id/state", h.State)
		sessions.POST("/:session_id/start", h.Start)
		sessions.POST("/:session_id/submit", h.Submit)
		sessions.POST("/:session_id/vote", h.Vote)
		sessions.POST("/:session_id/pause", h.Pause)
		sessions.POST("/:session_id/resume", h.Resume)
		sessions.POST("/:session_id/host", h.TransferHost)
		sessions.POST("/:session_id/reset", h.Reset)
		sessions.POST("/:session_id/resync", h.Resync)
		sessions.PUT("/:session_id/settings", h.UpdateSettings)
	}

	r.GET("/ws/:session_id", h.WebSocket)

	return r
}
