package server

import (
  "strings"

  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"

  "github.com/yungbote/swarmchat-backend/internal/handlers"
  "github.com/yungbote/swarmchat-backend/internal/utils"
)

type RouterConfig struct {
  SessionHandler     *handlers.SessionHandler
  ParticipantHandler *handlers.ParticipantHandler
  AdminHandler       *handlers.AdminHandler
  WSHandler          *handlers.WSHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()

  // Cors
  origins := strings.Split(utils.GetEnv("BACKEND_CORS_ORIGINS", "http://localhost:3000,http://localhost:5173", nil), ",")
  router.Use(cors.New(cors.Config{
    AllowOrigins:     origins,
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

  router.GET("/healthcheck", handlers.HealthCheck)

  api := router.Group("/api")
  {
    // Sessions
    api.POST("/sessions", cfg.SessionHandler.Create)
    api.GET("/sessions/join/:join_code", cfg.SessionHandler.GetByJoinCode)
    api.GET("/sessions/:id", cfg.SessionHandler.Get)
    api.POST("/sessions/:id/start", cfg.SessionHandler.Start)
    api.POST("/sessions/:id/stop", cfg.SessionHandler.Stop)
    api.GET("/sessions/:id/subgroups", cfg.SessionHandler.Subgroups)
    api.GET("/sessions/:id/ideas", cfg.SessionHandler.Ideas)
    // Participants
    api.POST("/participants", cfg.ParticipantHandler.Join)
    api.GET("/participants/:id", cfg.ParticipantHandler.Get)
    api.GET("/participants/:id/messages", cfg.ParticipantHandler.Messages)
    // Admin
    api.GET("/admin/:session_id/status", cfg.AdminHandler.Status)
    api.POST("/admin/:session_id/summary", cfg.AdminHandler.GenerateSummary)
  }

  // Websockets
  router.GET("/ws/chat/:participant_id/:subgroup_id", cfg.WSHandler.Chat)
  router.GET("/ws/session/:participant_id/:session_id", cfg.WSHandler.Session)

  return router
}
