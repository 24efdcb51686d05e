package main

import (
  "context"
  "errors"
  "fmt"
  "net/http"
  "os"
  "os/signal"
  "syscall"
  "time"

  "github.com/yungbote/swarmchat-backend/internal/clients/redis"
  "github.com/yungbote/swarmchat-backend/internal/db"
  "github.com/yungbote/swarmchat-backend/internal/engine"
  "github.com/yungbote/swarmchat-backend/internal/handlers"
  "github.com/yungbote/swarmchat-backend/internal/logger"
  "github.com/yungbote/swarmchat-backend/internal/realtime"
  "github.com/yungbote/swarmchat-backend/internal/repos"
  "github.com/yungbote/swarmchat-backend/internal/server"
  "github.com/yungbote/swarmchat-backend/internal/services"
  "github.com/yungbote/swarmchat-backend/internal/utils"
)

func main() {
  // Logger
  logMode := os.Getenv("LOG_MODE")
  if logMode == "" {
    logMode = "development"
  }
  log, err := logger.New(logMode)
  if err != nil {
    fmt.Printf("Failed to init logger: %v\n", err)
    os.Exit(1)
  }
  defer log.Sync()

  ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
  defer stop()

  // Postgres
  postgresService, err := db.NewPostgresService(log)
  if err != nil {
    log.Error("Postgres init failed", "error", err)
    os.Exit(1)
  }
  if err = postgresService.AutoMigrateAll(); err != nil {
    log.Error("Postgres auto migration failed", "error", err)
    os.Exit(1)
  }
  thePG := postgresService.DB()

  // Redis
  rdb, err := redis.NewClient(log)
  if err != nil {
    log.Error("Redis init failed", "error", err)
    os.Exit(1)
  }

  // Realtime
  log.Info("Setting up realtime hub and bridge from main...")
  hub := realtime.NewHub(log)
  bridge := realtime.NewRedisBridge(log, rdb)
  if err := bridge.StartForwarder(ctx, hub); err != nil {
    log.Error("Redis forwarder failed to start", "error", err)
    os.Exit(1)
  }

  // Repos
  log.Info("Setting up Repos from main...")
  sessionRepo := repos.NewSessionRepo(thePG, log)
  subgroupRepo := repos.NewSubgroupRepo(thePG, log)
  participantRepo := repos.NewParticipantRepo(thePG, log)
  messageRepo := repos.NewMessageRepo(thePG, log)
  ideaRepo := repos.NewIdeaRepo(thePG, log)

  // LLM
  textGenerator, err := services.NewTextGenerator(log)
  if err != nil {
    log.Error("Could not init TextGenerator", "error", err)
    os.Exit(1)
  }

  // Engine
  log.Info("Setting up coordination engine from main...")
  partitioner := engine.NewPartitioner(log, subgroupRepo, participantRepo)
  taxonomy := engine.NewTaxonomy(log, sessionRepo, messageRepo, ideaRepo, textGenerator)
  surrogate := engine.NewSurrogate(log, messageRepo, textGenerator, bridge)
  contributor := engine.NewContributor(log, messageRepo, textGenerator, bridge)
  eng := engine.NewEngine(log, thePG, rdb, sessionRepo, subgroupRepo, taxonomy, surrogate, contributor)
  eng.Start(ctx)

  // Services
  log.Info("Setting up Services from main...")
  sessionService := services.NewSessionService(thePG, log, sessionRepo, subgroupRepo, participantRepo, ideaRepo, partitioner, taxonomy, bridge, hub)
  participantService := services.NewParticipantService(thePG, log, sessionRepo, participantRepo, messageRepo, partitioner, bridge)
  chatService := services.NewChatService(thePG, log, participantRepo, messageRepo, bridge)
  adminService := services.NewAdminService(thePG, log, sessionRepo, subgroupRepo, participantRepo, ideaRepo, taxonomy, textGenerator, hub)

  // Handlers
  log.Info("Setting up handlers from main...")
  sessionHandler := handlers.NewSessionHandler(log, sessionService)
  participantHandler := handlers.NewParticipantHandler(log, participantService)
  adminHandler := handlers.NewAdminHandler(log, adminService)
  wsHandler := handlers.NewWSHandler(log, hub, chatService)

  // Router
  log.Info("Setting up router from main...")
  router := server.NewRouter(server.RouterConfig{
    SessionHandler:     sessionHandler,
    ParticipantHandler: participantHandler,
    AdminHandler:       adminHandler,
    WSHandler:          wsHandler,
  })

  port := utils.GetEnv("PORT", "8080", log)
  srv := &http.Server{
    Addr:    ":" + port,
    Handler: router,
  }
  go func() {
    log.Info("Server listening", "port", port)
    if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
      log.Error("Server failed", "error", err)
      stop()
    }
  }()

  <-ctx.Done()
  log.Info("Shutting down...")
  eng.Stop()

  shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
  defer cancel()
  if err := srv.Shutdown(shutdownCtx); err != nil {
    log.Warn("Server shutdown failed", "error", err)
  }
  if err := rdb.Close(); err != nil {
    log.Warn("Redis close failed", "error", err)
  }
}
