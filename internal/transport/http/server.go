package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"casecounsel/internal/agent"
	appsvc "casecounsel/internal/app"
	"casecounsel/internal/bootstrap"
	"casecounsel/internal/cache"
	"casecounsel/internal/chunk"
	rabbitmqClient "casecounsel/internal/platform/rabbitmq"
	"casecounsel/internal/repository"
	"casecounsel/internal/retrieval"
	"casecounsel/internal/transport/http/handler"
	"casecounsel/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	cfg := app.Config

	userRepo := repository.NewUserRepository(app.MySQL)
	lawyerRepo := repository.NewLawyerRepository(app.MySQL)
	conversationRepo := repository.NewConversationRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)

	authService := appsvc.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)
	lawyerService := appsvc.NewLawyerService(lawyerRepo, userRepo)

	messagingService := appsvc.NewMessagingService(
		conversationRepo,
		messageRepo,
		lawyerRepo,
		rabbitmqClient.NewMessagePublisher(app.MQConn, cfg.RabbitMQ.MessagePersistQueue),
		cache.NewThreadCache(
			app.Redis,
			time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
			time.Duration(cfg.Redis.DirtyTTLSeconds)*time.Second,
		),
	)

	retriever := retrieval.NewRetriever(app.Index, app.Embedder, cfg.Retrieval.MaxTopK, cfg.Retrieval.MinScore)
	transientBuilder := retrieval.NewTransientBuilder(
		chunk.New(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap),
		app.Embedder,
		cache.NewUploadCache(app.Redis, time.Duration(cfg.Upload.CacheTTLSeconds)*time.Second),
		cfg.Upload.MaxBytes,
		cfg.Retrieval.MinScore,
	)
	counselAgent := agent.New(app.ChatModel, retriever, agent.Config{
		MaxIterations:  cfg.Agent.MaxIterations,
		ForceRetrieval: cfg.Agent.ForceRetrieval,
		TopK:           cfg.Retrieval.DefaultTopK,
	})
	chatService := appsvc.NewChatService(app.SessionStore, counselAgent, transientBuilder)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService, cfg.Upload.MaxBytes)
	lawyerHandler := handler.NewLawyerHandler(lawyerService)
	messagingHandler := handler.NewMessagingHandler(messagingService)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(cfg.Auth.JWTSecret), authHandler.Me)

	v1.POST("/chat", middleware.AuthJWT(cfg.Auth.JWTSecret), chatHandler.Chat)

	lawyerGroup := v1.Group("/lawyers")
	lawyerGroup.GET("", lawyerHandler.Search)
	lawyerGroup.GET("/nearby", lawyerHandler.Nearby)
	lawyerGroup.GET("/:id", lawyerHandler.Get)
	lawyerGroup.PUT("/profile", middleware.AuthJWT(cfg.Auth.JWTSecret), lawyerHandler.UpsertProfile)

	messagingGroup := v1.Group("/messaging")
	messagingGroup.Use(middleware.AuthJWT(cfg.Auth.JWTSecret))
	messagingGroup.POST("/conversations", messagingHandler.StartConversation)
	messagingGroup.GET("/conversations", messagingHandler.ListConversations)
	messagingGroup.POST("/messages", messagingHandler.SendMessage)
	messagingGroup.GET("/history", messagingHandler.History)

	return router
}
