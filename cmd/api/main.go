// cmd/api/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"

	"whatsapp-api/internal/analytics"
	"whatsapp-api/internal/bus"
	"whatsapp-api/internal/config"
	"whatsapp-api/internal/correlation"
	"whatsapp-api/internal/handlers"
	"whatsapp-api/internal/journey"
	"whatsapp-api/internal/kv"
	"whatsapp-api/internal/logx"
	"whatsapp-api/internal/messaging"
	"whatsapp-api/internal/metrics"
	"whatsapp-api/internal/middleware"
	"whatsapp-api/internal/session"
	"whatsapp-api/internal/storage"
	"whatsapp-api/internal/wsocket"
)

func main() {
	log := logx.NewDefault()
	log.Info("starting whatsapp-api server")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration: %v", err)
	}

	log = logx.New(logx.Config{
		Level:      cfg.Logging.Level,
		Structured: cfg.Logging.Structured,
		FilePath:   cfg.Logging.FilePath,
	})

	store, err := storage.Open(cfg, log)
	if err != nil {
		log.Fatal("failed to connect to database: %v", err)
	}
	defer store.Close()

	kvGateway, err := kv.Open(cfg, log)
	if err != nil {
		log.Fatal("failed to connect to redis: %v", err)
	}
	defer kvGateway.Close()

	waContainer, err := sqlstore.New(context.Background(), "postgres", cfg.Database.URL, waLog.Noop)
	if err != nil {
		log.Fatal("failed to initialize whatsmeow store: %v", err)
	}

	eventBus := bus.New(kvGateway, log)

	msgHandler := messaging.NewHandler(store)
	eventProcessor := messaging.NewEventProcessor(store, kvGateway, eventBus, cfg, log)

	supervisor := session.New(cfg, store, kvGateway, eventBus, waContainer, msgHandler, eventProcessor, log)

	ctx, cancel := context.WithCancel(context.Background())
	supervisor.Start(ctx)
	go eventProcessor.StartBatcher(ctx)

	verificationManager := correlation.NewVerificationManager(store, kvGateway)
	journeyMapper := journey.NewMapper(store, 2)
	correlationEngine := correlation.NewEngine(store, verificationManager, journeyMapper, log)

	metricsService := metrics.New(store, kvGateway, eventBus, cfg, log)
	analyticsSuite := analytics.New(store, metricsService, journeyMapper, log)

	sessionHandler := handlers.NewSessionHandler(supervisor, store, log)
	messageHandler := handlers.NewMessageHandler(supervisor, store, log)
	conversationHandler := handlers.NewConversationHandler(store)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsSuite)
	contactHandler := handlers.NewContactHandler(store)
	reportHandler := handlers.NewReportHandler(analyticsSuite, kvGateway)
	correlationHandler := handlers.NewCorrelationHandler(correlationEngine, verificationManager, store)
	notificationHandler := handlers.NewNotificationHandler(store, kvGateway)

	hub := wsocket.NewHub(cfg, eventBus, log)
	hubStop := make(chan struct{})
	go hub.Run(hubStop)

	router := setupRouter(cfg, kvGateway, log, routerHandlers{
		session:      sessionHandler,
		message:      messageHandler,
		conversation: conversationHandler,
		analytics:    analyticsHandler,
		contact:      contactHandler,
		report:       reportHandler,
		correlation:  correlationHandler,
		notification: notificationHandler,
		hub:          hub,
	})

	srv := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening on %s", cfg.GetServerAddress())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()
	close(hubStop)
	supervisor.Shutdown()
	metricsService.Stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown: %v", err)
	}

	log.Info("server shutdown complete")
}

type routerHandlers struct {
	session      *handlers.SessionHandler
	message      *handlers.MessageHandler
	conversation *handlers.ConversationHandler
	analytics    *handlers.AnalyticsHandler
	contact      *handlers.ContactHandler
	report       *handlers.ReportHandler
	correlation  *handlers.CorrelationHandler
	notification *handlers.NotificationHandler
	hub          *wsocket.Hub
}

func setupRouter(cfg *config.Config, kvGateway *kv.Gateway, log *logx.Logger, h routerHandlers) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log, cfg.Server.Debug))
	router.Use(middleware.ErrorLogger(log))
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.SecureHeaders())

	router.GET("/health", handleHealthCheck(h.session))
	router.GET("/ws", h.hub.ServeWS(cfg))

	v1 := router.Group(cfg.Server.BasePath)
	v1.Use(middleware.AuthMiddleware(cfg))
	v1.Use(middleware.RateLimit(kvGateway, cfg))
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", h.session.CreateSession)
			sessions.GET("", h.session.ListSessions)
			sessions.GET("/:id/status", h.session.GetStatus)
			sessions.GET("/:id/qr", h.session.GetQR)
			sessions.POST("/:id/qr/refresh", h.session.RefreshQR)
			sessions.POST("/:id/logout", h.session.Logout)
			sessions.DELETE("/:id", h.session.DeleteSession)
		}

		messages := v1.Group("/messages")
		{
			messages.GET("", h.message.ListMessages)
			messages.POST("", h.message.SendMessage)
			messages.GET("/:id", h.message.GetMessage)
			messages.DELETE("/:id", h.message.DeleteMessage)
			messages.POST("/:id/read", h.message.MarkRead)
		}

		conversations := v1.Group("/conversations")
		{
			conversations.GET("", h.conversation.ListConversations)
			conversations.GET("/:id", h.conversation.GetConversation)
			conversations.PATCH("/:id", h.conversation.UpdateConversation)
			conversations.POST("/:id/close", h.conversation.CloseConversation)
			conversations.POST("/:id/archive", h.conversation.ArchiveConversation)
		}

		analyticsGroup := v1.Group("/analytics")
		{
			analyticsGroup.GET("/overview", h.analytics.Overview)
			analyticsGroup.POST("/metrics", h.analytics.Metrics)
			analyticsGroup.GET("/funnel", h.analytics.Funnel)
			analyticsGroup.GET("/timeseries", h.analytics.Timeseries)
			analyticsGroup.GET("/attribution", h.analytics.Attribution)
			analyticsGroup.GET("/cohorts", h.analytics.Cohorts)
		}

		contacts := v1.Group("/contacts")
		{
			contacts.GET("", h.contact.ListContacts)
			contacts.GET("/:phone", h.contact.GetContact)
			contacts.PATCH("/:phone", h.contact.UpdateContact)
		}

		reports := v1.Group("/reports")
		{
			reports.POST("/generate", h.report.GenerateReport)
			reports.GET("/:id/download", h.report.DownloadReport)
			reports.GET("/history", h.report.ReportHistory)
		}

		correlations := v1.Group("/correlations")
		{
			correlations.GET("", h.correlation.ListCorrelations)
			correlations.POST("", h.correlation.CreateCorrelation)
			correlations.POST("/:id/verify", h.correlation.VerifyCorrelation)
		}

		notifications := v1.Group("/notifications")
		{
			notifications.GET("", h.notification.ListNotifications)
			notifications.GET("/unread-count", h.notification.UnreadCount)
			notifications.POST("/:id/read", h.notification.MarkRead)
			notifications.POST("/read-all", h.notification.MarkAllRead)
			notifications.POST("/:id/dismiss", h.notification.Dismiss)
			notifications.GET("/preferences", h.notification.GetPreferences)
			notifications.PUT("/preferences", h.notification.UpdatePreferences)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "endpoint not found",
		})
	})

	return router
}

func handleHealthCheck(sessionHandler *handlers.SessionHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessionHandler == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().Unix()})
	}
}
