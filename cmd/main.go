package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"gopkg.in/gomail.v2"

	"chyll/internal/caching"
	"chyll/internal/config"
	"chyll/internal/events"
	"chyll/internal/handlers"
	"chyll/internal/integrations/enrichapi"
	"chyll/internal/integrations/gmailapi"
	"chyll/internal/integrations/googleauth"
	"chyll/internal/integrations/openaiapi"
	"chyll/internal/jobs/background"
	"chyll/internal/middleware"
	"chyll/internal/repositories"
	"chyll/internal/services"
	"chyll/pkg/database"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, reading environment directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pool, err := database.NewPool(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	cacheSvc := caching.NewRedisCacheService(redisClient)
	publisher := events.NewRedisPublisher(redisClient)

	// Repositories
	leadRepo := repositories.NewLeadRepo(pool)
	sessionRepo := repositories.NewChatSessionRepo(pool)
	messageRepo := repositories.NewChatMessageRepo(pool)
	waitlistRepo := repositories.NewWaitlistRepo(pool)
	emailJobRepo := repositories.NewEmailJobRepo(pool)
	mailboxRepo := repositories.NewMailboxRepo(pool)
	clientRepo := repositories.NewClientRepo(pool)

	// Outbound integrations
	googleClient, err := googleauth.NewClient(cfg.Google.ClientID, cfg.Google.ClientSecret)
	if err != nil {
		log.Fatalf("Failed to initialize Google auth client: %v", err)
	}
	gmailClient := gmailapi.NewClient()
	openaiClient := openaiapi.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)

	storage, err := services.NewMinioStorageService(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	var leadSource services.LeadSource
	if cfg.Enrich.APIKey != "" {
		leadSource = services.NewEnrichLeadSource(enrichapi.NewClient(cfg.Enrich.APIKey, cfg.Enrich.BaseURL))
	} else {
		log.Printf("No enrichment API key configured, using demo lead source")
		leadSource = services.NewDemoLeadSource()
	}

	// Services
	smtpDialer := gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	leadSvc := services.NewLeadService(leadRepo, cacheSvc, publisher)
	chatSvc := services.NewChatService(sessionRepo, messageRepo, publisher)
	assistantSvc := services.NewAssistantService(chatSvc, leadSvc, leadSource, openaiClient)
	mailSvc := services.NewMailService(mailboxRepo, emailJobRepo, gmailClient, googleClient, smtpDialer, cfg.SMTP.From)
	oauthSvc := services.NewOAuthService(mailboxRepo, cacheSvc, googleClient)
	waitlistSvc := services.NewWaitlistService(waitlistRepo, mailSvc)
	exportSvc := services.NewExportService(leadRepo, storage)
	authSvc := services.NewAuthService(clientRepo, cacheSvc, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.RefreshTTL)

	// Background jobs
	scheduler := background.NewJobScheduler(oauthSvc, emailJobRepo)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start job scheduler: %v", err)
	}
	defer scheduler.Stop()

	// Handlers
	authHandlers := handlers.NewAuthHandlers(authSvc)
	leadHandlers := handlers.NewLeadHandlers(leadSvc, exportSvc)
	chatHandlers := handlers.NewChatHandlers(chatSvc, assistantSvc)
	mailboxHandlers := handlers.NewMailboxHandlers(oauthSvc, mailSvc)
	waitlistHandlers := handlers.NewWaitlistHandlers(waitlistSvc)
	functionHandlers := handlers.NewFunctionHandlers(leadSvc, waitlistSvc)
	healthHandlers := handlers.NewHealthHandlers(pool, redisClient)

	roleMiddleware := middleware.NewRoleMiddleware(clientRepo)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewRequestValidator()

	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())
	e.Use(middleware.Metrics())

	// Health endpoints (no auth)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)

	v1 := e.Group("/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/signup", authHandlers.Signup)
	auth.POST("/login", authHandlers.Login)
	auth.POST("/refresh", authHandlers.Refresh)
	auth.POST("/logout", authHandlers.Logout)

	// Public waitlist routes, throttled per IP
	waitlist := v1.Group("/waitlist", middleware.RateLimit(cacheSvc, 20, time.Minute))
	waitlist.POST("", waitlistHandlers.Join)
	waitlist.GET("/status", waitlistHandlers.Status)
	waitlist.POST("/community", waitlistHandlers.JoinCommunity)

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.JWTMiddleware(cfg.Auth.JWTSecret))

	protected.GET("/leads", leadHandlers.ListLeads)
	protected.POST("/leads", leadHandlers.CreateLead)
	protected.GET("/leads/search", leadHandlers.SearchLeads)
	protected.GET("/leads/export", leadHandlers.ExportLeads)
	protected.POST("/leads/bulk", leadHandlers.BulkUpsertLeads)
	protected.GET("/leads/:id", leadHandlers.GetLeadByID)
	protected.PATCH("/leads/:id/status", leadHandlers.UpdateLeadStatus)
	protected.PATCH("/leads/:id/sales", leadHandlers.UpdateLeadSalesData)

	protected.GET("/chat/sessions", chatHandlers.ListSessions)
	protected.POST("/chat/sessions", chatHandlers.CreateSession)
	protected.PATCH("/chat/sessions/:id", chatHandlers.RenameSession)
	protected.GET("/chat/sessions/:id/messages", chatHandlers.ListMessages)
	protected.POST("/chat/messages", chatHandlers.SendMessage)

	protected.GET("/mailbox", mailboxHandlers.GetConnection)
	protected.POST("/mailbox/connect", mailboxHandlers.ConnectMailbox)
	protected.POST("/mailbox/send", mailboxHandlers.SendEmail)
	protected.GET("/mailbox/jobs", mailboxHandlers.ListEmailJobs)

	// Admin-only surface
	admin := v1.Group("/admin")
	admin.Use(middleware.JWTMiddleware(cfg.Auth.JWTSecret), roleMiddleware.RequireAdmin())
	admin.GET("/jobs", func(c echo.Context) error {
		return c.JSON(200, scheduler.GetJobStatus())
	})

	// Serverless function surface kept compatible with the dashboard frontend
	functions := e.Group("/functions")
	functions.Use(functionHandlers.CORS, middleware.RateLimit(cacheSvc, 60, time.Minute))
	functions.POST("/update-lead-status", functionHandlers.UpdateLeadStatus)
	functions.OPTIONS("/update-lead-status", functionHandlers.UpdateLeadStatus)
	functions.POST("/waitlist-join", functionHandlers.WaitlistJoin)
	functions.OPTIONS("/waitlist-join", functionHandlers.WaitlistJoin)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("chyll API starting on %s", addr)
		if err := e.Start(addr); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("Forced shutdown: %v", err)
	}
}
