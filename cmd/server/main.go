package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vocab-api/internal/api"
	"vocab-api/internal/config"
	"vocab-api/internal/content"
	"vocab-api/internal/database"
	"vocab-api/internal/quiz"
	"vocab-api/internal/services"
	"vocab-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

const devJWTSecret = "dev_jwt_secret"

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatal("Failed to initialize config:", err)
	}
	cfg := config.AppConfig

	// Initialize logging
	logging.InitLogging()

	if cfg.JWTSecret == "" {
		if cfg.Mode == gin.ReleaseMode {
			log.Fatal("JWT_SECRET must be set in release mode")
		}
		logging.Warnf("JWT_SECRET is not set, using the development secret")
		cfg.JWTSecret = devJWTSecret
	}

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.CloseDatabase()

	// Redis is optional
	if err := database.InitRedis(); err != nil {
		logging.Warnf("Redis unavailable, using in-process rate limits and quiz sessions: %v", err)
	}

	library, err := content.Load(cfg.ContentDir)
	if err != nil {
		log.Fatal("Failed to load content:", err)
	}

	db := database.GetDB()
	mailer := services.NewMailer(cfg.BrevoAPIKey, cfg.BrevoFromEmail, cfg.BrevoFromName)
	notifier := services.NewOperatorNotifier(cfg.OperatorWebhookURL, cfg.OperatorWebhookSecret)
	ledger := services.NewEntitlementLedger(db, notifier)
	gateway := services.NewPhonePeClient(services.PhonePeConfig{
		ClientID:      cfg.PhonePeClientID,
		ClientSecret:  cfg.PhonePeClientSecret,
		ClientVersion: cfg.PhonePeClientVersion,
		AuthURL:       cfg.PhonePeAuthURL,
		BaseURL:       cfg.PhonePeBaseURL,
		Timeout:       cfg.GatewayTimeout,
	})
	payments := services.NewPaymentService(db, gateway, ledger, notifier, mailer, services.PaymentConfig{
		ClientOrigin:        cfg.ClientOrigin,
		OrdersPerUserLimit:  cfg.OrdersPerUserLimit,
		OrdersPerUserWindow: cfg.OrdersPerUserWindow,
	})
	authService := services.NewAuthService(db, mailer, cfg.JWTSecret, time.Duration(cfg.JWTExpireHours)*time.Hour, cfg.ClientOrigin)

	var limiter services.RateLimiter = services.NewMemoryRateLimiter()
	if redisClient := database.GetRedis(); redisClient != nil {
		limiter = services.NewRedisRateLimiter(redisClient)
	}

	scheduler := services.NewScheduler()
	var sessions quiz.SessionStore
	if cfg.QuizSessionStore == "redis" && database.GetRedis() != nil {
		sessions = quiz.NewRedisStore(database.GetRedis(), cfg.QuizSessionTTL)
		logging.Infof("Quiz sessions stored in redis, ttl: %s", cfg.QuizSessionTTL)
	} else {
		memoryStore := quiz.NewMemoryStore(cfg.QuizSessionTTL)
		sessions = memoryStore
		if err := scheduler.AddJob("quiz-session-cleanup", "@every 1h", func() { memoryStore.Cleanup() }); err != nil {
			log.Fatal("Failed to schedule quiz session cleanup:", err)
		}
		logging.Infof("Quiz sessions kept in memory, idle ttl: %s", cfg.QuizSessionTTL)
	}

	reconciler := services.NewReconciler(db, payments)
	if err := scheduler.AddJob("payment-reconcile", cfg.ReconcileSchedule, reconciler.Run); err != nil {
		log.Fatal("Failed to schedule payment reconciliation:", err)
	}
	scheduler.Start()

	handler := api.NewHandler(api.Dependencies{
		DB:          db,
		Auth:        authService,
		Ledger:      ledger,
		Payments:    payments,
		WebhookAuth: services.NewWebhookAuthenticator(cfg.WebhookUsername, cfg.WebhookPassword),
		RateLimiter: limiter,
		Quiz:        quiz.NewService(library, quiz.NewDefaultEngine(), sessions),
		Library:     library,
		Options: api.Options{
			ClientOrigin:      cfg.ClientOrigin,
			CookieSecure:      cfg.CookieSecure,
			PaymentRateLimit:  cfg.PaymentRateLimit,
			PaymentRateWindow: cfg.PaymentRateWindow,
		},
	})

	// Set Gin mode
	gin.SetMode(cfg.Mode)

	// Create Gin engine
	r := gin.Default()

	// Setup routes
	api.SetupRoutes(r, handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Infof("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Errorf("Server forced to shutdown: %v", err)
	}

	<-scheduler.Stop().Done()
	payments.Wait()
	notifier.Wait()
	logging.Infof("Server exited")
}
