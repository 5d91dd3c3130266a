package api

import (
	"net/http"
	"time"

	"vocab-api/internal/middleware"
	"vocab-api/internal/quiz"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine, h *Handler) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{h.opts.ClientOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	requireAuth := h.authn.RequireAuth()
	optionalAuth := h.authn.OptionalAuth()

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
			auth.POST("/logout", h.Logout)
			auth.GET("/me", optionalAuth, h.Me)
			auth.POST("/forgot-password", h.ForgotPassword)
			auth.POST("/reset-password", h.ResetPassword)
		}

		vocab := api.Group("/vocab")
		{
			vocab.GET("/overview", h.Overview)
			vocab.GET("/wotd", h.WordOfTheDay)
			vocab.GET("/:dataset/:letter", h.ListVocab)
		}

		pay := api.Group("/pay")
		{
			pay.GET("/plans", h.ListPlans)
			pay.POST("/initiate",
				middleware.RateLimit(h.limiter, "pay_initiate", h.opts.PaymentRateLimit, h.opts.PaymentRateWindow),
				requireAuth, h.InitiatePayment)
			pay.GET("/status/:merchantTransactionId", requireAuth, h.PaymentStatus)
		}

		user := api.Group("/user")
		user.Use(requireAuth)
		{
			user.GET("/profile", h.Profile)
			user.GET("/practice-queue", h.ListPracticeQueue)
			user.POST("/practice-queue", h.AddToPracticeQueue)
			user.DELETE("/practice-queue", h.RemoveFromPracticeQueue)
		}

		quizzes := api.Group("/quiz")
		{
			quizzes.GET("/free", h.FreeQuiz)
			quizzes.GET("/generate", optionalAuth, h.GenerateQuiz)
			quizzes.POST("/submit", h.SubmitQuiz)

			premium := quizzes.Group("")
			premium.Use(optionalAuth, middleware.RequireActiveSubscription())
			{
				premium.GET("/synonyms", h.rotatingQuiz(quiz.TypeSynonyms))
				premium.GET("/antonyms", h.rotatingQuiz(quiz.TypeAntonyms))
				premium.GET("/top200synonyms", h.rotatingQuiz(quiz.TypeTop200Synonyms))
				premium.GET("/top200antonyms", h.rotatingQuiz(quiz.TypeTop200Antonyms))
				premium.GET("/200synonyms", h.rotatingQuiz(quiz.TypeTop200Synonyms))
				premium.GET("/200antonyms", h.rotatingQuiz(quiz.TypeTop200Antonyms))
			}
		}

		api.POST("/webhook/phonepe", h.PhonePeWebhook)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		health := gin.H{
			"status":  "ok",
			"service": "vocab-api",
			"time":    time.Now().UTC().Format(time.RFC3339),
		}
		if stats := h.quiz.SessionStats(); stats != nil {
			health["quiz_sessions"] = stats
		}
		c.JSON(http.StatusOK, health)
	})
}
