package api

import (
	"time"

	"vocab-api/internal/content"
	"vocab-api/internal/middleware"
	"vocab-api/internal/quiz"
	"vocab-api/internal/services"

	"gorm.io/gorm"
)

// Options tunes the HTTP surface
type Options struct {
	ClientOrigin      string
	CookieSecure      bool
	PaymentRateLimit  int
	PaymentRateWindow time.Duration
}

// Dependencies is everything the handlers need
type Dependencies struct {
	DB          *gorm.DB
	Auth        *services.AuthService
	Ledger      *services.EntitlementLedger
	Payments    *services.PaymentService
	WebhookAuth *services.WebhookAuthenticator
	RateLimiter services.RateLimiter
	Quiz        *quiz.Service
	Library     *content.Library
	Options     Options
}

// Handler serves the HTTP API
type Handler struct {
	db          *gorm.DB
	auth        *services.AuthService
	payments    *services.PaymentService
	webhookAuth *services.WebhookAuthenticator
	limiter     services.RateLimiter
	quiz        *quiz.Service
	library     *content.Library
	authn       *middleware.Authenticator
	opts        Options
	now         func() time.Time
}

// NewHandler creates a handler
func NewHandler(deps Dependencies) *Handler {
	opts := deps.Options
	if opts.PaymentRateLimit <= 0 {
		opts.PaymentRateLimit = 5
	}
	if opts.PaymentRateWindow <= 0 {
		opts.PaymentRateWindow = 15 * time.Minute
	}
	return &Handler{
		db:          deps.DB,
		auth:        deps.Auth,
		payments:    deps.Payments,
		webhookAuth: deps.WebhookAuth,
		limiter:     deps.RateLimiter,
		quiz:        deps.Quiz,
		library:     deps.Library,
		authn:       middleware.NewAuthenticator(deps.DB, deps.Auth, deps.Ledger),
		opts:        opts,
		now:         time.Now,
	}
}
