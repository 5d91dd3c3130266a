package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("QUIZ_SESSION_STORE", "")
	t.Setenv("PAYMENT_RATE_WINDOW", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.QuizSessionStore)
	assert.Equal(t, 15*time.Minute, cfg.PaymentRateWindow)
	assert.Equal(t, 168, cfg.JWTExpireHours)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CLIENT_ORIGIN", "https://vocab.example.com/")
	t.Setenv("PAYMENT_GATEWAY_TIMEOUT_SECONDS", "3")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("ORDERS_PER_USER_WINDOW", "90s")
	t.Setenv("JWT_EXPIRES_HOURS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "https://vocab.example.com", cfg.ClientOrigin)
	assert.Equal(t, 3*time.Second, cfg.GatewayTimeout)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 90*time.Second, cfg.OrdersPerUserWindow)
	assert.Equal(t, 168, cfg.JWTExpireHours)
}
