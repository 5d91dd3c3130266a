package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port         string
	Mode         string
	ClientOrigin string

	// Database configuration
	DatabaseURL string
	SQLitePath  string

	// Redis configuration
	RedisURL string

	// Auth configuration
	JWTSecret      string
	JWTExpireHours int
	CookieSecure   bool

	// PhonePe configuration
	PhonePeClientID      string
	PhonePeClientSecret  string
	PhonePeClientVersion string
	PhonePeAuthURL       string
	PhonePeBaseURL       string
	GatewayTimeout       time.Duration
	WebhookUsername      string
	WebhookPassword      string

	// Payment rate limits
	PaymentRateLimit    int
	PaymentRateWindow   time.Duration
	OrdersPerUserLimit  int
	OrdersPerUserWindow time.Duration

	// Content and quiz configuration
	ContentDir        string
	QuizSessionStore  string
	QuizSessionTTL    time.Duration
	ReconcileSchedule string

	// Operator alerts
	OperatorWebhookURL    string
	OperatorWebhookSecret string

	// Brevo email configuration
	BrevoAPIKey    string
	BrevoFromEmail string
	BrevoFromName  string
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	AppConfig = Load()
	return nil
}

// Load reads the configuration from the environment without touching AppConfig
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		Mode:         getEnv("GIN_MODE", "debug"),
		ClientOrigin: strings.TrimRight(getEnv("CLIENT_ORIGIN", "http://localhost:5173"), "/"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "vocab-api.db"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTExpireHours: getEnvInt("JWT_EXPIRES_HOURS", 168),
		CookieSecure:   getEnvBool("COOKIE_SECURE", false),

		PhonePeClientID:      getEnv("PHONEPE_CLIENT_ID", ""),
		PhonePeClientSecret:  getEnv("PHONEPE_CLIENT_SECRET", ""),
		PhonePeClientVersion: getEnv("PHONEPE_CLIENT_VERSION", "1"),
		PhonePeAuthURL:       getEnv("PHONEPE_AUTH_URL", "https://api-preprod.phonepe.com/apis/pg-sandbox/v1/oauth/token"),
		PhonePeBaseURL:       strings.TrimRight(getEnv("PHONEPE_BASE_URL", "https://api-preprod.phonepe.com/apis/pg-sandbox"), "/"),
		GatewayTimeout:       time.Duration(getEnvInt("PAYMENT_GATEWAY_TIMEOUT_SECONDS", 15)) * time.Second,
		WebhookUsername:      getEnv("PP_WEBHOOK_USERNAME", ""),
		WebhookPassword:      getEnv("PP_WEBHOOK_PASSWORD", ""),

		PaymentRateLimit:    getEnvInt("PAYMENT_RATE_LIMIT", 5),
		PaymentRateWindow:   getEnvDuration("PAYMENT_RATE_WINDOW", 15*time.Minute),
		OrdersPerUserLimit:  getEnvInt("ORDERS_PER_USER_LIMIT", 3),
		OrdersPerUserWindow: getEnvDuration("ORDERS_PER_USER_WINDOW", 5*time.Minute),

		ContentDir:        getEnv("CONTENT_DIR", "data"),
		QuizSessionStore:  getEnv("QUIZ_SESSION_STORE", "memory"),
		QuizSessionTTL:    time.Duration(getEnvInt("QUIZ_SESSION_TTL_HOURS", 24)) * time.Hour,
		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", "@every 5m"),

		OperatorWebhookURL:    getEnv("OPERATOR_WEBHOOK_URL", ""),
		OperatorWebhookSecret: getEnv("OPERATOR_WEBHOOK_SECRET", ""),

		BrevoAPIKey:    getEnv("BREVO_API_KEY", ""),
		BrevoFromEmail: getEnv("BREVO_FROM_EMAIL", ""),
		BrevoFromName:  getEnv("BREVO_FROM_NAME", "Vocab"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
