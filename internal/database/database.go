package database

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"vocab-api/internal/config"
	"vocab-api/internal/models"
	"vocab-api/pkg/logging"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var (
	DB          *gorm.DB
	RedisClient *redis.Client
)

// InitDatabase initializes database connection
func InitDatabase() error {
	db, err := Connect(config.AppConfig.DatabaseURL, config.AppConfig.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	DB = db

	if err := Migrate(DB); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// InitRedis connects the shared redis client. Redis is optional: the rate
// limiter and quiz session store fall back to in-process state without it.
func InitRedis() error {
	redisURL := config.AppConfig.RedisURL
	if redisURL == "" {
		return fmt.Errorf("REDIS_URL is not set")
	}

	client, err := ConnectRedis(redisURL)
	if err != nil {
		return err
	}
	RedisClient = client
	return nil
}

// Connect opens PostgreSQL when databaseURL is set, SQLite otherwise
func Connect(databaseURL, sqlitePath string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	}

	var (
		db  *gorm.DB
		err error
	)
	if databaseURL == "" {
		// Fallback to SQLite for development
		logging.Infof("Database URL not set, using SQLite at %s", sqlitePath)
		db, err = gorm.Open(sqlite.Open(sqlitePath), gormConfig)
	} else {
		db, err = gorm.Open(postgres.Open(databaseURL), gormConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if databaseURL == "" {
		// SQLite allows a single writer; serialize through one connection
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	logging.Infof("Database connected successfully")
	return db, nil
}

// MemoryDSN names a private in-memory SQLite database
func MemoryDSN(name string) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", url.PathEscape(name))
}

// Migrate performs database migration
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.PurchaseRecord{},
		&models.Order{},
		&models.WebhookEvent{},
		&models.PracticeItem{},
	)
}

// ConnectRedis parses the URL and pings the server
func ConnectRedis(redisURL string) (*redis.Client, error) {
	logging.Infof("Connecting to Redis: %s", maskRedisURL(redisURL))

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		logging.Errorf("Failed to parse Redis URL: %v", err)
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		logging.Errorf("Failed to connect to Redis: %v", err)
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Infof("Redis connected successfully")
	return client, nil
}

// maskRedisURL masks sensitive information in Redis URL for logging
func maskRedisURL(url string) string {
	if len(url) > 20 {
		return url[:10] + "***" + url[len(url)-10:]
	}
	return "***"
}

// GetDB returns database instance
func GetDB() *gorm.DB {
	return DB
}

// GetRedis returns Redis client
func GetRedis() *redis.Client {
	return RedisClient
}

// CloseDatabase closes database connections
func CloseDatabase() error {
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logging.Errorf("Failed to close database: %v", err)
			}
		}
	}

	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logging.Errorf("Failed to close Redis: %v", err)
		}
	}

	return nil
}
