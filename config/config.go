package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTP     HTTPConfig
	Store    StoreConfig
	DB       DBConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Payment  PaymentConfig
	Telegram TelegramConfig
	RabbitMQ RabbitMQConfig
	Auth     AuthConfig
	Pricing  PricingConfig
}

type HTTPConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
	RateLimit       string // ulule/limiter format, e.g. "100-M"
	CORSOrigins     []string
}

// StoreConfig selects the backend: postgres, mongo or memory.
type StoreConfig struct {
	Driver   string
	SeedFile string // memory driver only
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a Redis host is configured.
func (c RedisConfig) Enabled() bool { return c.Host != "" }

type PaymentConfig struct {
	BaseURL         string
	AuthURL         string
	ClientID        string
	ClientSecret    string
	ClientVersion   string
	CallbackURL     string
	WebhookUsername string
	WebhookPassword string
}

type TelegramConfig struct {
	Token string // bot used to deliver push messages; tokens are chat IDs
}

type RabbitMQConfig struct {
	URL           string
	MaxRetries    int
	RetryDelay    time.Duration
	PrefetchCount int
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type PricingConfig struct {
	GSTPercent         float64
	PlatformFee        float64
	RatePerKm          float64
	MinDeliveryFee     float64
	RoadDistanceFactor float64
	TimeZone           string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("DB_PORT: %w", err)
	}
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}

	cfg := &Config{
		Env: getEnv("ENV", "development"),
		HTTP: HTTPConfig{
			Addr:            getEnv("ADDR", ":8080"),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			RateLimit:       getEnv("RATE_LIMIT", "100-M"),
			CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "*")),
		},
		Store: StoreConfig{
			Driver:   getEnv("STORE_DRIVER", "postgres"),
			SeedFile: getEnv("MEMSTORE_SEED_FILE", ""),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "delivery"),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "delivery"),
			Timeout:  getDuration("MONGO_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Payment: PaymentConfig{
			BaseURL:         getEnv("PAYMENT_BASE_URL", "https://api-preprod.phonepe.com/apis/pg-sandbox"),
			AuthURL:         getEnv("PAYMENT_AUTH_URL", "https://api-preprod.phonepe.com/apis/pg-sandbox/v1/oauth/token"),
			ClientID:        getEnv("PAYMENT_CLIENT_ID", ""),
			ClientSecret:    getEnv("PAYMENT_CLIENT_SECRET", ""),
			ClientVersion:   getEnv("PAYMENT_CLIENT_VERSION", "1"),
			CallbackURL:     getEnv("PAYMENT_CALLBACK_URL", ""),
			WebhookUsername: getEnv("PAYMENT_WEBHOOK_USERNAME", ""),
			WebhookPassword: getEnv("PAYMENT_WEBHOOK_PASSWORD", ""),
		},
		Telegram: TelegramConfig{
			Token: getEnv("TELEGRAM_TOKEN", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:           getEnv("RABBITMQ_URL", ""),
			MaxRetries:    getInt("RABBITMQ_MAX_RETRIES", 3),
			RetryDelay:    getDuration("RABBITMQ_RETRY_DELAY", 2*time.Second),
			PrefetchCount: getInt("RABBITMQ_PREFETCH_COUNT", 10),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getDuration("JWT_TTL", 24*time.Hour),
		},
		Pricing: PricingConfig{
			GSTPercent:         getFloat("GST_PERCENT", 5),
			PlatformFee:        getFloat("PLATFORM_FEE", 10),
			RatePerKm:          getFloat("DELIVERY_RATE_PER_KM", 10),
			MinDeliveryFee:     getFloat("MIN_DELIVERY_FEE", 10),
			RoadDistanceFactor: getFloat("ROAD_DISTANCE_FACTOR", 1.3),
			TimeZone:           getEnv("RESTAURANT_TZ", "Asia/Kolkata"),
		},
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET not set")
	}
	switch cfg.Store.Driver {
	case "postgres", "mongo", "memory":
	default:
		return nil, fmt.Errorf("STORE_DRIVER %q: want postgres, mongo or memory", cfg.Store.Driver)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
