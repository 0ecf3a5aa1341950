package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Storage   StorageConfig
	Price     PriceConfig
	Alerts    AlertsConfig
	Push      PushConfig
	RateLimit RateLimitConfig
	Tracing   TracingConfig
}

type AppConfig struct {
	Env      string
	Port     string
	LogLevel string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the PostgreSQL connection string
func (d DBConfig) DSN() string {
	return "host=" + d.Host +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" port=" + d.Port +
		" sslmode=" + d.SSLMode +
		" TimeZone=UTC"
}

// URL returns the PostgreSQL connection URL (for golang-migrate)
func (d DBConfig) URL() string {
	return "postgres://" + d.User + ":" + d.Password +
		"@" + d.Host + ":" + d.Port +
		"/" + d.Name + "?sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type CORSConfig struct {
	Origins []string
}

// StorageConfig selects where alerts, devices and preferences live
type StorageConfig struct {
	Driver string // memory | postgres
}

type PriceConfig struct {
	Feed            string // static | coingecko
	BaseURL         string
	APIKey          string
	Cache           string // memory | redis
	CacheTTL        time.Duration
	FetchTimeout    time.Duration
	FallbackUnknown bool
	RequestsPerSec  float64
}

type AlertsConfig struct {
	EvaluationInterval time.Duration
	Cooldown           time.Duration
	MaxConcurrentFetch int
}

type PushConfig struct {
	Provider        string // log | fcm
	CredentialsFile string
	DeliveryTimeout time.Duration
	HistorySize     int
}

type RateLimitConfig struct {
	PerMinute int
}

type TracingConfig struct {
	Endpoint    string
	ServiceName string
}

// Load reads configuration from .env file and environment variables
func Load() *Config {
	// Load .env file (ignore error if not exists - e.g. in Docker)
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found, reading from environment variables")
	}

	return &Config{
		App: AppConfig{
			Env:      getEnv("APP_ENV", "development"),
			Port:     getEnv("APP_PORT", "8080"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "pricewatch"),
			Password: getEnv("DB_PASSWORD", "pricewatch"),
			Name:     getEnv("DB_NAME", "pricewatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "default-secret"),
			Expiry: getDuration("JWT_EXPIRY", 24*time.Hour),
		},
		CORS: CORSConfig{
			Origins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", "memory"),
		},
		Price: PriceConfig{
			Feed:            getEnv("PRICE_FEED", "static"),
			BaseURL:         getEnv("PRICE_FEED_URL", "https://api.coingecko.com/api/v3"),
			APIKey:          getEnv("PRICE_FEED_API_KEY", ""),
			Cache:           getEnv("PRICE_CACHE", "memory"),
			CacheTTL:        getDuration("PRICE_CACHE_TTL", 30*time.Second),
			FetchTimeout:    getDuration("PRICE_FETCH_TIMEOUT", 5*time.Second),
			FallbackUnknown: getBool("PRICE_FALLBACK_UNKNOWN", true),
			RequestsPerSec:  getFloat("PRICE_FEED_RPS", 5),
		},
		Alerts: AlertsConfig{
			EvaluationInterval: getDuration("ALERT_EVAL_INTERVAL", 30*time.Second),
			Cooldown:           getDuration("ALERT_COOLDOWN", 5*time.Minute),
			MaxConcurrentFetch: getInt("ALERT_MAX_CONCURRENT_FETCH", 8),
		},
		Push: PushConfig{
			Provider:        getEnv("PUSH_PROVIDER", "log"),
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			DeliveryTimeout: getDuration("PUSH_DELIVERY_TIMEOUT", 10*time.Second),
			HistorySize:     getInt("NOTIFICATION_HISTORY_SIZE", 100),
		},
		RateLimit: RateLimitConfig{
			PerMinute: getInt("RATE_LIMIT_PER_MINUTE", 120),
		},
		Tracing: TracingConfig{
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "pricewatch"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
