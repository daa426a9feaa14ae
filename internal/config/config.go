package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	RMA      RMAConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LiveLogFilePath    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Connection string
	// Driver is "postgres" or "memory".
	Driver string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type RMAConfig struct {
	PolicyCacheTTL       time.Duration
	PolicyCacheCleanup   time.Duration
	AnalyticsBatchSize   int
	SweepInterval        time.Duration
	MaxTransitionRetries int
	// EnforceOrderChecks validates order ownership and return windows at creation.
	EnforceOrderChecks bool
	LabelBaseURL       string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Validate rejects combinations that cannot start.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Connection == "" {
			return fmt.Errorf("DB_CONNECTION_STRING is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Database.Driver)
	}
	if c.RMA.AnalyticsBatchSize <= 0 {
		return fmt.Errorf("RMA_ANALYTICS_BATCH_SIZE must be positive")
	}
	if c.RMA.MaxTransitionRetries < 1 {
		return fmt.Errorf("RMA_MAX_TRANSITION_RETRIES must be at least 1")
	}
	return nil
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/rma.log"),
			LiveLogFilePath:    getEnv("LIVE_LOG_FILE_PATH", "logs/rma_live.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JWTSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			Driver:     getEnv("STORE_DRIVER", DriverPostgres),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "Returns Desk"),
		},
		RMA: RMAConfig{
			PolicyCacheTTL:       getEnvAsDuration("RMA_POLICY_CACHE_TTL", 5*time.Minute),
			PolicyCacheCleanup:   getEnvAsDuration("RMA_POLICY_CACHE_CLEANUP", 10*time.Minute),
			AnalyticsBatchSize:   getEnvAsInt("RMA_ANALYTICS_BATCH_SIZE", 500),
			SweepInterval:        getEnvAsDuration("RMA_SWEEP_INTERVAL", 15*time.Minute),
			MaxTransitionRetries: getEnvAsInt("RMA_MAX_TRANSITION_RETRIES", 3),
			EnforceOrderChecks:   getEnvAsBool("RMA_ENFORCE_ORDER_CHECKS", false),
			LabelBaseURL:         getEnv("RMA_LABEL_BASE_URL", "http://localhost:3000"),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "rma-engine"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
