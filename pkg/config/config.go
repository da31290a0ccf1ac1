package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server  Server
	DB      DB
	Redis   Redis
	MinIO   MinIO
	JWT     JWT
	OAuth   OAuth
	Call    Call
	Payment Payment
	Log     Log
}

// Server holds HTTP server configuration
type Server struct {
	Port        int
	Environment string // development, staging, production
	ServiceName string
	// BaseURL is the public URL of the frontend, used in email links
	BaseURL string
	// CORSOrigins is a comma-separated list of additional allowed origins
	CORSOrigins string
}

// DB holds PostgreSQL configuration
type DB struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

// Redis holds Redis configuration
type Redis struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
	Timeout  time.Duration
}

// MinIO holds object storage configuration for profile photos
type MinIO struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// JWT holds token configuration
type JWT struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// OAuth holds social login configuration
type OAuth struct {
	// GoogleClientID ties Google ID tokens to this application; empty
	// skips the audience check (development only)
	GoogleClientID string
}

// Call holds call lifecycle configuration
type Call struct {
	// HeartbeatTimeout is how long a call may go without a heartbeat
	// before the reaper drops it
	HeartbeatTimeout time.Duration
	// ReaperInterval is how often the stale-call sweep runs
	ReaperInterval time.Duration
	// JitsiDomain is the video conferencing domain used to build room URLs
	JitsiDomain string
}

// Payment holds payment integration configuration
type Payment struct {
	// WebhookSecret authenticates incoming payment webhooks; empty
	// disables the check (development only)
	WebhookSecret string
	// ExpireInterval is how often lapsed subscription rows are flipped
	// to expired
	ExpireInterval time.Duration
}

// Log holds logging configuration
type Log struct {
	Level    string // debug, info, warn, error
	Format   string // json, text
	Output   string // stdout, file
	FilePath string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: Server{
			Port:        getEnvAsInt("PORT", 8080),
			Environment: getEnv("ENV", "development"),
			ServiceName: getEnv("SERVICE_NAME", "tutorconnect-api"),
			BaseURL:     getEnv("APP_BASE_URL", "http://localhost:3000"),
			CORSOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		},
		DB: DB{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "tutorconnect"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		Redis: Redis{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 10),
			Timeout:  time.Duration(getEnvAsInt("REDIS_TIMEOUT", 5)) * time.Second,
		},
		MinIO: MinIO{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
			Bucket:    getEnv("MINIO_BUCKET", "tutorconnect-profiles"),
		},
		JWT: JWT{
			Secret:             getEnv("JWT_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_EXPIRY", 15)) * time.Minute,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_EXPIRY", 720)) * time.Hour,
		},
		OAuth: OAuth{
			GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),
		},
		Call: Call{
			HeartbeatTimeout: time.Duration(getEnvAsInt("CALL_HEARTBEAT_TIMEOUT", 60)) * time.Second,
			ReaperInterval:   time.Duration(getEnvAsInt("CALL_REAPER_INTERVAL", 30)) * time.Second,
			JitsiDomain:      getEnv("JITSI_DOMAIN", "meet.ffmuc.net"),
		},
		Payment: Payment{
			WebhookSecret:  getEnv("PAYMENT_WEBHOOK_SECRET", ""),
			ExpireInterval: time.Duration(getEnvAsInt("SUBSCRIPTION_EXPIRE_INTERVAL", 600)) * time.Second,
		},
		Log: Log{
			Level:    getEnv("LOG_LEVEL", "info"),
			Format:   getEnv("LOG_FORMAT", "json"),
			Output:   getEnv("LOG_OUTPUT", "stdout"),
			FilePath: getEnv("LOG_FILE_PATH", "/logs/app.log"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Environment == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
		if c.Payment.WebhookSecret == "" {
			return fmt.Errorf("PAYMENT_WEBHOOK_SECRET must be set in production")
		}
	}

	if c.Call.HeartbeatTimeout <= 0 {
		return fmt.Errorf("CALL_HEARTBEAT_TIMEOUT must be positive")
	}
	if c.Call.ReaperInterval <= 0 {
		return fmt.Errorf("CALL_REAPER_INTERVAL must be positive")
	}
	if c.Payment.ExpireInterval <= 0 {
		return fmt.Errorf("SUBSCRIPTION_EXPIRE_INTERVAL must be positive")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
