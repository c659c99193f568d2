package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the immutable process configuration. It is built once at
// startup and passed by reference into constructors; nothing mutates it
// afterwards.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Token    TokenConfig
	Crypto   CryptoConfig
	OTP      OTPConfig
	Notif    NotifConfig
}

// AppConfig holds server-level settings.
type AppConfig struct {
	Name        string
	Port        string
	Env         string
	LogLevel    string
	LogFormat   string
	CORSOrigins string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Address returns the host:port address for the Redis client.
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// TokenConfig holds the two signing secrets and token lifetimes. The
// secrets are independent: a refresh token must never verify under the
// access secret or vice versa.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// CryptoConfig holds the symmetric payload key and hashing cost.
type CryptoConfig struct {
	// PayloadKey is the hex-encoded 32-byte AES key for token payloads.
	PayloadKey string
	BcryptCost int
}

// OTPConfig holds one-time code policy.
type OTPConfig struct {
	TTL          time.Duration
	MaxAttempts  int
	CodeLength   int
	ResendWindow time.Duration
}

// NotifConfig holds OTP delivery settings.
type NotifConfig struct {
	// Provider selects the email provider: "console" or "ses".
	Provider    string
	FromAddress string
	AWSRegion   string
}

// Load builds the configuration from the environment. Missing required
// secrets are an error: the process must not start with guessable defaults.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "kyf-api"),
			Port:        getEnv("PORT", "8080"),
			Env:         getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "console"),
			CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "kyf"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Token: TokenConfig{
			AccessSecret:  os.Getenv("JWT_ACCESS_SECRET"),
			RefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
			AccessTTL:     getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),
			RefreshTTL:    getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
		},
		Crypto: CryptoConfig{
			PayloadKey: os.Getenv("TOKEN_PAYLOAD_KEY"),
			BcryptCost: getEnvInt("BCRYPT_COST", 12),
		},
		OTP: OTPConfig{
			TTL:          getEnvDuration("OTP_TTL", 5*time.Minute),
			MaxAttempts:  getEnvInt("OTP_MAX_ATTEMPTS", 5),
			CodeLength:   getEnvInt("OTP_CODE_LENGTH", 6),
			ResendWindow: getEnvDuration("OTP_RESEND_WINDOW", time.Minute),
		},
		Notif: NotifConfig{
			Provider:    getEnv("NOTIF_PROVIDER", "console"),
			FromAddress: getEnv("NOTIF_FROM_ADDRESS", "no-reply@kyf.example"),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
		},
	}

	if cfg.Token.AccessSecret == "" {
		return nil, fmt.Errorf("config: JWT_ACCESS_SECRET is required")
	}
	if cfg.Token.RefreshSecret == "" {
		return nil, fmt.Errorf("config: JWT_REFRESH_SECRET is required")
	}
	if cfg.Token.AccessSecret == cfg.Token.RefreshSecret {
		return nil, fmt.Errorf("config: access and refresh secrets must differ")
	}
	if cfg.Crypto.PayloadKey == "" {
		return nil, fmt.Errorf("config: TOKEN_PAYLOAD_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
