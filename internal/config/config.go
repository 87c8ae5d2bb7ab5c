package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
type Config struct {
	App      AppConfig
	MySQL    MySQLConfig
	Redis    RedisConfig
	Razorpay RazorpayConfig
	Auth     AuthConfig
}

// AppConfig holds HTTP server settings.
type AppConfig struct {
	Addr         string
	Env          string // "production" disables the test-order bypass
	GinMode      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// MySQLConfig holds MySQL connection settings.
type MySQLConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxConns int
}

// RedisConfig holds the notification relay transport settings. An empty Host
// disables the relay.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Channel  string
}

// RazorpayConfig holds gateway credentials. Placeholder keys route intent
// creation through the deterministic test-order path outside production.
type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// DSN returns the MySQL connection string.
func (m MySQLConfig) DSN() string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=Local&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s",
		m.User, m.Password, m.Host, m.Port, m.DBName,
	)
}

// Addr returns the Redis address in host:port format.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Enabled reports whether the relay transport is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Host) != ""
}

// Configured reports whether real gateway credentials are present.
func (rz RazorpayConfig) Configured() bool {
	return rz.KeyID != "" && rz.KeyID != "rzp_test_placeholder" &&
		rz.KeySecret != "" && rz.KeySecret != "placeholder_secret"
}

// Load reads configuration from environment variables and an optional .env
// file. Env vars win over file values.
func Load() (Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("APP_ADDR", ":8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("GIN_MODE", "")
	viper.SetDefault("APP_READ_TIMEOUT", "20s")
	viper.SetDefault("APP_WRITE_TIMEOUT", "20s")
	viper.SetDefault("APP_IDLE_TIMEOUT", "60s")

	viper.SetDefault("MYSQL_HOST", "localhost")
	viper.SetDefault("MYSQL_PORT", 3306)
	viper.SetDefault("MYSQL_USER", "travel")
	viper.SetDefault("MYSQL_PASSWORD", "travel_secret")
	viper.SetDefault("MYSQL_DB", "travel_db")
	viper.SetDefault("MYSQL_MAX_CONNS", 25)

	viper.SetDefault("REDIS_HOST", "")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("NOTIFY_CHANNEL", "travel:notifications")

	viper.SetDefault("RAZORPAY_KEY_ID", "rzp_test_placeholder")
	viper.SetDefault("RAZORPAY_KEY_SECRET", "placeholder_secret")
	viper.SetDefault("RAZORPAY_WEBHOOK_SECRET", "")
	viper.SetDefault("RAZORPAY_BASE_URL", "https://api.razorpay.com")

	viper.SetDefault("JWT_SECRET", "super-secret-key-change-me")
	viper.SetDefault("TOKEN_TTL", "24h")

	// Missing .env is fine; env vars injected by the runtime are used instead.
	_ = viper.ReadInConfig()

	cfg := Config{
		App: AppConfig{
			Addr:         viper.GetString("APP_ADDR"),
			Env:          viper.GetString("APP_ENV"),
			GinMode:      viper.GetString("GIN_MODE"),
			ReadTimeout:  viper.GetDuration("APP_READ_TIMEOUT"),
			WriteTimeout: viper.GetDuration("APP_WRITE_TIMEOUT"),
			IdleTimeout:  viper.GetDuration("APP_IDLE_TIMEOUT"),
		},
		MySQL: MySQLConfig{
			Host:     viper.GetString("MYSQL_HOST"),
			Port:     viper.GetInt("MYSQL_PORT"),
			User:     viper.GetString("MYSQL_USER"),
			Password: viper.GetString("MYSQL_PASSWORD"),
			DBName:   viper.GetString("MYSQL_DB"),
			MaxConns: viper.GetInt("MYSQL_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			Channel:  viper.GetString("NOTIFY_CHANNEL"),
		},
		Razorpay: RazorpayConfig{
			KeyID:         viper.GetString("RAZORPAY_KEY_ID"),
			KeySecret:     viper.GetString("RAZORPAY_KEY_SECRET"),
			WebhookSecret: viper.GetString("RAZORPAY_WEBHOOK_SECRET"),
			BaseURL:       viper.GetString("RAZORPAY_BASE_URL"),
		},
		Auth: AuthConfig{
			JWTSecret: viper.GetString("JWT_SECRET"),
			TokenTTL:  viper.GetDuration("TOKEN_TTL"),
		},
	}

	return cfg, nil
}
