package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all the configuration for the application.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Google       GoogleConfig       `mapstructure:"google"`
	SMTP         SMTPConfig         `mapstructure:"smtp"`
	Delivery     DeliveryConfig     `mapstructure:"delivery"`
	RateLimit    RateLimitConfig    `mapstructure:"ratelimit"`
	Housekeeping HousekeepingConfig `mapstructure:"housekeeping"`
	Log          LogConfig          `mapstructure:"log"`
}

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Env  string `mapstructure:"env"`
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable it only behind a proxy that overwrites those headers.
	TrustProxy bool `mapstructure:"trustproxy"`
}

// DatabaseConfig holds the database configuration.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// RedisConfig holds the Redis configuration. An empty URL disables Redis.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// JWTConfig configures the bearer tokens handed out after authentication.
type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// GoogleConfig configures verification of Google ID tokens.
type GoogleConfig struct {
	ClientID string `mapstructure:"clientid"`
}

// SMTPConfig configures outgoing mail. An empty Host means codes are written
// to the log instead of being mailed.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// DeliveryConfig bounds one-time code delivery.
type DeliveryConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	// LogFallback writes the code to the server log when delivery fails.
	LogFallback bool `mapstructure:"logfallback"`
}

// RateLimitConfig controls per-client throttling of the auth endpoints.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// HousekeepingConfig controls the expired pending-account sweeper.
type HousekeepingConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

var bindings = map[string]string{
	"server.port":           "SERVER_PORT",
	"server.env":            "SERVER_ENV",
	"server.trustproxy":     "SERVER_TRUST_PROXY",
	"database.url":          "DATABASE_URL",
	"redis.url":             "REDIS_URL",
	"jwt.secret":            "JWT_SECRET",
	"jwt.ttl":               "JWT_TTL",
	"google.clientid":       "GOOGLE_CLIENT_ID",
	"smtp.host":             "SMTP_HOST",
	"smtp.port":             "SMTP_PORT",
	"smtp.username":         "SMTP_USERNAME",
	"smtp.password":         "SMTP_PASSWORD",
	"smtp.from":             "SMTP_FROM",
	"delivery.timeout":      "DELIVERY_TIMEOUT",
	"delivery.logfallback":  "DELIVERY_LOG_FALLBACK",
	"ratelimit.requests":    "RATE_LIMIT_REQUESTS",
	"ratelimit.window":      "RATE_LIMIT_WINDOW",
	"housekeeping.interval": "HOUSEKEEPING_INTERVAL",
	"log.level":             "LOG_LEVEL",
}

// Load reads configuration from the environment, after merging an optional
// .env file into it. Environment variables already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.env", EnvDevelopment)
	v.SetDefault("jwt.ttl", 7*24*time.Hour)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("delivery.timeout", 5*time.Second)
	v.SetDefault("ratelimit.requests", 100)
	v.SetDefault("ratelimit.window", 15*time.Minute)
	v.SetDefault("housekeeping.interval", 5*time.Minute)
	v.SetDefault("log.level", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// The code fallback is a debugging aid, so it is only on by default outside production.
	if !v.IsSet("delivery.logfallback") {
		cfg.Delivery.LogFallback = cfg.Server.Env != EnvProduction
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration that the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if c.IsProduction() && len(c.JWT.Secret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes in production"))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Server.Env == EnvProduction
}
